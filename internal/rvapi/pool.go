package rvapi

const poolPageSize = 128

// Pool is a pool of *T values that can be allocated and reset in bulk, to
// avoid one small heap allocation per IR entity. Ported from the
// teacher's wazevoapi.Pool[T] (wazevoapi/pool.go).
type Pool[T any] struct {
	pages            []*[poolPageSize]T
	allocated, index int
}

// NewPool returns a ready-to-use Pool.
func NewPool[T any]() Pool[T] {
	var p Pool[T]
	p.Reset()
	return p
}

// Allocated returns how many T have been allocated from p since the last Reset.
func (p *Pool[T]) Allocated() int { return p.allocated }

// Allocate returns a fresh *T, zero-valued.
func (p *Pool[T]) Allocate() *T {
	if p.index == poolPageSize {
		if len(p.pages) == cap(p.pages) {
			p.pages = append(p.pages, new([poolPageSize]T))
		} else {
			i := len(p.pages)
			p.pages = p.pages[:i+1]
			if p.pages[i] == nil {
				p.pages[i] = new([poolPageSize]T)
			}
		}
		p.index = 0
	}
	ret := &p.pages[len(p.pages)-1][p.index]
	p.index++
	p.allocated++
	return ret
}

// View returns the i-th allocated item.
func (p *Pool[T]) View(i int) *T {
	page, index := i/poolPageSize, i%poolPageSize
	return &p.pages[page][index]
}

// Reset zero-fills every page and makes the pool allocate from the start
// again, reusing the backing arrays.
func (p *Pool[T]) Reset() {
	for _, page := range p.pages {
		for i := range page {
			var zero T
			page[i] = zero
		}
	}
	p.pages = p.pages[:0]
	p.index = poolPageSize
	p.allocated = 0
}
