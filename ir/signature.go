package ir

import "strings"

// Signature is a function's (parameter-types, return-types) pair, per
// spec.md §3.
type Signature struct {
	Params  []Type
	Results []Type
}

// NeedsReturnArea reports whether this signature's return arity requires
// a caller-allocated return area per the ABI rule in spec.md §4.7: more
// than two return values no longer fit in a0/a1.
func (s *Signature) NeedsReturnArea() bool { return len(s.Results) > 2 }

// String implements fmt.Stringer.
func (s *Signature) String() string {
	params := make([]string, len(s.Params))
	for i, t := range s.Params {
		params[i] = t.String()
	}
	results := make([]string, len(s.Results))
	for i, t := range s.Results {
		results[i] = t.String()
	}
	ret := "(" + strings.Join(params, ", ") + ")"
	if len(results) > 0 {
		ret += " -> " + strings.Join(results, ", ")
	}
	return ret
}
