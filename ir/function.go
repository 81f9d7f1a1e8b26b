package ir

import (
	"strings"

	"github.com/Yona-Appletree/lp-glsl-vm-sub000/internal/rvapi"
)

// Function is an ordered set of BasicBlock(s) plus a Signature (spec.md
// §3). The entry block is always blocks[0]; its parameters are the
// function's formal parameters. A Function owns its blocks, instructions
// and values exclusively (spec.md §5 "memory ownership").
type Function struct {
	Name string
	Sig  *Signature

	blocks    []*BasicBlock
	blockPool rvapi.Pool[BasicBlock]
	instrPool rvapi.Pool[Instruction]

	nextValueID ValueID

	// baseSourceLocation is the absolute source location instructions'
	// SourceLocation offsets are relative to; -1 if the function carries
	// no source location info.
	baseSourceLocation int64
}

// NewFunction creates an empty Function with the given name and
// signature. The entry block is pre-created with one parameter per
// signature parameter type.
func NewFunction(name string, sig *Signature) *Function {
	f := &Function{Name: name, Sig: sig, baseSourceLocation: -1,
		blockPool: rvapi.NewPool[BasicBlock](), instrPool: rvapi.NewPool[Instruction]()}
	entry := f.CreateBlock()
	for _, t := range sig.Params {
		entry.AddParam(f, t)
	}
	return f
}

// SetBaseSourceLocation records the absolute source location this
// function's instructions' relative offsets are anchored to.
func (f *Function) SetBaseSourceLocation(loc int64) { f.baseSourceLocation = loc }

// BaseSourceLocation returns the function's base source location, or -1.
func (f *Function) BaseSourceLocation() int64 { return f.baseSourceLocation }

// CreateBlock allocates a new, empty BasicBlock owned by f and appends it
// to f's block list. The first call (made by NewFunction) creates the
// entry block.
func (f *Function) CreateBlock() *BasicBlock {
	b := f.blockPool.Allocate()
	*b = BasicBlock{id: BasicBlockID(len(f.blocks)), fn: f}
	f.blocks = append(f.blocks, b)
	return b
}

// allocateValue reserves a new Value of the given type; called by
// instruction constructors and BasicBlock.AddParam.
func (f *Function) allocateValue(t Type) Value {
	id := f.nextValueID
	f.nextValueID++
	return valueWithType(id, t)
}

// NewInstruction allocates a blank Instruction owned by f. Callers use one
// of Instruction's As* constructors to initialize it, then
// BasicBlock.InsertInstruction to place it.
func (f *Function) NewInstruction() *Instruction {
	i := f.instrPool.Allocate()
	i.reset()
	return i
}

// Blocks returns every block in f, in creation order (index == BasicBlockID).
func (f *Function) Blocks() []*BasicBlock { return f.blocks }

// Block returns the block with the given id.
func (f *Function) Block(id BasicBlockID) *BasicBlock { return f.blocks[id] }

// EntryBlock returns f's entry block.
func (f *Function) EntryBlock() *BasicBlock { return f.blocks[0] }

// NumValues returns the number of SSA values allocated in f so far.
func (f *Function) NumValues() int { return int(f.nextValueID) }

// Format renders the whole function in the textual form of spec.md §6.
func (f *Function) Format() string {
	var s strings.Builder
	s.WriteString("function %")
	s.WriteString(f.Name)
	s.WriteString(f.Sig.String())
	s.WriteString(" {\n")
	for _, b := range f.blocks {
		if !b.Valid() {
			continue
		}
		s.WriteString(b.Format())
		s.WriteString("\n")
	}
	s.WriteString("}")
	return s.String()
}
