package ir

// Builder is a thin ergonomic wrapper for constructing a Function:
// create blocks, pick the current insertion point, and append
// instructions. Unlike the teacher's ssa.Builder, this Builder does not
// do on-the-fly SSA construction (variable declaration/sealing/findValue):
// spec.md §6 has the front end hand over an already fully-built,
// dominance-scoped Function, so block parameters are wired directly by
// the caller rather than resolved lazily.
type Builder interface {
	// Func returns the Function under construction.
	Func() *Function

	// CreateBlock allocates a new block in the function.
	CreateBlock() *BasicBlock

	// SetCurrentBlock directs subsequent Insert calls to append to b.
	SetCurrentBlock(b *BasicBlock)

	// CurrentBlock returns the block currently receiving instructions.
	CurrentBlock() *BasicBlock

	// NewInstruction allocates a blank instruction for the caller to
	// initialize via one of its As* methods.
	NewInstruction() *Instruction

	// Insert appends instr, already initialized by an As* call, to the
	// current block.
	Insert(instr *Instruction)

	// allocateValue reserves a fresh Value of the given type. Exported to
	// other files in this package only; Instruction's As* constructors use
	// it through the Builder interface by type-asserting to *builder.
	allocateValue(t Type) Value
}

type builder struct {
	fn      *Function
	current *BasicBlock
}

// NewBuilder returns a Builder constructing fn.
func NewBuilder(fn *Function) Builder {
	return &builder{fn: fn, current: fn.EntryBlock()}
}

func (b *builder) Func() *Function { return b.fn }

func (b *builder) CreateBlock() *BasicBlock { return b.fn.CreateBlock() }

func (b *builder) SetCurrentBlock(blk *BasicBlock) { b.current = blk }

func (b *builder) CurrentBlock() *BasicBlock { return b.current }

func (b *builder) NewInstruction() *Instruction { return b.fn.NewInstruction() }

func (b *builder) Insert(instr *Instruction) { b.current.InsertInstruction(instr) }

func (b *builder) allocateValue(t Type) Value { return b.fn.allocateValue(t) }
