package ir

// Block is a basic block: a maximal straight-line sequence of IR ops ending
// in a jump.
//
// Invariant: Jump[1] == nil means an unconditional jump to Jump[0] (or no
// successor at all, if Jump[0] is also nil, for a block ending in
// `return`); both non-nil means a conditional branch on Expr, with Jump[1]
// taken when Expr is non-zero.
type Block struct {
	ID   int
	Code []*Instr
	Expr *Var
	Jump [2]*Block
}

// N is the number of instructions emitted into this block so far.
func (b *Block) N() int { return len(b.Code) }

// Emit appends in to the block's code and returns it, for call-site
// chaining convenience.
func (b *Block) Emit(in *Instr) *Instr {
	b.Code = append(b.Code, in)
	return in
}

// JumpTo sets an unconditional successor.
func (b *Block) JumpTo(target *Block) {
	b.Jump[0] = target
	b.Jump[1] = nil
}

// Branch sets a conditional successor pair: falseTarget when Expr is zero,
// trueTarget when Expr is non-zero.
func (b *Block) Branch(falseTarget, trueTarget *Block) {
	b.Jump[0] = falseTarget
	b.Jump[1] = trueTarget
}

// Terminated reports whether b already has an outgoing jump wired. A block
// ended by `return` is left jump-less, so it reports false.
func (b *Block) Terminated() bool { return b.Jump[0] != nil }
