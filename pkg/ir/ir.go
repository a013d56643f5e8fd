// Package ir defines the linear instruction sequence that an AST lowers to,
// the emitter that produces it, and the peephole optimizer that merges
// adjacent literal writes.
//
// An instruction sequence fixes the static shape of the output: which bytes
// are known at compile time, where dynamic values are spliced in, and where
// host control flow branches. Which branch runs, and how many loop
// iterations happen, is decided at runtime by the generated code.
package ir

// Instruction is one unit of the lowered output-production sequence. The
// variant set is closed; consumers switch exhaustively.
type Instruction interface {
	instruction()
}

// WriteLiteral appends a pre-escaped literal known at compile time.
type WriteLiteral struct {
	Text string
}

// WriteDynamic evaluates a host expression at runtime and writes its
// rendered form. Escape controls whether the output sink applies runtime
// escaping. A non-empty AttrName renders the value as an attribute with
// that name instead of as content.
type WriteDynamic struct {
	Expr     string
	Escape   bool
	AttrName string
}

// EnterKind discriminates the control construct an Enter lowers.
type EnterKind uint8

const (
	EnterIf EnterKind = iota
	EnterMatch
	EnterFor
)

func (k EnterKind) String() string {
	switch k {
	case EnterIf:
		return "if"
	case EnterMatch:
		return "match"
	case EnterFor:
		return "for"
	default:
		return "invalid"
	}
}

// Enter wraps one nested instruction sequence per control-flow branch.
//
//	EnterIf     one Branch per condition, Cond empty on a trailing else
//	EnterMatch  Subject is the discriminant, one Branch per arm
//	EnterFor    Subject is the iterable, Binding the loop variables,
//	            exactly one Branch
type Enter struct {
	Kind    EnterKind
	Subject string
	Binding string

	Branches []Branch
}

// Branch is one arm of an Enter with its own instruction sequence.
type Branch struct {
	Cond    string
	Pattern string
	Body    []Instruction
}

func (WriteLiteral) instruction() {}
func (WriteDynamic) instruction() {}
func (Enter) instruction()        {}
