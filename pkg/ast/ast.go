// Package ast defines the abstract syntax tree for the markup notation.
//
// Nodes live in a flat arena owned by a Tree and are addressed by index.
// Composite nodes hold index lists for their children instead of pointers,
// so deeply nested templates never form ownership cycles and whole-tree
// passes (like escape resolution) can walk the arena linearly.
package ast

import "github.com/godwitml/godwit/pkg/position"

// Kind discriminates the closed set of node variants. The set is fixed by
// the grammar; every consumer switches exhaustively over it.
type Kind uint8

const (
	// KindElement is a normal element: name, optional attributes, children.
	KindElement Kind = iota
	// KindVoid is a void element: no children, no closing tag.
	KindVoid
	// KindText is a bare string literal appearing as content. It is escaped
	// at compile time by the escape resolver.
	KindText
	// KindExpr is an interpolated host expression (@expr or @{ expr }),
	// escaped at runtime by the output sink.
	KindExpr
	// KindIf is an @if / else if / else chain.
	KindIf
	// KindMatch is an @match with its arms.
	KindMatch
	// KindFor is an @for loop.
	KindFor
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindVoid:
		return "void element"
	case KindText:
		return "text"
	case KindExpr:
		return "expression"
	case KindIf:
		return "if"
	case KindMatch:
		return "match"
	case KindFor:
		return "for"
	default:
		return "invalid"
	}
}

// NodeID addresses a node within its Tree's arena.
type NodeID int32

// AttrID addresses an attribute within its Tree's arena.
type AttrID int32

// BranchID addresses a control-flow branch within its Tree's arena.
type BranchID int32

// Node is one AST unit. Which fields are meaningful depends on Kind:
//
//	KindElement   Name, Attrs, Children
//	KindVoid      Name, Attrs
//	KindText      Text (literal content, pre-escaped once resolved)
//	KindExpr      Text (verbatim host expression)
//	KindIf        Branches (conditions on each branch; a trailing branch
//	              with an empty condition is the else)
//	KindMatch     Text (discriminant expression), Branches (arms)
//	KindFor       Name (comma-separated binding list), Text (iterable
//	              expression), Branches (exactly one, the body)
type Node struct {
	Kind Kind
	Span position.Span

	Name     string
	Text     string
	Attrs    []AttrID
	Children []NodeID
	Branches []BranchID
}

// AttrValueKind discriminates how an attribute value was written.
type AttrValueKind uint8

const (
	// AttrImplicit is a bare attribute name: boolean true.
	AttrImplicit AttrValueKind = iota
	// AttrStatic is a quoted string literal value.
	AttrStatic
	// AttrBool is a literal true or false value.
	AttrBool
	// AttrDynamic is a brace-delimited host expression.
	AttrDynamic
)

// Attr is one attribute. Names are always resolved at compile time; only
// values may be dynamic.
type Attr struct {
	Span  position.Span
	Name  string
	Value AttrValue
}

// AttrValue is the value half of an attribute.
type AttrValue struct {
	Kind AttrValueKind
	Span position.Span
	// Text is the literal content (AttrStatic, pre-escaped once resolved)
	// or the verbatim host expression (AttrDynamic).
	Text string
	// Bool is the literal value for AttrBool.
	Bool bool
}

// Branch is one control-flow branch: an if/else arm, a match arm, or a for
// body. Cond and Pattern are opaque host text.
type Branch struct {
	Span    position.Span
	Cond    string
	Pattern string
	Body    []NodeID
}

// Tree owns the arena for one parsed template. It is constructed once per
// compilation and fully consumed by the instruction emitter; nothing retains
// it afterwards.
type Tree struct {
	// Source is the text the spans in this tree index into.
	Source string
	// Roots are the top-level nodes in document order.
	Roots []NodeID
	// Resolved is set by the escape resolver; static text in a resolved
	// tree is pre-escaped and must not be escaped again.
	Resolved bool

	nodes    []Node
	attrs    []Attr
	branches []Branch
}

func NewTree(source string) *Tree {
	return &Tree{Source: source}
}

// AddNode appends a node to the arena and returns its id.
func (t *Tree) AddNode(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// AddAttr appends an attribute to the arena and returns its id.
func (t *Tree) AddAttr(a Attr) AttrID {
	t.attrs = append(t.attrs, a)
	return AttrID(len(t.attrs) - 1)
}

// AddBranch appends a branch to the arena and returns its id.
func (t *Tree) AddBranch(b Branch) BranchID {
	t.branches = append(t.branches, b)
	return BranchID(len(t.branches) - 1)
}

// Node returns the arena node for id. The pointer stays valid until the next
// AddNode.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

func (t *Tree) Attr(id AttrID) *Attr {
	return &t.attrs[id]
}

func (t *Tree) Branch(id BranchID) *Branch {
	return &t.branches[id]
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Attrs returns the number of attributes in the arena.
func (t *Tree) AttrLen() int {
	return len(t.attrs)
}
