package ir

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/godwitml/godwit/pkg/ast"
	"github.com/godwitml/godwit/pkg/escape"
)

// Emit lowers a resolved AST into an ordered instruction sequence,
// preserving document order. Static markup (tags, attribute syntax, text)
// becomes literal writes, fragmented as it occurs in the source; the
// optimizer merges them afterwards.
//
// The tree must have been through the escape resolver first; Emit resolves
// it itself if the caller has not.
func Emit(ctx context.Context, tree *ast.Tree) ([]Instruction, error) {
	if !tree.Resolved {
		escape.Resolve(ctx, tree)
	}

	e := &emitter{tree: tree}
	out, err := e.group(tree.Roots)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Int("instructions", len(out)).Msg("emitted instructions")
	return out, nil
}

type emitter struct {
	tree *ast.Tree
}

func (e *emitter) group(ids []ast.NodeID) ([]Instruction, error) {
	var out []Instruction
	for _, id := range ids {
		instrs, err := e.node(id)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	return out, nil
}

func (e *emitter) node(id ast.NodeID) ([]Instruction, error) {
	n := e.tree.Node(id)

	switch n.Kind {
	case ast.KindText:
		return []Instruction{WriteLiteral{Text: n.Text}}, nil

	case ast.KindExpr:
		return []Instruction{WriteDynamic{Expr: n.Text, Escape: true}}, nil

	case ast.KindElement, ast.KindVoid:
		return e.element(n)

	case ast.KindIf:
		enter := Enter{Kind: EnterIf}
		for _, bid := range n.Branches {
			b := e.tree.Branch(bid)
			body, err := e.group(b.Body)
			if err != nil {
				return nil, err
			}
			enter.Branches = append(enter.Branches, Branch{Cond: b.Cond, Body: body})
		}
		return []Instruction{enter}, nil

	case ast.KindMatch:
		enter := Enter{Kind: EnterMatch, Subject: n.Text}
		for _, bid := range n.Branches {
			b := e.tree.Branch(bid)
			body, err := e.group(b.Body)
			if err != nil {
				return nil, err
			}
			enter.Branches = append(enter.Branches, Branch{Pattern: b.Pattern, Body: body})
		}
		return []Instruction{enter}, nil

	case ast.KindFor:
		body, err := e.group(e.tree.Branch(n.Branches[0]).Body)
		if err != nil {
			return nil, err
		}
		enter := Enter{
			Kind:     EnterFor,
			Subject:  n.Text,
			Binding:  n.Name,
			Branches: []Branch{{Body: body}},
		}
		return []Instruction{enter}, nil

	default:
		return nil, errors.Errorf("cannot lower node kind %v", n.Kind)
	}
}

func (e *emitter) element(n *ast.Node) ([]Instruction, error) {
	out := []Instruction{WriteLiteral{Text: "<" + n.Name}}

	for _, aid := range n.Attrs {
		out = append(out, e.attr(e.tree.Attr(aid))...)
	}
	out = append(out, WriteLiteral{Text: ">"})

	if n.Kind == ast.KindVoid {
		return out, nil
	}

	children, err := e.group(n.Children)
	if err != nil {
		return nil, err
	}
	out = append(out, children...)
	out = append(out, WriteLiteral{Text: "</" + n.Name + ">"})
	return out, nil
}

func (e *emitter) attr(a *ast.Attr) []Instruction {
	switch a.Value.Kind {
	case ast.AttrImplicit:
		return []Instruction{WriteLiteral{Text: " " + a.Name}}

	case ast.AttrBool:
		// Literal booleans fold at compile time: true is the bare name,
		// false removes the attribute entirely.
		if a.Value.Bool {
			return []Instruction{WriteLiteral{Text: " " + a.Name}}
		}
		return nil

	case ast.AttrStatic:
		return []Instruction{
			WriteLiteral{Text: " " + a.Name + `="`},
			WriteLiteral{Text: a.Value.Text},
			WriteLiteral{Text: `"`},
		}

	case ast.AttrDynamic:
		// The runtime attribute write supplies its own leading space, so the
		// whole attribute can vanish when the value is false or nil.
		return []Instruction{
			WriteDynamic{Expr: a.Value.Text, Escape: true, AttrName: a.Name},
		}

	default:
		return nil
	}
}
