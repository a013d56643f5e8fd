// Package codegen turns optimized instruction sequences into a generated Go
// source file targeting pkg/html. Output goes through go/format, so a file
// this package returns is always gofmt-clean.
package codegen

import (
	"context"
	"fmt"
	"go/format"
	"go/parser"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/godwitml/godwit/pkg/ir"
)

// runtimePkg is the import path of the renderable runtime the generated code
// targets.
const runtimePkg = "github.com/godwitml/godwit/pkg/html"

// Header is the first line of every generated file.
const Header = "// Code generated by godwit. DO NOT EDIT."

// View is one compiled view declaration ready for code generation.
type View struct {
	// Name becomes the generated function name and must be an exported or
	// unexported Go identifier.
	Name string
	// Params is the verbatim parameter list text, without parentheses.
	Params string
	// Instrs is the optimized instruction sequence of the view body.
	Instrs []ir.Instruction
}

// File describes one generated output file.
type File struct {
	Package string
	// Imports holds verbatim import paths from the template file. The
	// runtime import is added automatically.
	Imports []string
	Views   []View
}

// Generate renders f as formatted Go source.
func Generate(ctx context.Context, f File) ([]byte, error) {
	if f.Package == "" {
		return nil, errors.New("generate: empty package name")
	}

	g := &generator{}
	g.linef("%s", Header)
	g.linef("")
	g.linef("package %s", f.Package)
	g.linef("")
	g.linef("import (")
	for _, imp := range f.Imports {
		g.linef("%q", imp)
	}
	g.linef("")
	g.linef("html %q", runtimePkg)
	g.linef(")")

	for _, v := range f.Views {
		g.linef("")
		if err := g.view(v); err != nil {
			return nil, err
		}
	}

	src, err := format.Source([]byte(g.b.String()))
	if err != nil {
		return nil, errors.Errorf("generate: formatting output for package %s: %w", f.Package, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("package", f.Package).
		Int("views", len(f.Views)).
		Int("bytes", len(src)).
		Msg("generated go source")
	return src, nil
}

type generator struct {
	b strings.Builder
}

func (g *generator) linef(format string, args ...any) {
	fmt.Fprintf(&g.b, format, args...)
	g.b.WriteByte('\n')
}

func (g *generator) view(v View) error {
	if v.Name == "" {
		return errors.New("generate: view with empty name")
	}
	g.linef("func %s(%s) html.Node {", v.Name, v.Params)
	g.linef("return html.Func(func(w *html.Writer) {")
	if err := g.instrs(v.Name, v.Instrs); err != nil {
		return err
	}
	g.linef("})")
	g.linef("}")
	return nil
}

func (g *generator) instrs(view string, instrs []ir.Instruction) error {
	for _, in := range instrs {
		switch in := in.(type) {
		case ir.WriteLiteral:
			g.linef("w.Raw(%q)", in.Text)

		case ir.WriteDynamic:
			if err := checkExpr(view, in.Expr); err != nil {
				return err
			}
			switch {
			case in.AttrName != "":
				g.linef("w.Attr(%q, %s)", in.AttrName, in.Expr)
			case in.Escape:
				g.linef("w.Value(%s)", in.Expr)
			default:
				g.linef("w.Unescaped(%s)", in.Expr)
			}

		case ir.Enter:
			if err := g.enter(view, in); err != nil {
				return err
			}

		default:
			return errors.Errorf("generate: view %s: unknown instruction %T", view, in)
		}
	}
	return nil
}

func (g *generator) enter(view string, in ir.Enter) error {
	switch in.Kind {
	case ir.EnterIf:
		for i, b := range in.Branches {
			switch {
			case i == 0:
				if err := checkExpr(view, b.Cond); err != nil {
					return err
				}
				g.linef("if %s {", b.Cond)
			case b.Cond != "":
				if err := checkExpr(view, b.Cond); err != nil {
					return err
				}
				g.linef("} else if %s {", b.Cond)
			default:
				g.linef("} else {")
			}
			if err := g.instrs(view, b.Body); err != nil {
				return err
			}
		}
		g.linef("}")
		return nil

	case ir.EnterMatch:
		if err := checkExpr(view, in.Subject); err != nil {
			return err
		}
		g.linef("switch %s {", in.Subject)
		for _, b := range in.Branches {
			if b.Pattern == "_" {
				g.linef("default:")
			} else {
				g.linef("case %s:", b.Pattern)
			}
			if err := g.instrs(view, b.Body); err != nil {
				return err
			}
		}
		g.linef("}")
		return nil

	case ir.EnterFor:
		if err := checkExpr(view, in.Subject); err != nil {
			return err
		}
		g.linef("for %s := range %s {", in.Binding, in.Subject)
		if err := g.instrs(view, in.Branches[0].Body); err != nil {
			return err
		}
		g.linef("}")
		return nil

	default:
		return errors.Errorf("generate: view %s: unknown control kind %v", view, in.Kind)
	}
}

// checkExpr rejects host text that is not a parseable Go expression before
// it reaches the output file, so the error points at the view instead of at
// gofmt failing on the whole file.
func checkExpr(view, expr string) error {
	if strings.TrimSpace(expr) == "" {
		return errors.Errorf("generate: view %s: empty expression", view)
	}
	if _, err := parser.ParseExpr(expr); err != nil {
		return errors.Errorf("generate: view %s: invalid expression %q: %w", view, expr, err)
	}
	return nil
}
