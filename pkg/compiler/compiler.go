// Package compiler handles whole template files: the outer declaration
// format (package clause, imports, view declarations) and the pipeline that
// takes each view body through parsing, escape resolution, instruction
// emission, optimization and code generation.
package compiler

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/godwitml/godwit/pkg/ast"
	"github.com/godwitml/godwit/pkg/codegen"
	"github.com/godwitml/godwit/pkg/codegen/gomponents"
	"github.com/godwitml/godwit/pkg/diagnostic"
	"github.com/godwitml/godwit/pkg/ir"
	"github.com/godwitml/godwit/pkg/lexer"
	"github.com/godwitml/godwit/pkg/parser"
	"github.com/godwitml/godwit/pkg/position"
)

// Backend selects the code generation target.
type Backend string

const (
	// BackendWriter generates writer calls against pkg/html.
	BackendWriter Backend = "writer"
	// BackendGomponents generates maragu.dev/gomponents expressions.
	BackendGomponents Backend = "gomponents"
)

// ParseBackend validates a backend name from config or a flag.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendWriter:
		return BackendWriter, nil
	case BackendGomponents:
		return BackendGomponents, nil
	default:
		return "", errors.Errorf("unknown backend %q (want %q or %q)", s, BackendWriter, BackendGomponents)
	}
}

// ViewDecl is one view declaration in a template file.
type ViewDecl struct {
	Name   string
	Params string
	Span   position.Span
	Tree   *ast.Tree
}

// SourceFile is a parsed template file.
type SourceFile struct {
	Name    string
	Package string
	Imports []string
	Views   []ViewDecl
}

// ParseFile parses a whole template file: a required package clause,
// optional import lines, and one or more view declarations whose markup
// bodies are parsed through the markup parser with file-absolute positions.
func ParseFile(ctx context.Context, filename, src string) (*SourceFile, error) {
	toks, err := lexer.Lex(filename, src)
	if err != nil {
		return nil, err
	}

	p := &fileParser{ctx: ctx, src: src, toks: toks}
	f, err := p.file()
	if err != nil {
		return nil, err
	}
	f.Name = filename

	zerolog.Ctx(ctx).Debug().
		Str("file", filename).
		Str("package", f.Package).
		Int("views", len(f.Views)).
		Msg("parsed template file")
	return f, nil
}

// Options configures a compilation.
type Options struct {
	Backend Backend
	// Package overrides the file's package clause when non-empty.
	Package string
}

// Compile parses a template file and generates its Go source.
func Compile(ctx context.Context, filename, src string, opts Options) ([]byte, error) {
	f, err := ParseFile(ctx, filename, src)
	if err != nil {
		return nil, err
	}
	return f.Generate(ctx, opts)
}

// Generate runs every view through the selected backend and renders one
// generated file. Any view failing aborts the whole file.
func (f *SourceFile) Generate(ctx context.Context, opts Options) ([]byte, error) {
	pkg := f.Package
	if opts.Package != "" {
		pkg = opts.Package
	}

	switch opts.Backend {
	case BackendGomponents:
		out := gomponents.File{Package: pkg, Imports: f.Imports}
		for _, v := range f.Views {
			out.Views = append(out.Views, gomponents.View{Name: v.Name, Params: v.Params, Tree: v.Tree})
		}
		return gomponents.Generate(ctx, out)

	case BackendWriter, "":
		out := codegen.File{Package: pkg, Imports: f.Imports}
		for _, v := range f.Views {
			instrs, err := ir.Emit(ctx, v.Tree)
			if err != nil {
				return nil, errors.Errorf("compiling view %s: %w", v.Name, err)
			}
			out.Views = append(out.Views, codegen.View{
				Name:   v.Name,
				Params: v.Params,
				Instrs: ir.Optimize(instrs),
			})
		}
		return codegen.Generate(ctx, out)

	default:
		return nil, errors.Errorf("unknown backend %q", opts.Backend)
	}
}

// fileParser parses the outer declaration structure. View bodies are handed
// to the markup parser as token sub-slices, so every span stays absolute in
// the file.
type fileParser struct {
	ctx  context.Context
	src  string
	toks []lexer.Token
	pos  int
}

func (p *fileParser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *fileParser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *fileParser) skipNewlines() {
	for p.cur().Type == lexer.TypeNewline {
		p.advance()
	}
}

func (p *fileParser) errf(span position.Span, format string, args ...any) error {
	return diagnostic.NewSyntaxError(p.src, span, format, args...)
}

func (p *fileParser) errAtCur(format string, args ...any) error {
	return p.errf(lexer.Span(p.cur()), format, args...)
}

func (p *fileParser) file() (*SourceFile, error) {
	f := &SourceFile{}

	p.skipNewlines()
	if !lexer.IsKeyword(p.cur(), "package") {
		return nil, p.errAtCur("template file must start with a package clause")
	}
	p.advance()
	if p.cur().Type != lexer.TypeIdent {
		return nil, p.errAtCur("expected package name, found %q", p.cur().Value)
	}
	f.Package = p.cur().Value
	p.advance()

	for {
		p.skipNewlines()
		tok := p.cur()

		switch {
		case tok.EOF():
			if len(f.Views) == 0 {
				return nil, p.errAtCur("template file declares no views")
			}
			return f, nil

		case lexer.IsKeyword(tok, "import"):
			p.advance()
			lit := p.cur()
			if lit.Type != lexer.TypeString {
				return nil, p.errAtCur("expected quoted import path, found %q", lit.Value)
			}
			path, err := strconv.Unquote(lit.Value)
			if err != nil || path == "" {
				return nil, p.errf(lexer.Span(lit), "invalid import path %s", lit.Value)
			}
			f.Imports = append(f.Imports, path)
			p.advance()

		case lexer.IsKeyword(tok, "view"):
			v, err := p.view()
			if err != nil {
				return nil, err
			}
			f.Views = append(f.Views, v)

		default:
			return nil, p.errAtCur("expected 'import' or 'view' declaration, found %q", tok.Value)
		}
	}
}

func (p *fileParser) view() (ViewDecl, error) {
	start := p.cur().Pos.Offset
	p.advance() // consume 'view'

	name := p.cur()
	if name.Type != lexer.TypeIdent {
		return ViewDecl{}, p.errAtCur("expected view name, found %q", name.Value)
	}
	p.advance()

	params, err := p.paramList(name.Value)
	if err != nil {
		return ViewDecl{}, err
	}

	p.skipNewlines()
	open := p.cur()
	if !lexer.IsPunct(open, '{') {
		return ViewDecl{}, p.errAtCur("expected '{' to open body of view %s", name.Value)
	}
	p.advance()

	// Collect the body as a token sub-slice up to the matching close brace.
	// String and host-expression tokens cannot contain brace punctuation, so
	// counting brace tokens is exact.
	bodyStart := p.pos
	depth := 1
	for {
		tok := p.cur()
		if tok.EOF() {
			return ViewDecl{}, p.errf(lexer.Span(open), "unterminated body of view %s", name.Value)
		}
		if lexer.IsPunct(tok, '{') {
			depth++
		} else if lexer.IsPunct(tok, '}') {
			depth--
			if depth == 0 {
				break
			}
		}
		p.advance()
	}
	closeTok := p.cur()
	body := make([]lexer.Token, p.pos-bodyStart, p.pos-bodyStart+1)
	copy(body, p.toks[bodyStart:p.pos])
	body = append(body, lexer.EOFToken(closeTok.Pos))
	p.advance() // consume '}'

	tree, err := parser.ParseTokens(p.ctx, p.src, body)
	if err != nil {
		return ViewDecl{}, err
	}

	return ViewDecl{
		Name:   name.Value,
		Params: params,
		Span:   position.NewSpan(start, closeTok.Pos.Offset+1),
		Tree:   tree,
	}, nil
}

// paramList consumes '(' ... ')' and returns the verbatim inner text.
func (p *fileParser) paramList(view string) (string, error) {
	open := p.cur()
	if !lexer.IsPunct(open, '(') {
		return "", p.errAtCur("expected '(' after view name %s", view)
	}
	p.advance()

	startOff := open.Pos.Offset + 1
	depth := 1
	var endOff int
	for {
		tok := p.cur()
		if tok.EOF() {
			return "", p.errf(lexer.Span(open), "unterminated parameter list of view %s", view)
		}
		if lexer.IsPunct(tok, '(') {
			depth++
		} else if lexer.IsPunct(tok, ')') {
			depth--
			if depth == 0 {
				endOff = tok.Pos.Offset
				p.advance()
				break
			}
		}
		p.advance()
	}

	return strings.TrimSpace(p.src[startOff:endOff]), nil
}
