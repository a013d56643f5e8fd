package compiler

import (
	"context"
	"go/format"
	goparser "go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwitml/godwit/pkg/ast"
	"github.com/godwitml/godwit/pkg/diagnostic"
)

const greetingSrc = `package views

import "strconv"

view Greeting(name string) {
	h1 { "Hello, " @name }
}

view Count(n int) {
	span { @strconv.Itoa(n) }
}
`

func TestParseFile(t *testing.T) {
	f, err := ParseFile(context.Background(), "greeting.gw", greetingSrc)
	require.NoError(t, err)

	require.Equal(t, "views", f.Package)
	require.Equal(t, []string{"strconv"}, f.Imports)
	require.Len(t, f.Views, 2)

	require.Equal(t, "Greeting", f.Views[0].Name)
	require.Equal(t, "name string", f.Views[0].Params)
	require.Equal(t, "Count", f.Views[1].Name)
	require.Equal(t, "n int", f.Views[1].Params)
}

func TestParseFileViewBody(t *testing.T) {
	f, err := ParseFile(context.Background(), "greeting.gw", greetingSrc)
	require.NoError(t, err)

	tree := f.Views[0].Tree
	require.Len(t, tree.Roots, 1)

	h1 := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindElement, h1.Kind)
	require.Equal(t, "h1", h1.Name)
	require.Len(t, h1.Children, 2)
	require.Equal(t, ast.KindText, tree.Node(h1.Children[0]).Kind)
	require.Equal(t, ast.KindExpr, tree.Node(h1.Children[1]).Kind)
	require.Equal(t, "name", tree.Node(h1.Children[1]).Text)
}

func TestParseFileSpansAreFileAbsolute(t *testing.T) {
	f, err := ParseFile(context.Background(), "greeting.gw", greetingSrc)
	require.NoError(t, err)

	h1 := f.Views[0].Tree.Node(f.Views[0].Tree.Roots[0])
	require.Equal(t, `h1 { "Hello, " @name }`, h1.Span.Text(greetingSrc))
}

func TestParseFileNoParams(t *testing.T) {
	f, err := ParseFile(context.Background(), "t.gw", "package p\nview Home() { p { \"hi\" } }\n")
	require.NoError(t, err)
	require.Equal(t, "", f.Views[0].Params)
}

func TestParseFileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing_package",
			src:  `view V() { p { "x" } }`,
			want: "package clause",
		},
		{
			name: "no_views",
			src:  "package p\n",
			want: "declares no views",
		},
		{
			name: "stray_declaration",
			src:  "package p\nfunc x() {}\n",
			want: "expected 'import' or 'view'",
		},
		{
			name: "missing_param_list",
			src:  "package p\nview V { p { \"x\" } }\n",
			want: "expected '('",
		},
		{
			name: "unterminated_body",
			src:  "package p\nview V() { p { \"x\" }\n",
			want: "unterminated body",
		},
		{
			name: "bad_import",
			src:  "package p\nimport strconv\nview V() { p { \"x\" } }\n",
			want: "quoted import path",
		},
		{
			name: "markup_error_inside_view",
			src:  "package p\nview V() { input[checked] { \"x\" } }\n",
			want: "cannot have a body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile(context.Background(), "t.gw", tt.src)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)

			var synErr *diagnostic.SyntaxError
			require.ErrorAs(t, err, &synErr)
		})
	}
}

func TestCompileWriterBackend(t *testing.T) {
	out, err := Compile(context.Background(), "greeting.gw", greetingSrc, Options{Backend: BackendWriter})
	require.NoError(t, err)

	src := string(out)
	require.Contains(t, src, "package views")
	require.Contains(t, src, "func Greeting(name string) html.Node {")
	require.Contains(t, src, `w.Raw("<h1>Hello, ")`)
	require.Contains(t, src, "w.Value(name)")
	require.Contains(t, src, "func Count(n int) html.Node {")
	require.Contains(t, src, "w.Value(strconv.Itoa(n))")

	_, err = goparser.ParseFile(token.NewFileSet(), "greeting.gw.go", out, 0)
	require.NoError(t, err)

	again, err := format.Source(out)
	require.NoError(t, err)
	require.Equal(t, string(out), string(again))
}

func TestCompileGomponentsBackend(t *testing.T) {
	out, err := Compile(context.Background(), "greeting.gw", greetingSrc, Options{Backend: BackendGomponents})
	require.NoError(t, err)

	src := string(out)
	require.Contains(t, src, "func Greeting(name string) g.Node {")
	require.Contains(t, src, `h.H1(g.Text("Hello, "), g.Text(name))`)
}

func TestCompilePackageOverride(t *testing.T) {
	out, err := Compile(context.Background(), "greeting.gw", greetingSrc, Options{Package: "templates"})
	require.NoError(t, err)
	require.Contains(t, string(out), "package templates")
}

func TestCompileStaticDocument(t *testing.T) {
	src := `package views

view Doc() {
	"!DOCTYPE"[html];
	meta[charset="UTF-8"];
}
`
	out, err := Compile(context.Background(), "doc.gw", src, Options{})
	require.NoError(t, err)

	require.Contains(t, string(out), `w.Raw("<!DOCTYPE html><meta charset=\"UTF-8\">")`)
	require.NotContains(t, string(out), "w.Value")
}

func TestCompileLoop(t *testing.T) {
	src := `package views

view List(items []string) {
	ul {
		@for _, item in items {
			li { @item }
		}
	}
}
`
	out, err := Compile(context.Background(), "list.gw", src, Options{})
	require.NoError(t, err)

	require.Contains(t, string(out), `w.Raw("<ul>")`)
	require.Contains(t, string(out), "for _, item := range items {")
	require.Contains(t, string(out), `w.Raw("<li>")`)
	require.Contains(t, string(out), "w.Value(item)")
	require.Contains(t, string(out), `w.Raw("</ul>")`)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	require.Equal(t, BackendWriter, b)

	b, err = ParseBackend("gomponents")
	require.NoError(t, err)
	require.Equal(t, BackendGomponents, b)

	_, err = ParseBackend("jsx")
	require.Error(t, err)
}
