package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwitml/godwit/pkg/ast"
	"github.com/godwitml/godwit/pkg/diagnostic"
)

func parse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := Parse(context.Background(), "test.gw", src)
	require.NoError(t, err, "parsing should succeed")
	return tree
}

func TestParseElement(t *testing.T) {
	tree := parse(t, `h1 { "Hello, World!" }`)
	require.Len(t, tree.Roots, 1)

	el := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindElement, el.Kind)
	require.Equal(t, "h1", el.Name)
	require.Len(t, el.Children, 1)

	text := tree.Node(el.Children[0])
	require.Equal(t, ast.KindText, text.Kind)
	require.Equal(t, "Hello, World!", text.Text)
	require.Equal(t, `"Hello, World!"`, text.Span.Text(tree.Source))
}

func TestParseVoidElement(t *testing.T) {
	tree := parse(t, `meta[charset="UTF-8"];`)
	require.Len(t, tree.Roots, 1)

	el := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindVoid, el.Kind)
	require.Equal(t, "meta", el.Name)
	require.Empty(t, el.Children)
	require.Len(t, el.Attrs, 1)

	attr := tree.Attr(el.Attrs[0])
	require.Equal(t, "charset", attr.Name)
	require.Equal(t, ast.AttrStatic, attr.Value.Kind)
	require.Equal(t, "UTF-8", attr.Value.Text)
}

func TestParseAttributes(t *testing.T) {
	tree := parse(t, `input["type"="checkbox", checked, disabled=true, hidden=false, value={v + 1}];`)
	el := tree.Node(tree.Roots[0])
	require.Len(t, el.Attrs, 5)

	typ := tree.Attr(el.Attrs[0])
	require.Equal(t, "type", typ.Name)
	require.Equal(t, ast.AttrStatic, typ.Value.Kind)
	require.Equal(t, "checkbox", typ.Value.Text)

	checked := tree.Attr(el.Attrs[1])
	require.Equal(t, "checked", checked.Name)
	require.Equal(t, ast.AttrImplicit, checked.Value.Kind)

	disabled := tree.Attr(el.Attrs[2])
	require.Equal(t, ast.AttrBool, disabled.Value.Kind)
	require.True(t, disabled.Value.Bool)

	hidden := tree.Attr(el.Attrs[3])
	require.Equal(t, ast.AttrBool, hidden.Value.Kind)
	require.False(t, hidden.Value.Bool)

	value := tree.Attr(el.Attrs[4])
	require.Equal(t, ast.AttrDynamic, value.Value.Kind)
	require.Equal(t, "v + 1", value.Value.Text)
}

func TestParseStringElementName(t *testing.T) {
	tree := parse(t, `"!DOCTYPE"[html];`)
	el := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindVoid, el.Kind)
	require.Equal(t, "!DOCTYPE", el.Name)
}

func TestStaticDynamicFork(t *testing.T) {
	// The same literal is static text without the marker and a dynamic
	// expression with it.
	tree := parse(t, "h1 { \"Hello\" }\nh1 { @\"Hello\" }")
	require.Len(t, tree.Roots, 2)

	static := tree.Node(tree.Node(tree.Roots[0]).Children[0])
	require.Equal(t, ast.KindText, static.Kind)
	require.Equal(t, "Hello", static.Text)

	dynamic := tree.Node(tree.Node(tree.Roots[1]).Children[0])
	require.Equal(t, ast.KindExpr, dynamic.Kind)
	require.Equal(t, `"Hello"`, dynamic.Text)
}

func TestParseBareExpression(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "identifier", input: "span { @name }", expected: "name"},
		{name: "binary_expression", input: "span { @x + 2 }", expected: "x + 2"},
		{name: "call", input: "span { @f(a, b) }", expected: "f(a, b)"},
		{name: "braced_block", input: "span { @{ x + 2 } }", expected: "x + 2"},
		{name: "index_expression", input: "span { @xs[0] }", expected: "xs[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.input)
			el := tree.Node(tree.Roots[0])
			require.Len(t, el.Children, 1)
			expr := tree.Node(el.Children[0])
			require.Equal(t, ast.KindExpr, expr.Kind)
			require.Equal(t, tt.expected, expr.Text)
		})
	}
}

func TestAdjacentBareExpressions(t *testing.T) {
	tree := parse(t, `p { @x @y }`)
	el := tree.Node(tree.Roots[0])
	require.Len(t, el.Children, 2)

	first := tree.Node(el.Children[0])
	require.Equal(t, ast.KindExpr, first.Kind)
	require.Equal(t, "x", first.Text)

	second := tree.Node(el.Children[1])
	require.Equal(t, ast.KindExpr, second.Kind)
	require.Equal(t, "y", second.Text)
}

func TestBareExpressionStopsAtNewline(t *testing.T) {
	tree := parse(t, "div {\n@count\n\"items\"\n}")
	el := tree.Node(tree.Roots[0])
	require.Len(t, el.Children, 2)
	require.Equal(t, ast.KindExpr, tree.Node(el.Children[0]).Kind)
	require.Equal(t, "count", tree.Node(el.Children[0]).Text)
	require.Equal(t, ast.KindText, tree.Node(el.Children[1]).Kind)
}

func TestParseIfChain(t *testing.T) {
	src := `@if x > 8 {
		h1 { "big" }
	} else if x < 2 {
		h2 { "small" }
	} else {
		h3 { "medium" }
	}`
	tree := parse(t, src)

	n := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindIf, n.Kind)
	require.Len(t, n.Branches, 3)

	require.Equal(t, "x > 8", tree.Branch(n.Branches[0]).Cond)
	require.Equal(t, "x < 2", tree.Branch(n.Branches[1]).Cond)
	require.Equal(t, "", tree.Branch(n.Branches[2]).Cond)
	require.Len(t, tree.Branch(n.Branches[2]).Body, 1)
}

func TestParseIfWithoutElse(t *testing.T) {
	tree := parse(t, `@if ok { "yes" }`)
	n := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindIf, n.Kind)
	require.Len(t, n.Branches, 1)
	require.Equal(t, "ok", tree.Branch(n.Branches[0]).Cond)
}

func TestParseFor(t *testing.T) {
	tree := parse(t, `@for i, item in items { li { @item } }`)
	n := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindFor, n.Kind)
	require.Equal(t, "i, item", n.Name)
	require.Equal(t, "items", n.Text)
	require.Len(t, n.Branches, 1)
	require.Len(t, tree.Branch(n.Branches[0]).Body, 1)
}

func TestParseMatch(t *testing.T) {
	src := `@match status {
		"active" => {
			span { "on" }
		}
		_ => "off",
	}`
	tree := parse(t, src)

	n := tree.Node(tree.Roots[0])
	require.Equal(t, ast.KindMatch, n.Kind)
	require.Equal(t, "status", n.Text)
	require.Len(t, n.Branches, 2)

	first := tree.Branch(n.Branches[0])
	require.Equal(t, `"active"`, first.Pattern)
	require.Len(t, first.Body, 1)

	// The bare string arm body desugars to a single text node.
	second := tree.Branch(n.Branches[1])
	require.Equal(t, "_", second.Pattern)
	require.Len(t, second.Body, 1)
	arm := tree.Node(second.Body[0])
	require.Equal(t, ast.KindText, arm.Kind)
	require.Equal(t, "off", arm.Text)
}

func TestParseNested(t *testing.T) {
	src := `html[lang="en"] {
		head {
			meta[charset="UTF-8"];
			title { "godwit" }
		}
		body {
			main {
				@body
			}
		}
	}`
	tree := parse(t, src)

	html := tree.Node(tree.Roots[0])
	require.Equal(t, "html", html.Name)
	require.Len(t, html.Children, 2)

	head := tree.Node(html.Children[0])
	require.Equal(t, "head", head.Name)
	require.Len(t, head.Children, 2)
	require.Equal(t, ast.KindVoid, tree.Node(head.Children[0]).Kind)

	title := tree.Node(head.Children[1])
	require.Equal(t, "title", title.Name)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{name: "void_with_body", input: "br; { }", contains: "void element"},
		{name: "unterminated_block", input: `div { "x"`, contains: "unterminated block"},
		{name: "unterminated_attrs", input: `div[a="1"`, contains: "unterminated attribute list"},
		{name: "bare_identifier_content", input: "div { oops }", contains: "bare identifier"},
		{name: "missing_expression", input: "div { @ }", contains: "expected expression"},
		{name: "empty_braced_expression", input: "div { @{} }", contains: "empty expression"},
		{name: "bad_attr_value", input: "div[a=;] { }", contains: "attribute value"},
		{name: "missing_if_body", input: "@if x", contains: "missing '{'"},
		{name: "malformed_match_arm", input: "@match x { 1 }", contains: "match arm"},
		{name: "bad_for_binding", input: "@for 1 in xs { }", contains: "for binding"},
		{name: "mismatched_bracket", input: "@if (x] { }", contains: "mismatched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), "test.gw", tt.input)
			require.Error(t, err)

			var serr *diagnostic.SyntaxError
			require.ErrorAs(t, err, &serr, "error should be a SyntaxError: %v", err)
			require.Contains(t, serr.Error(), tt.contains)
			require.GreaterOrEqual(t, serr.Range.Start.Line, 1, "error should carry a location")
		})
	}
}

func TestDynamicNameIsUnsupported(t *testing.T) {
	_, err := Parse(context.Background(), "test.gw", "div[{expr}=\"x\"] { }")
	require.Error(t, err)

	var uerr *diagnostic.UnsupportedConstructError
	require.ErrorAs(t, err, &uerr)
	require.Contains(t, uerr.Error(), "compile time")
}

func TestErrorSpanLocation(t *testing.T) {
	_, err := Parse(context.Background(), "test.gw", "div {\n  br; { }\n}")
	require.Error(t, err)

	var serr *diagnostic.SyntaxError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, 2, serr.Range.Start.Line)
}
