// Package gomponents is the alternate code generation backend: instead of
// writer calls against pkg/html it lowers each view body to a
// maragu.dev/gomponents expression. Escaping is delegated entirely to
// gomponents, so this backend consumes the tree before escape resolution.
package gomponents

import (
	"context"
	"fmt"
	goast "go/ast"
	"go/format"
	goparser "go/parser"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/godwitml/godwit/pkg/ast"
	"github.com/godwitml/godwit/pkg/codegen"
)

const (
	nodePkg = "maragu.dev/gomponents"
	htmlPkg = "maragu.dev/gomponents/html"
)

// View is one view declaration lowered by this backend. The tree must not
// have been through the escape resolver.
type View struct {
	Name   string
	Params string
	Tree   *ast.Tree
}

// File describes one generated output file.
type File struct {
	Package string
	Imports []string
	Views   []View
}

// Generate renders f as formatted Go source with one gomponents-returning
// function per view.
func Generate(ctx context.Context, f File) ([]byte, error) {
	if f.Package == "" {
		return nil, errors.New("generate: empty package name")
	}

	l := &lowerer{}
	var body strings.Builder
	for _, v := range f.Views {
		if v.Name == "" {
			return nil, errors.New("generate: view with empty name")
		}
		if v.Tree.Resolved {
			return nil, errors.Errorf("generate: view %s: tree is already escape-resolved", v.Name)
		}
		expr, err := l.group(v.Tree, v.Tree.Roots)
		if err != nil {
			return nil, errors.Errorf("generate: view %s: %w", v.Name, err)
		}
		fmt.Fprintf(&body, "\nfunc %s(%s) g.Node {\nreturn %s\n}\n", v.Name, v.Params, expr)
	}

	var out strings.Builder
	out.WriteString(codegen.Header)
	out.WriteString("\n\npackage " + f.Package + "\n\n")
	out.WriteString("import (\n")
	for _, imp := range f.Imports {
		fmt.Fprintf(&out, "%q\n", imp)
	}
	fmt.Fprintf(&out, "\ng %q\n", nodePkg)
	if l.usedHTML {
		fmt.Fprintf(&out, "h %q\n", htmlPkg)
	}
	out.WriteString(")\n")
	out.WriteString(body.String())

	src, err := format.Source([]byte(out.String()))
	if err != nil {
		return nil, errors.Errorf("generate: formatting output for package %s: %w", f.Package, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("package", f.Package).
		Int("views", len(f.Views)).
		Msg("generated gomponents source")
	return src, nil
}

type lowerer struct {
	usedHTML bool
}

// group lowers a node list to a single expression: nil when empty, the lone
// expression for one node, g.Group otherwise.
func (l *lowerer) group(tree *ast.Tree, ids []ast.NodeID) (string, error) {
	if len(ids) == 0 {
		return "nil", nil
	}
	if len(ids) == 1 {
		return l.node(tree, ids[0])
	}
	var elts []string
	for _, id := range ids {
		ex, err := l.node(tree, id)
		if err != nil {
			return "", err
		}
		elts = append(elts, ex)
	}
	return "g.Group([]g.Node{" + strings.Join(elts, ", ") + "})", nil
}

func (l *lowerer) node(tree *ast.Tree, id ast.NodeID) (string, error) {
	n := tree.Node(id)

	switch n.Kind {
	case ast.KindText:
		return fmt.Sprintf("g.Text(%q)", n.Text), nil

	case ast.KindExpr:
		ex, err := goparser.ParseExpr(n.Text)
		if err != nil {
			return "", errors.Errorf("invalid expression %q: %w", n.Text, err)
		}
		// Calls to uppercase identifiers are assumed to return a Node and
		// splice directly; everything else goes through g.Text and the Go
		// compiler enforces it is a string.
		if isLikelyNodeExpr(ex) {
			return n.Text, nil
		}
		return "g.Text(" + n.Text + ")", nil

	case ast.KindElement, ast.KindVoid:
		return l.element(tree, n)

	case ast.KindIf:
		return l.iif(tree, n)

	case ast.KindMatch:
		return l.match(tree, n)

	case ast.KindFor:
		return l.loop(tree, n)

	default:
		return "", errors.Errorf("cannot lower node kind %v", n.Kind)
	}
}

func (l *lowerer) element(tree *ast.Tree, n *ast.Node) (string, error) {
	var args []string
	for _, aid := range n.Attrs {
		ax, err := l.attr(tree.Attr(aid))
		if err != nil {
			return "", err
		}
		if ax != "" {
			args = append(args, ax)
		}
	}
	for _, cid := range n.Children {
		cx, err := l.node(tree, cid)
		if err != nil {
			return "", err
		}
		args = append(args, cx)
	}

	if fn := elementFunc(n.Name); fn != "" {
		l.usedHTML = true
		return "h." + fn + "(" + strings.Join(args, ", ") + ")", nil
	}
	all := append([]string{fmt.Sprintf("%q", n.Name)}, args...)
	return "g.El(" + strings.Join(all, ", ") + ")", nil
}

func (l *lowerer) attr(a *ast.Attr) (string, error) {
	switch a.Value.Kind {
	case ast.AttrImplicit:
		if fn := boolAttrFunc(a.Name); fn != "" {
			l.usedHTML = true
			return "h." + fn + "()", nil
		}
		return fmt.Sprintf("g.Attr(%q)", a.Name), nil

	case ast.AttrBool:
		if !a.Value.Bool {
			return "", nil
		}
		if fn := boolAttrFunc(a.Name); fn != "" {
			l.usedHTML = true
			return "h." + fn + "()", nil
		}
		return fmt.Sprintf("g.Attr(%q)", a.Name), nil

	case ast.AttrStatic:
		if fn := stringAttrFunc(a.Name); fn != "" {
			l.usedHTML = true
			return fmt.Sprintf("h.%s(%q)", fn, a.Value.Text), nil
		}
		return fmt.Sprintf("g.Attr(%q, %q)", a.Name, a.Value.Text), nil

	case ast.AttrDynamic:
		if _, err := goparser.ParseExpr(a.Value.Text); err != nil {
			return "", errors.Errorf("invalid attribute expression %q: %w", a.Value.Text, err)
		}
		if fn := boolAttrFunc(a.Name); fn != "" {
			l.usedHTML = true
			return fmt.Sprintf("g.If(%s, h.%s())", a.Value.Text, fn), nil
		}
		if fn := stringAttrFunc(a.Name); fn != "" {
			l.usedHTML = true
			return fmt.Sprintf("h.%s(%s)", fn, a.Value.Text), nil
		}
		return fmt.Sprintf("g.Attr(%q, %s)", a.Name, a.Value.Text), nil

	default:
		return "", errors.Errorf("unknown attribute kind %v", a.Value.Kind)
	}
}

// Control flow becomes an immediately invoked function returning g.Node;
// gomponents has no lazy conditional over opaque host expressions.
func (l *lowerer) iif(tree *ast.Tree, n *ast.Node) (string, error) {
	var b strings.Builder
	b.WriteString("func() g.Node {\n")
	for i, bid := range n.Branches {
		br := tree.Branch(bid)
		switch {
		case i == 0:
			if _, err := goparser.ParseExpr(br.Cond); err != nil {
				return "", errors.Errorf("invalid condition %q: %w", br.Cond, err)
			}
			fmt.Fprintf(&b, "if %s {\n", br.Cond)
		case br.Cond != "":
			if _, err := goparser.ParseExpr(br.Cond); err != nil {
				return "", errors.Errorf("invalid condition %q: %w", br.Cond, err)
			}
			fmt.Fprintf(&b, "} else if %s {\n", br.Cond)
		default:
			b.WriteString("} else {\n")
		}
		body, err := l.group(tree, br.Body)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "return %s\n", body)
	}
	b.WriteString("}\nreturn nil\n}()")
	return b.String(), nil
}

func (l *lowerer) match(tree *ast.Tree, n *ast.Node) (string, error) {
	if _, err := goparser.ParseExpr(n.Text); err != nil {
		return "", errors.Errorf("invalid match subject %q: %w", n.Text, err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "func() g.Node {\nswitch %s {\n", n.Text)
	for _, bid := range n.Branches {
		br := tree.Branch(bid)
		if br.Pattern == "_" {
			b.WriteString("default:\n")
		} else {
			fmt.Fprintf(&b, "case %s:\n", br.Pattern)
		}
		body, err := l.group(tree, br.Body)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "return %s\n", body)
	}
	b.WriteString("}\nreturn nil\n}()")
	return b.String(), nil
}

func (l *lowerer) loop(tree *ast.Tree, n *ast.Node) (string, error) {
	if _, err := goparser.ParseExpr(n.Text); err != nil {
		return "", errors.Errorf("invalid loop expression %q: %w", n.Text, err)
	}
	body, err := l.group(tree, tree.Branch(n.Branches[0]).Body)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("func() g.Node {\nvar nodes []g.Node\n")
	fmt.Fprintf(&b, "for %s := range %s {\n", n.Name, n.Text)
	fmt.Fprintf(&b, "nodes = append(nodes, %s)\n", body)
	b.WriteString("}\nreturn g.Group(nodes)\n}()")
	return b.String(), nil
}

// Calls to uppercase identifiers are assumed to return Node
// (Card(x), Layout(...), local components).
func isLikelyNodeExpr(ex goast.Expr) bool {
	call, ok := ex.(*goast.CallExpr)
	if !ok {
		return false
	}
	id, ok := call.Fun.(*goast.Ident)
	if !ok || id.Name == "" {
		return false
	}
	return id.Name[0] >= 'A' && id.Name[0] <= 'Z'
}

func elementFunc(tag string) string {
	switch tag {
	case "a":
		return "A"
	case "body":
		return "Body"
	case "br":
		return "Br"
	case "button":
		return "Button"
	case "div":
		return "Div"
	case "footer":
		return "Footer"
	case "form":
		return "Form"
	case "h1":
		return "H1"
	case "h2":
		return "H2"
	case "h3":
		return "H3"
	case "h4":
		return "H4"
	case "h5":
		return "H5"
	case "h6":
		return "H6"
	case "head":
		return "Head"
	case "header":
		return "Header"
	case "hr":
		return "Hr"
	case "html":
		return "HTML"
	case "img":
		return "Img"
	case "input":
		return "Input"
	case "label":
		return "Label"
	case "li":
		return "Li"
	case "main":
		return "Main"
	case "meta":
		return "Meta"
	case "nav":
		return "Nav"
	case "ol":
		return "Ol"
	case "p":
		return "P"
	case "section":
		return "Section"
	case "span":
		return "Span"
	case "table":
		return "Table"
	case "td":
		return "Td"
	case "th":
		return "Th"
	case "tr":
		return "Tr"
	case "ul":
		return "Ul"
	default:
		return ""
	}
}

func stringAttrFunc(key string) string {
	switch key {
	case "charset":
		return "Charset"
	case "class":
		return "Class"
	case "href":
		return "Href"
	case "id":
		return "ID"
	case "name":
		return "Name"
	case "placeholder":
		return "Placeholder"
	case "src":
		return "Src"
	case "type":
		return "Type"
	case "value":
		return "Value"
	default:
		return ""
	}
}

func boolAttrFunc(key string) string {
	switch key {
	case "checked":
		return "Checked"
	case "disabled":
		return "Disabled"
	case "required":
		return "Required"
	case "selected":
		return "Selected"
	default:
		return ""
	}
}
