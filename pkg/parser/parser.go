// Package parser builds the AST for the markup notation by recursive
// descent over the token stream.
//
// Host-language expressions (interpolation bodies, dynamic attribute values,
// conditions, match patterns, iterables) are never interpreted here: the
// parser only finds where they start and end, tracking bracket nesting, and
// recovers their text verbatim from the source.
//
// Each template is parsed as a single atomic unit: the first grammar
// violation aborts with a span-located SyntaxError, with no recovery.
package parser

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/godwitml/godwit/pkg/ast"
	"github.com/godwitml/godwit/pkg/diagnostic"
	"github.com/godwitml/godwit/pkg/lexer"
	"github.com/godwitml/godwit/pkg/position"
)

// Parse lexes and parses one template's markup source into a Tree.
func Parse(ctx context.Context, filename, src string) (*ast.Tree, error) {
	toks, err := lexer.Lex(filename, src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(ctx, src, toks)
}

// ParseTokens parses a pre-lexed token stream. Token offsets must index into
// src; this lets a caller lex a whole file once and parse embedded markup
// regions without losing absolute positions.
func ParseTokens(ctx context.Context, src string, toks []lexer.Token) (*ast.Tree, error) {
	p := &parser{src: src, toks: toks, tree: ast.NewTree(src)}

	roots, err := p.parseGroup(0)
	if err != nil {
		return nil, err
	}
	p.tree.Roots = roots

	zerolog.Ctx(ctx).Debug().
		Int("nodes", p.tree.Len()).
		Int("roots", len(roots)).
		Msg("parsed markup")

	return p.tree, nil
}

type parser struct {
	src  string
	toks []lexer.Token
	pos  int
	tree *ast.Tree

	// lastEnd is the end offset of the most recently consumed token, used
	// to close node spans.
	lastEnd int
}

func (p *parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *parser) advance() {
	tok := p.toks[p.pos]
	p.lastEnd = tok.Pos.Offset + len(tok.Value)
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *parser) skipNewlines() {
	for p.cur().Type == lexer.TypeNewline {
		p.advance()
	}
}

// peekNonNewline returns the first token at or after index i that is not a
// newline, without consuming anything.
func (p *parser) peekNonNewline(i int) lexer.Token {
	for ; i < len(p.toks)-1; i++ {
		if p.toks[i].Type != lexer.TypeNewline {
			return p.toks[i]
		}
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) syntaxErrf(span position.Span, format string, args ...any) error {
	return diagnostic.NewSyntaxError(p.src, span, format, args...)
}

func (p *parser) errAtCur(format string, args ...any) error {
	return p.syntaxErrf(lexer.Span(p.cur()), format, args...)
}

// parseGroup parses nodes until the given closing punctuation (0 means until
// end of input). The closer is consumed.
func (p *parser) parseGroup(closer byte) ([]ast.NodeID, error) {
	var ids []ast.NodeID
	for {
		p.skipNewlines()
		tok := p.cur()

		if closer == 0 && tok.EOF() {
			return ids, nil
		}
		if closer != 0 && lexer.IsPunct(tok, closer) {
			p.advance()
			return ids, nil
		}
		if tok.EOF() {
			return nil, p.errAtCur("unterminated block: missing %q", string(closer))
		}

		id, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
}

func (p *parser) parseNode() (ast.NodeID, error) {
	tok := p.cur()

	switch {
	case tok.Type == lexer.TypeIdent || tok.Type == lexer.TypeString:
		if p.looksLikeElement() {
			return p.parseElement()
		}
		if tok.Type == lexer.TypeString {
			text, err := p.unquote(tok)
			if err != nil {
				return 0, err
			}
			p.advance()
			return p.tree.AddNode(ast.Node{
				Kind: ast.KindText,
				Span: lexer.Span(tok),
				Text: text,
			}), nil
		}
		return 0, p.errAtCur("bare identifier %q is not valid content; quote it for text or give it a body for an element", tok.Value)

	case lexer.IsPunct(tok, '@'):
		return p.parseInterp()

	default:
		return 0, p.errAtCur("expected an element, a string literal, or an @-interpolation, found %q", tok.Value)
	}
}

// looksLikeElement reports whether the tokens at the cursor form an element:
// a name followed (after an optional bracketed attribute list) by '{' or
// ';'. This mirrors the grammar's static/dynamic fork: the same string
// literal is text when nothing element-shaped follows it.
func (p *parser) looksLikeElement() bool {
	i := p.pos + 1

	next := p.peekNonNewline(i)
	if lexer.IsPunct(next, '{') || lexer.IsPunct(next, ';') {
		return true
	}
	if !lexer.IsPunct(next, '[') {
		return false
	}

	// Skip the balanced attribute list.
	depth := 0
	for ; i < len(p.toks)-1; i++ {
		tok := p.toks[i]
		if lexer.IsPunct(tok, '[') {
			depth++
		} else if lexer.IsPunct(tok, ']') {
			depth--
			if depth == 0 {
				i++
				break
			}
		}
	}

	after := p.peekNonNewline(i)
	return lexer.IsPunct(after, '{') || lexer.IsPunct(after, ';')
}

func (p *parser) parseElement() (ast.NodeID, error) {
	start := p.cur().Pos.Offset

	name, _, err := p.parseName("element")
	if err != nil {
		return 0, err
	}

	var attrs []ast.AttrID
	p.skipNewlines()
	if lexer.IsPunct(p.cur(), '[') {
		attrs, err = p.parseAttrs()
		if err != nil {
			return 0, err
		}
	}

	p.skipNewlines()
	tok := p.cur()
	switch {
	case lexer.IsPunct(tok, ';'):
		p.advance()
		// A void element must not be given a body.
		if next := p.peekNonNewline(p.pos); lexer.IsPunct(next, '{') {
			return 0, p.syntaxErrf(lexer.Span(next), "void element %q cannot have a body", name)
		}
		return p.tree.AddNode(ast.Node{
			Kind:  ast.KindVoid,
			Span:  position.NewSpan(start, p.lastEnd),
			Name:  name,
			Attrs: attrs,
		}), nil

	case lexer.IsPunct(tok, '{'):
		p.advance()
		children, err := p.parseGroup('}')
		if err != nil {
			return 0, err
		}
		return p.tree.AddNode(ast.Node{
			Kind:     ast.KindElement,
			Span:     position.NewSpan(start, p.lastEnd),
			Name:     name,
			Attrs:    attrs,
			Children: children,
		}), nil

	default:
		return 0, p.errAtCur("expected '{' or ';' after element name %q", name)
	}
}

// parseName consumes a compile-time-resolvable name: a bare identifier or a
// quoted string.
func (p *parser) parseName(what string) (string, position.Span, error) {
	tok := p.cur()
	span := lexer.Span(tok)

	switch {
	case tok.Type == lexer.TypeIdent:
		p.advance()
		return tok.Value, span, nil

	case tok.Type == lexer.TypeString:
		s, err := p.unquote(tok)
		if err != nil {
			return "", span, err
		}
		if s == "" {
			return "", span, p.syntaxErrf(span, "empty %s name", what)
		}
		p.advance()
		return s, span, nil

	case lexer.IsPunct(tok, '{'):
		return "", span, diagnostic.NewUnsupportedConstructError(p.src, span,
			"%s names must be resolvable at compile time; a braced expression is not allowed here", what)

	default:
		return "", span, p.syntaxErrf(span, "expected %s name, found %q", what, tok.Value)
	}
}

func (p *parser) parseAttrs() ([]ast.AttrID, error) {
	p.advance() // consume '['

	var ids []ast.AttrID
	for {
		p.skipNewlines()
		tok := p.cur()

		if lexer.IsPunct(tok, ']') {
			p.advance()
			return ids, nil
		}
		if tok.EOF() {
			return nil, p.errAtCur("unterminated attribute list: missing %q", "]")
		}

		start := tok.Pos.Offset
		name, _, err := p.parseName("attribute")
		if err != nil {
			return nil, err
		}

		value := ast.AttrValue{Kind: ast.AttrImplicit}
		p.skipNewlines()
		if lexer.IsPunct(p.cur(), '=') {
			p.advance()
			p.skipNewlines()
			value, err = p.parseAttrValue()
			if err != nil {
				return nil, err
			}
		}

		ids = append(ids, p.tree.AddAttr(ast.Attr{
			Span:  position.NewSpan(start, p.lastEnd),
			Name:  name,
			Value: value,
		}))

		p.skipNewlines()
		switch {
		case lexer.IsPunct(p.cur(), ','):
			p.advance()
		case lexer.IsPunct(p.cur(), ']'):
			p.advance()
			return ids, nil
		default:
			return nil, p.errAtCur("expected ',' or ']' in attribute list, found %q", p.cur().Value)
		}
	}
}

func (p *parser) parseAttrValue() (ast.AttrValue, error) {
	tok := p.cur()
	span := lexer.Span(tok)

	switch {
	case tok.Type == lexer.TypeString:
		text, err := p.unquote(tok)
		if err != nil {
			return ast.AttrValue{}, err
		}
		p.advance()
		return ast.AttrValue{Kind: ast.AttrStatic, Span: span, Text: text}, nil

	case lexer.IsKeyword(tok, "true"), lexer.IsKeyword(tok, "false"):
		p.advance()
		return ast.AttrValue{Kind: ast.AttrBool, Span: span, Bool: tok.Value == "true"}, nil

	case lexer.IsPunct(tok, '{'):
		text, exprSpan, err := p.bracedExpr()
		if err != nil {
			return ast.AttrValue{}, err
		}
		return ast.AttrValue{Kind: ast.AttrDynamic, Span: exprSpan, Text: text}, nil

	default:
		return ast.AttrValue{}, p.syntaxErrf(span,
			"attribute value must be a string literal, true, false, or a braced expression, found %q", tok.Value)
	}
}

func (p *parser) parseInterp() (ast.NodeID, error) {
	at := p.cur()
	start := at.Pos.Offset
	p.advance() // consume '@'

	tok := p.cur()
	switch {
	case lexer.IsKeyword(tok, "if"):
		return p.parseIf(start)
	case lexer.IsKeyword(tok, "match"):
		return p.parseMatch(start)
	case lexer.IsKeyword(tok, "for"):
		return p.parseFor(start)
	case lexer.IsPunct(tok, '{'):
		text, _, err := p.bracedExpr()
		if err != nil {
			return 0, err
		}
		return p.tree.AddNode(ast.Node{
			Kind: ast.KindExpr,
			Span: position.NewSpan(start, p.lastEnd),
			Text: text,
		}), nil
	default:
		return p.parseBareExpr(start)
	}
}

// parseBareExpr consumes an undelimited interpolated expression. It extends
// to the end of the line, to a ',', ';' or closing bracket belonging to the
// enclosing construct, or to the start of the next node (a '@' marker, or an
// atom directly following another atom, cannot continue an expression),
// whichever comes first.
func (p *parser) parseBareExpr(start int) (ast.NodeID, error) {
	first := p.cur()
	if first.EOF() || first.Type == lexer.TypeNewline {
		return 0, p.syntaxErrf(position.NewSpan(start, start+1), "expected expression after '@'")
	}

	startOff := first.Pos.Offset
	endOff := startOff
	var nest nesting
	prevAtom := false

	for {
		tok := p.cur()
		if tok.EOF() {
			break
		}
		if tok.Type == lexer.TypeNewline {
			if nest.depth() == 0 {
				break
			}
			p.advance()
			continue
		}
		if lexer.IsPunct(tok, '@') && nest.depth() == 0 {
			break
		}
		atom := tok.Type == lexer.TypeIdent || tok.Type == lexer.TypeString
		if atom && prevAtom && nest.depth() == 0 {
			break
		}
		if isOpener(tok) {
			nest.push(tok)
		} else if isCloser(tok) || lexer.IsPunct(tok, ',') || lexer.IsPunct(tok, ';') {
			if nest.depth() == 0 {
				break
			}
			if isCloser(tok) && !nest.pop(tok.Value[0]) {
				return 0, p.errAtCur("mismatched %q in expression", tok.Value)
			}
		}
		prevAtom = atom || (isCloser(tok) && nest.depth() == 0)
		endOff = tok.Pos.Offset + len(tok.Value)
		p.advance()
	}

	text := strings.TrimSpace(p.src[startOff:endOff])
	if text == "" {
		return 0, p.syntaxErrf(position.NewSpan(start, start+1), "expected expression after '@'")
	}

	return p.tree.AddNode(ast.Node{
		Kind: ast.KindExpr,
		Span: position.NewSpan(start, endOff),
		Text: text,
	}), nil
}

func (p *parser) parseIf(start int) (ast.NodeID, error) {
	p.advance() // consume 'if'

	var branches []ast.BranchID
	cond, err := p.headExpr("if condition")
	if err != nil {
		return 0, err
	}
	body, bodySpan, err := p.bracedGroup()
	if err != nil {
		return 0, err
	}
	branches = append(branches, p.tree.AddBranch(ast.Branch{Span: bodySpan, Cond: cond, Body: body}))

	for {
		save, saveEnd := p.pos, p.lastEnd
		p.skipNewlines()
		if !lexer.IsKeyword(p.cur(), "else") {
			p.pos, p.lastEnd = save, saveEnd
			break
		}
		p.advance() // consume 'else'
		p.skipNewlines()

		if lexer.IsKeyword(p.cur(), "if") {
			p.advance()
			cond, err := p.headExpr("else-if condition")
			if err != nil {
				return 0, err
			}
			body, bodySpan, err := p.bracedGroup()
			if err != nil {
				return 0, err
			}
			branches = append(branches, p.tree.AddBranch(ast.Branch{Span: bodySpan, Cond: cond, Body: body}))
			continue
		}

		if !lexer.IsPunct(p.cur(), '{') {
			return 0, p.errAtCur("expected 'if' or '{' after 'else', found %q", p.cur().Value)
		}
		body, bodySpan, err := p.bracedGroup()
		if err != nil {
			return 0, err
		}
		branches = append(branches, p.tree.AddBranch(ast.Branch{Span: bodySpan, Body: body}))
		break
	}

	return p.tree.AddNode(ast.Node{
		Kind:     ast.KindIf,
		Span:     position.NewSpan(start, p.lastEnd),
		Branches: branches,
	}), nil
}

func (p *parser) parseFor(start int) (ast.NodeID, error) {
	p.advance() // consume 'for'
	p.skipNewlines()

	var parts []string
	for {
		tok := p.cur()
		if tok.Type != lexer.TypeIdent || tok.Value == "in" {
			return 0, p.errAtCur("expected identifier in for binding, found %q", tok.Value)
		}
		parts = append(parts, tok.Value)
		p.advance()
		p.skipNewlines()

		if lexer.IsPunct(p.cur(), ',') {
			p.advance()
			p.skipNewlines()
			continue
		}
		if lexer.IsKeyword(p.cur(), "in") {
			p.advance()
			break
		}
		return 0, p.errAtCur("expected ',' or 'in' in for binding, found %q", p.cur().Value)
	}

	iter, err := p.headExpr("for iterable")
	if err != nil {
		return 0, err
	}
	body, bodySpan, err := p.bracedGroup()
	if err != nil {
		return 0, err
	}
	branch := p.tree.AddBranch(ast.Branch{Span: bodySpan, Body: body})

	return p.tree.AddNode(ast.Node{
		Kind:     ast.KindFor,
		Span:     position.NewSpan(start, p.lastEnd),
		Name:     strings.Join(parts, ", "),
		Text:     iter,
		Branches: []ast.BranchID{branch},
	}), nil
}

func (p *parser) parseMatch(start int) (ast.NodeID, error) {
	p.advance() // consume 'match'

	disc, err := p.headExpr("match expression")
	if err != nil {
		return 0, err
	}
	if !lexer.IsPunct(p.cur(), '{') {
		return 0, p.errAtCur("expected '{' after match expression")
	}
	p.advance()

	var branches []ast.BranchID
	for {
		p.skipNewlines()
		tok := p.cur()

		if lexer.IsPunct(tok, '}') {
			p.advance()
			break
		}
		if tok.EOF() {
			return 0, p.errAtCur("unterminated match block: missing %q", "}")
		}

		armStart := tok.Pos.Offset
		pattern, err := p.armPattern()
		if err != nil {
			return 0, err
		}

		p.skipNewlines()
		var body []ast.NodeID
		switch {
		case lexer.IsPunct(p.cur(), '{'):
			p.advance()
			body, err = p.parseGroup('}')
			if err != nil {
				return 0, err
			}
		case p.cur().Type == lexer.TypeString:
			// A bare string literal arm body is sugar for a single-text
			// block.
			lit := p.cur()
			text, err := p.unquote(lit)
			if err != nil {
				return 0, err
			}
			p.advance()
			body = []ast.NodeID{p.tree.AddNode(ast.Node{
				Kind: ast.KindText,
				Span: lexer.Span(lit),
				Text: text,
			})}
		default:
			return 0, p.errAtCur("match arm body must be a block or a string literal, found %q", p.cur().Value)
		}

		branches = append(branches, p.tree.AddBranch(ast.Branch{
			Span:    position.NewSpan(armStart, p.lastEnd),
			Pattern: pattern,
			Body:    body,
		}))

		p.skipNewlines()
		if lexer.IsPunct(p.cur(), ',') {
			p.advance()
		}
	}

	return p.tree.AddNode(ast.Node{
		Kind:     ast.KindMatch,
		Span:     position.NewSpan(start, p.lastEnd),
		Text:     disc,
		Branches: branches,
	}), nil
}

// headExpr consumes opaque host text up to the '{' that opens the following
// body. The '{' is not consumed.
func (p *parser) headExpr(what string) (string, error) {
	p.skipNewlines()
	first := p.cur()
	startOff := first.Pos.Offset
	endOff := startOff
	var nest nesting

	for {
		tok := p.cur()
		if tok.EOF() {
			return "", p.errAtCur("missing '{' after %s", what)
		}
		if tok.Type == lexer.TypeNewline {
			p.advance()
			continue
		}
		if lexer.IsPunct(tok, '{') && nest.depth() == 0 {
			break
		}
		if isOpener(tok) {
			nest.push(tok)
		} else if isCloser(tok) {
			if nest.depth() == 0 || !nest.pop(tok.Value[0]) {
				return "", p.errAtCur("mismatched %q in %s", tok.Value, what)
			}
		}
		endOff = tok.Pos.Offset + len(tok.Value)
		p.advance()
	}

	text := strings.TrimSpace(p.src[startOff:endOff])
	if text == "" {
		return "", p.errAtCur("missing %s", what)
	}
	return text, nil
}

// armPattern consumes opaque host text up to the arm's "=>".
func (p *parser) armPattern() (string, error) {
	first := p.cur()
	startOff := first.Pos.Offset
	endOff := startOff
	var nest nesting

	for {
		tok := p.cur()
		if tok.EOF() {
			return "", p.errAtCur("malformed match arm: missing %q", "=>")
		}
		if tok.Type == lexer.TypeArrow && nest.depth() == 0 {
			p.advance()
			break
		}
		if tok.Type == lexer.TypeNewline {
			p.advance()
			continue
		}
		if lexer.IsPunct(tok, '{') || lexer.IsPunct(tok, '}') {
			return "", p.errAtCur("malformed match arm: expected %q before %q", "=>", tok.Value)
		}
		if isOpener(tok) {
			nest.push(tok)
		} else if isCloser(tok) {
			if nest.depth() == 0 || !nest.pop(tok.Value[0]) {
				return "", p.errAtCur("mismatched %q in match arm pattern", tok.Value)
			}
		}
		endOff = tok.Pos.Offset + len(tok.Value)
		p.advance()
	}

	text := strings.TrimSpace(p.src[startOff:endOff])
	if text == "" {
		return "", p.errAtCur("malformed match arm: missing pattern")
	}
	return text, nil
}

// bracedExpr consumes a '{ expr }' group and returns the inner host text.
func (p *parser) bracedExpr() (string, position.Span, error) {
	open := p.cur()
	p.advance() // consume '{'

	startOff := open.Pos.Offset + 1
	endOff := startOff
	nest := nesting{stack: []byte{'{'}}

	for {
		tok := p.cur()
		if tok.EOF() {
			return "", position.Span{}, p.errAtCur("unterminated expression: missing %q", "}")
		}
		if isOpener(tok) {
			nest.push(tok)
		} else if isCloser(tok) {
			if nest.depth() == 1 {
				if !lexer.IsPunct(tok, '}') {
					return "", position.Span{}, p.errAtCur("mismatched %q in expression", tok.Value)
				}
				endOff = tok.Pos.Offset
				p.advance()
				break
			}
			if !nest.pop(tok.Value[0]) {
				return "", position.Span{}, p.errAtCur("mismatched %q in expression", tok.Value)
			}
		}
		p.advance()
	}

	span := position.NewSpan(startOff, endOff)
	text := strings.TrimSpace(p.src[startOff:endOff])
	if text == "" {
		return "", span, p.syntaxErrf(position.NewSpan(open.Pos.Offset, endOff+1), "empty expression")
	}
	return text, span, nil
}

// bracedGroup consumes a '{ nodes }' markup block.
func (p *parser) bracedGroup() ([]ast.NodeID, position.Span, error) {
	p.skipNewlines()
	open := p.cur()
	if !lexer.IsPunct(open, '{') {
		return nil, position.Span{}, p.errAtCur("expected '{', found %q", open.Value)
	}
	p.advance()

	body, err := p.parseGroup('}')
	if err != nil {
		return nil, position.Span{}, err
	}
	return body, position.NewSpan(open.Pos.Offset, p.lastEnd), nil
}

func (p *parser) unquote(tok lexer.Token) (string, error) {
	s, err := strconv.Unquote(tok.Value)
	if err != nil {
		return "", p.syntaxErrf(lexer.Span(tok), "invalid string literal %s", tok.Value)
	}
	return s, nil
}

func isOpener(tok lexer.Token) bool {
	return lexer.IsPunct(tok, '(') || lexer.IsPunct(tok, '[') || lexer.IsPunct(tok, '{')
}

func isCloser(tok lexer.Token) bool {
	return lexer.IsPunct(tok, ')') || lexer.IsPunct(tok, ']') || lexer.IsPunct(tok, '}')
}

// nesting tracks bracket pairing while scanning opaque host text.
type nesting struct {
	stack []byte
}

func (n *nesting) push(tok lexer.Token) {
	n.stack = append(n.stack, tok.Value[0])
}

// pop removes the innermost opener and reports whether it matches closer.
func (n *nesting) pop(closer byte) bool {
	top := n.stack[len(n.stack)-1]
	n.stack = n.stack[:len(n.stack)-1]
	switch closer {
	case ')':
		return top == '('
	case ']':
		return top == '['
	case '}':
		return top == '{'
	default:
		return false
	}
}

func (n *nesting) depth() int {
	return len(n.stack)
}
