// Package lexer tokenizes the markup notation. It classifies the structural
// pieces of the grammar (identifiers, string literals, punctuation) and
// leaves everything else as opaque host-expression characters that the
// parser recovers verbatim from the source by byte offset.
package lexer

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"gitlab.com/tozd/go/errors"

	"github.com/godwitml/godwit/pkg/diagnostic"
	"github.com/godwitml/godwit/pkg/position"
)

// Rules defines the lexer rules for the markup notation.
var Rules = lexer.Rules{
	"Root": {
		// Line comments are stripped before parsing
		{Name: "Comment", Pattern: `//[^\n]*`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
		// Dashes are allowed so custom element and attribute names lex as
		// one identifier
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`},
		// Match-arm arrow, before Punct so it is not split into "=" ">"
		{Name: "Arrow", Pattern: `=>`},
		{Name: "Punct", Pattern: `[{}\[\]();,=@]`},
		{Name: "Newline", Pattern: `\n`},
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		// Anything else is host-expression material: operators, digits,
		// dots. The compiler never interprets these, it only needs to know
		// where they start and end.
		{Name: "Host", Pattern: `[^\sa-zA-Z_"{}\[\]();,=@]+`},
	},
}

// Markup is the stateful lexer for the markup notation.
var Markup = lexer.MustStateful(Rules)

var (
	TypeComment    = Markup.Symbols()["Comment"]
	TypeString     = Markup.Symbols()["String"]
	TypeIdent      = Markup.Symbols()["Ident"]
	TypeArrow      = Markup.Symbols()["Arrow"]
	TypePunct      = Markup.Symbols()["Punct"]
	TypeNewline    = Markup.Symbols()["Newline"]
	TypeWhitespace = Markup.Symbols()["Whitespace"]
	TypeHost       = Markup.Symbols()["Host"]
	TypeEOF        = lexer.EOF
)

// Token re-exports the participle token so downstream packages do not need a
// second import for the common case.
type Token = lexer.Token

// Span returns the byte range a token covers in its source.
func Span(tok Token) position.Span {
	return position.NewSpan(tok.Pos.Offset, tok.Pos.Offset+len(tok.Value))
}

// IsPunct reports whether tok is the given punctuation byte.
func IsPunct(tok Token, b byte) bool {
	return tok.Type == TypePunct && len(tok.Value) == 1 && tok.Value[0] == b
}

// IsKeyword reports whether tok is the given bare identifier.
func IsKeyword(tok Token, word string) bool {
	return tok.Type == TypeIdent && tok.Value == word
}

// EOFToken returns a synthetic end-of-input marker. Callers that parse an
// embedded region of a larger token stream terminate the sub-slice with it.
func EOFToken(pos lexer.Position) Token {
	return Token{Type: TypeEOF, Pos: pos}
}

// Lex tokenizes src, dropping comments and horizontal whitespace but keeping
// newlines, which the parser uses to terminate bare interpolated
// expressions. The trailing EOF token is included.
func Lex(filename, src string) ([]Token, error) {
	lx, err := Markup.LexString(filename, src)
	if err != nil {
		return nil, wrapLexError(src, err)
	}

	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, wrapLexError(src, err)
		}
		if tok.Type == TypeComment || tok.Type == TypeWhitespace {
			continue
		}
		toks = append(toks, tok)
		if tok.EOF() {
			return toks, nil
		}
	}
}

func wrapLexError(src string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		off := perr.Position().Offset
		msg := perr.Message()
		// An unterminated string literal surfaces as an invalid-input error
		// at the opening quote; report it in grammar terms.
		if off < len(src) && src[off] == '"' {
			msg = "unterminated string literal"
		}
		return diagnostic.NewSyntaxError(src, position.NewSpan(off, off+1), "%s", msg)
	}
	return errors.Errorf("lexing markup: %w", err)
}
