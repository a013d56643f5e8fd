// Package escape implements compile-time HTML entity escaping and the
// resolver pass that rewrites all statically-known text in an AST into its
// pre-escaped form.
//
// The same entity table is used by the runtime output sink, so content
// escaped here renders byte-identically to content escaped at runtime.
package escape

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/godwitml/godwit/pkg/ast"
)

// replacer maps each escapable byte to its entity, applied once,
// left-to-right, non-overlapping.
var replacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// String returns s with the five HTML-significant characters replaced by
// entities.
func String(s string) string {
	return replacer.Replace(s)
}

// NeedsEscaping reports whether String would change s.
func NeedsEscaping(s string) bool {
	return strings.ContainsAny(s, `&<>"'`)
}

// Resolve rewrites every static text node and every static attribute value
// in the tree into pre-escaped form, in place. Dynamic content is left
// untouched; it is escaped at runtime by the output sink.
//
// The pass is total and idempotent per tree: resolved trees are marked and
// never escaped a second time. The arena layout makes this a linear walk,
// document structure does not matter here.
func Resolve(ctx context.Context, tree *ast.Tree) {
	if tree.Resolved {
		return
	}

	rewritten := 0
	for id := 0; id < tree.Len(); id++ {
		n := tree.Node(ast.NodeID(id))
		if n.Kind == ast.KindText && NeedsEscaping(n.Text) {
			n.Text = String(n.Text)
			rewritten++
		}
	}
	for id := 0; id < tree.AttrLen(); id++ {
		a := tree.Attr(ast.AttrID(id))
		if a.Value.Kind == ast.AttrStatic && NeedsEscaping(a.Value.Text) {
			a.Value.Text = String(a.Value.Text)
			rewritten++
		}
	}

	tree.Resolved = true
	zerolog.Ctx(ctx).Debug().Int("rewritten", rewritten).Msg("resolved static escapes")
}
