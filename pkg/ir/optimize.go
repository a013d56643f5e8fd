package ir

import "strings"

// Optimize returns an equivalent instruction sequence with every run of
// consecutive literal writes merged into one and empty literal writes
// removed. It recurses into the branches of Enter instructions but never
// merges across an Enter boundary, and it never changes the number or shape
// of dynamic writes or control constructs.
//
// The pass is idempotent: optimizing its own output is a no-op.
func Optimize(instrs []Instruction) []Instruction {
	if len(instrs) == 0 {
		return nil
	}

	out := make([]Instruction, 0, len(instrs))
	var pending strings.Builder

	flush := func() {
		if pending.Len() > 0 {
			out = append(out, WriteLiteral{Text: pending.String()})
			pending.Reset()
		}
	}

	for _, in := range instrs {
		switch in := in.(type) {
		case WriteLiteral:
			pending.WriteString(in.Text)

		case Enter:
			flush()
			merged := Enter{
				Kind:     in.Kind,
				Subject:  in.Subject,
				Binding:  in.Binding,
				Branches: make([]Branch, len(in.Branches)),
			}
			for i, b := range in.Branches {
				merged.Branches[i] = Branch{
					Cond:    b.Cond,
					Pattern: b.Pattern,
					Body:    Optimize(b.Body),
				}
			}
			out = append(out, merged)

		default:
			flush()
			out = append(out, in)
		}
	}
	flush()

	if len(out) == 0 {
		return nil
	}
	return out
}

// Literals statically evaluates the sequence as if every branch were taken
// and every dynamic write produced nothing, concatenating all literal text
// in order. Optimize preserves this value exactly; the optimizer tests rely
// on that.
func Literals(instrs []Instruction) string {
	var b strings.Builder
	for _, in := range instrs {
		switch in := in.(type) {
		case WriteLiteral:
			b.WriteString(in.Text)
		case Enter:
			for _, br := range in.Branches {
				b.WriteString(Literals(br.Body))
			}
		}
	}
	return b.String()
}
