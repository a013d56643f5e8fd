package position

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaceAt(t *testing.T) {
	src := "abc\ndef\n\nxyz"

	tests := []struct {
		name     string
		offset   int
		expected Place
	}{
		{name: "start_of_file", offset: 0, expected: Place{Line: 1, Column: 1}},
		{name: "middle_of_first_line", offset: 2, expected: Place{Line: 1, Column: 3}},
		{name: "start_of_second_line", offset: 4, expected: Place{Line: 2, Column: 1}},
		{name: "after_blank_line", offset: 9, expected: Place{Line: 4, Column: 1}},
		{name: "end_of_file", offset: 12, expected: Place{Line: 4, Column: 4}},
		{name: "clamped_negative", offset: -3, expected: Place{Line: 1, Column: 1}},
		{name: "clamped_past_end", offset: 100, expected: Place{Line: 4, Column: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, PlaceAt(src, tt.offset))
		})
	}
}

func TestSpan(t *testing.T) {
	src := "hello world"

	s := NewSpan(0, 5)
	require.Equal(t, 5, s.Len())
	require.Equal(t, "hello", s.Text(src))
	require.False(t, s.Empty())

	empty := NewSpan(3, 3)
	require.True(t, empty.Empty())
	require.Equal(t, "", empty.Text(src))
}

func TestResolve(t *testing.T) {
	src := "h1 {\n  \"x\"\n}"
	r := NewSpan(7, 10).Resolve(src)
	require.Equal(t, Place{Line: 2, Column: 3}, r.Start)
	require.Equal(t, Place{Line: 2, Column: 6}, r.End)
	require.Equal(t, "2:3", r.Start.String())
}
