package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericCanonicalize(t *testing.T) {
	c := Generic()
	assert.Equal(t, "generic", c.Name())

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "comment then indented data",
			in:   "#c\n  a   b  \n\n",
			want: "  a b\n",
		},
		{
			name: "line endings normalize to LF",
			in:   "a\r\nb\rc\n",
			want: "a\nb\nc\n",
		},
		{
			name: "trailing whitespace trimmed",
			in:   "a  \t\n",
			want: "a\n",
		},
		{
			name: "leading indentation preserved exactly",
			in:   "\t  x\n",
			want: "\t  x\n",
		},
		{
			name: "internal whitespace runs collapse",
			in:   "a \t b   c\n",
			want: "a b c\n",
		},
		{
			name: "all comment markers",
			in:   "#one\n//two\n;three\nkept\n",
			want: "kept\n",
		},
		{
			name: "indented comments dropped",
			in:   "   # note\nvalue\n",
			want: "value\n",
		},
		{
			name: "markers mid-line are not comments",
			in:   "a # b\nx;y\n",
			want: "a # b\nx;y\n",
		},
		{
			name: "blank lines dropped",
			in:   "a\n\n \t \nb\n",
			want: "a\nb\n",
		},
		{
			name: "missing final newline added",
			in:   "a",
			want: "a\n",
		},
		{
			name: "empty input",
			in:   "",
			want: "\n",
		},
		{
			name: "comment-only input",
			in:   "# a\n; b\n// c\n",
			want: "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Canonicalize([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			// Canonical output must be a fixed point.
			again, err := c.Canonicalize(got)
			require.NoError(t, err)
			assert.Equal(t, string(got), string(again))
		})
	}
}

func TestGenericNilInput(t *testing.T) {
	_, err := Generic().Canonicalize(nil)
	assert.ErrorIs(t, err, ErrNilInput)
}
