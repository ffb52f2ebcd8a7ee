package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTopLevelItems(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "nested environment is not a boundary",
			in:   `\item X \begin{foo}\item Y\end{foo} \item Z`,
			want: []string{`X \begin{foo}\item Y\end{foo}`, "Z"},
		},
		{
			name: "non-empty preamble kept",
			in:   `\setcounter{enumi}{2}\item a\item b`,
			want: []string{`\setcounter{enumi}{2}`, "a", "b"},
		},
		{
			name: "empty preamble dropped",
			in:   "  \n\\item a",
			want: []string{"a"},
		},
		{
			name: "side-by-side block skipped whole",
			in:   `\item \immini{\item fake}{fig} \item b`,
			want: []string{`\immini{\item fake}{fig}`, "b"},
		},
		{
			name: "both item spellings",
			in:   `\itemch a \item b`,
			want: []string{"a", "b"},
		},
		{
			name: "itemize is not an item",
			in:   `\itemize a`,
			want: []string{`\itemize a`},
		},
		{
			name: "line break before item",
			in:   `\item a\\\item b`,
			want: []string{`a\\`, "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTopLevelItems(tt.in))
		})
	}
}

func TestSplitItems_NoMarkers(t *testing.T) {
	preamble, items := SplitItems("  just text ")
	assert.Equal(t, "just text", preamble)
	assert.Nil(t, items)
}
