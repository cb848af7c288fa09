package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "equal", a: "kitten", b: "kitten", want: 0},
		{name: "classic", a: "kitten", b: "sitting", want: 3},
		{name: "empty left", a: "", b: "abc", want: 3},
		{name: "empty right", a: "abc", b: "", want: 3},
		{name: "single substitution", a: "dog", b: "dot", want: 1},
		{name: "insertion", a: "dog", b: "dogg", want: 1},
		{name: "runes not bytes", a: "いぬ", b: "いね", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
		})
	}
}

func TestDistanceTolerance(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{length: 1, want: 0},
		{length: 3, want: 0},
		{length: 4, want: 1},
		{length: 5, want: 1},
		{length: 6, want: 2},
		{length: 7, want: 2},
		{length: 8, want: 3},
		{length: 13, want: 3},
		{length: 14, want: 4},
		{length: 21, want: 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, distanceTolerance(tt.length), "length %d", tt.length)
	}
}
