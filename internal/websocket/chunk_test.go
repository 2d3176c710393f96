package websocket

import (
	"reflect"
	"testing"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		words int
		want  []string
	}{
		{
			name:  "empty text",
			text:  "",
			words: 3,
			want:  nil,
		},
		{
			name:  "whitespace only",
			text:  "   \n\t ",
			words: 3,
			want:  nil,
		},
		{
			name:  "fewer words than chunk size",
			text:  "hello there",
			words: 3,
			want:  []string{"hello there"},
		},
		{
			name:  "exact multiple",
			text:  "one two three four five six",
			words: 3,
			want:  []string{"one two three", "four five six"},
		},
		{
			name:  "remainder chunk",
			text:  "one two three four",
			words: 3,
			want:  []string{"one two three", "four"},
		},
		{
			name:  "collapses internal whitespace",
			text:  "one   two\nthree",
			words: 2,
			want:  []string{"one two", "three"},
		},
		{
			name:  "chunk size below one",
			text:  "a b",
			words: 0,
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitChunks(tt.text, tt.words)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitChunks(%q, %d) = %v, want %v", tt.text, tt.words, got, tt.want)
			}
		})
	}
}
