package keyword

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Quick Brown FOX", []string{"quick", "brown", "fox"}},
		{"strips punctuation", "hello, world! (yes)", []string{"hello", "world", "yes"}},
		{"keeps digits and underscores", "error_404 occurred 2x", []string{"error_404", "occurred", "2x"}},
		{"empty", "", nil},
		{"only punctuation", "... !!! ???", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTermFrequencies(t *testing.T) {
	tf := termFrequencies([]string{"a", "b", "a", "a"})
	if tf["a"] != 3 || tf["b"] != 1 {
		t.Errorf("termFrequencies = %v", tf)
	}
}
