package utils

import "testing"

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b   string
		expect float64
	}{
		{a: "kubernetes", b: "kubernetes", expect: 1},
		{a: "abcd", b: "abcx", expect: 0.75},
		{a: "", b: "", expect: 1},
		{a: "go", b: "", expect: 0},
	}

	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.expect {
			t.Fatalf("Similarity(%q, %q): expected %v, got %v", tt.a, tt.b, tt.expect, got)
		}
	}

	if Similarity("python developer", "python developers") <= 0.90 {
		t.Fatal("expected near identical titles to exceed the duplicate threshold")
	}
}
