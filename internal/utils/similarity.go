package utils

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity is the character level similarity ratio of two strings in [0, 1].
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
