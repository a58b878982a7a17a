// Package diff renders unified patches between two versions of a mapping
// document.
package diff

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk
const DefaultContext = 3

// Unified produces a classic unified patch for a to b. Identical inputs give
// an empty patch. A context of zero or less selects DefaultContext.
func Unified(aName, bName string, a, b []byte, context int) (string, error) {
	if context <= 0 {
		context = DefaultContext
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(string(a)),
		B:        splitLines(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	})
}

// splitLines keeps each line's '\n' so hunks reproduce the input exactly
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
