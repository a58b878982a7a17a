package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified(t *testing.T) {
	before := "PK: ./ net/minecraft/src\nCL: x a/Foo\nFD: x/a c/Other/hp\n"
	after := "PK: ./ net/minecraft/src\nCL: x b/Bar\nFD: x/a c/Other/hp\n"

	patch, err := Unified("a/joined.srg", "b/joined.srg", []byte(before), []byte(after), 1)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(patch, "--- a/joined.srg\n+++ b/joined.srg\n"))
	assert.Contains(t, patch, "\n-CL: x a/Foo\n")
	assert.Contains(t, patch, "\n+CL: x b/Bar\n")
	assert.Contains(t, patch, "@@ -1,3 +1,3 @@")
}

func TestUnified_Identical(t *testing.T) {
	doc := []byte("CL: x a/Foo\n")
	patch, err := Unified("a", "b", doc, doc, 0)
	require.NoError(t, err)
	assert.Empty(t, patch)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{}, splitLines(""))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a\n", "b"}, splitLines("a\nb"))
}
