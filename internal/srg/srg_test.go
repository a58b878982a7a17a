package srg

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reobferrors "github.com/standardbeagle/reobf/internal/errors"
	"github.com/standardbeagle/reobf/internal/rename"
)

func newRewriter() *Rewriter {
	return &Rewriter{
		Classes: rename.ClassTable{
			"a/Foo":       "b/Bar",
			"a/Outer":     "b/Outer$Inner",
			"a/Identical": "a/Identical",
		},
		Accessors: rename.AccessorTable{
			"b/Bar/access$000": "b/Bar/access$200",
		},
	}
}

func TestRewriteLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"class target already matches", "CL: a/Foo b/Bar", "CL: a/Foo b/Bar"},
		{"class renamed", "CL: x a/Foo", "CL: x b/Bar"},
		{"class identity entry", "CL: y a/Identical", "CL: y a/Identical"},
		{"field owner", "FD: x/a a/Foo/health", "FD: x/a b/Bar/health"},
		{"field unknown owner", "FD: x/a c/Other/health", "FD: x/a c/Other/health"},
		{"method descriptor", "MD: x/a (Lx;)V c/Other/tick (La/Foo;)V", "MD: x/a (Lx;)V c/Other/tick (Lb/Bar;)V"},
		{"method owner and accessor", "MD: x/b (Lx;)I a/Foo/access$000 (La/Foo;)I", "MD: x/b (Lx;)I b/Bar/access$200 (Lb/Bar;)I"},
		{"dollar stays literal", "MD: x/c ()V c/Other/run (La/Outer;La/Foo;)La/Outer;", "MD: x/c ()V c/Other/run (Lb/Outer$Inner;Lb/Bar;)Lb/Outer$Inner;"},
		{"package record", "PK: ./ net/minecraft/src", "PK: ./ net/minecraft/src"},
		{"blank", "", ""},
		{"unknown tag", "XX: whatever goes here", "XX: whatever goes here"},
	}

	rw := newRewriter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rw.RewriteLine(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteLine_Malformed(t *testing.T) {
	rw := newRewriter()
	for _, in := range []string{
		"CL: onlyone",
		"FD: x/a a/Foo/health extra",
		"FD: x/a unqualified",
		"MD: x/a (Lx;)V a/Foo/tick",
		"MD: x/a (Lx;)V tick (La/Foo;)V",
	} {
		_, err := rw.RewriteLine(in)
		assert.Error(t, err, in)
	}
}

func TestRewriteDesc_PreservesObjectTypeCount(t *testing.T) {
	rw := newRewriter()
	for _, desc := range []string{
		"()V",
		"(La/Foo;)V",
		"(IJLa/Foo;[La/Outer;Ljava/lang/String;)[[La/Foo;",
		"(La/Outer;La/Outer;La/Outer;)V",
	} {
		out := rw.rewriteDesc(desc)
		assert.Equal(t, len(objectType.FindAllString(desc, -1)), len(objectType.FindAllString(out, -1)), desc)
		assert.NotContains(t, out, "La/Foo;")
	}
}

func TestRewrite(t *testing.T) {
	in := strings.Join([]string{
		"PK: ./ net/minecraft/src",
		"CL: x a/Foo",
		"FD: x/a a/Foo/health",
		"MD: x/b (Lx;)I a/Foo/access$000 (La/Foo;)I",
		"MD: x/c ()V c/Other/run ()V",
	}, "\n")

	var out bytes.Buffer
	stats, err := newRewriter().Rewrite("in.srg", strings.NewReader(in), &out)
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"PK: ./ net/minecraft/src",
		"CL: x b/Bar",
		"FD: x/a b/Bar/health",
		"MD: x/b (Lx;)I b/Bar/access$200 (Lb/Bar;)I",
		"MD: x/c ()V c/Other/run ()V",
	}, "\n")+"\n", out.String())

	assert.Equal(t, Stats{Lines: 5, Classes: 1, Fields: 1, Methods: 1, Accessors: 1, Descriptors: 1, Passed: 1}, stats)
}

func TestRewrite_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	stats, err := newRewriter().Rewrite("empty.srg", strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Lines)
	assert.Empty(t, out.String())
}

func TestRewrite_MalformedRecord(t *testing.T) {
	in := "CL: x a/Foo\nMD: broken\n"

	var out bytes.Buffer
	_, err := newRewriter().Rewrite("in.srg", strings.NewReader(in), &out)
	require.Error(t, err)

	var re *reobferrors.RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "in.srg", re.Path)
	assert.Equal(t, 2, re.Line)
	assert.ErrorIs(t, err, errTokenCount)
}
