package archive

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/reobf/internal/classfile/classtest"
	reobferrors "github.com/standardbeagle/reobf/internal/errors"
)

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		entry  string
		want   bool
	}{
		{"class at root", DefaultFilter(), "Foo.class", true},
		{"nested class", DefaultFilter(), "net/minecraft/Foo$1.class", true},
		{"resource", DefaultFilter(), "assets/lang/en_US.lang", false},
		{"directory", DefaultFilter(), "net/minecraft/", false},
		{"empty include defaults to classes", Filter{}, "a/B.class", true},
		{"excluded", Filter{Include: []string{"**/*.class"}, Exclude: []string{"META-INF/**"}}, "META-INF/versions/9/module-info.class", false},
		{"include narrowed", Filter{Include: []string{"net/minecraft/**/*.class"}}, "com/other/A.class", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.entry))
		})
	}
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, DefaultFilter().Validate())
	assert.Error(t, Filter{Exclude: []string{"[unclosed"}}.Validate())
}

func TestWalk_VisitsClassEntriesInOrder(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "in.jar")
	require.NoError(t, classtest.WriteJar(jar,
		classtest.Entry{Name: "META-INF/MANIFEST.MF", Data: []byte("Manifest-Version: 1.0\n")},
		classtest.Entry{Name: "net/"},
		classtest.Entry{Name: "net/minecraft/B.class", Data: []byte("b")},
		classtest.Entry{Name: "net/minecraft/A.class", Data: []byte("a")},
	))

	var names []string
	err := Walk(context.Background(), jar, DefaultFilter(), func(e Entry) error {
		names = append(names, e.Name+"="+string(e.Data))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"net/minecraft/B.class=b", "net/minecraft/A.class=a"}, names)
}

func TestWalk_StopsOnCallbackError(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "in.jar")
	require.NoError(t, classtest.WriteJar(jar,
		classtest.Entry{Name: "A.class", Data: []byte("a")},
		classtest.Entry{Name: "B.class", Data: []byte("b")},
	))

	boom := errors.New("boom")
	calls := 0
	err := Walk(context.Background(), jar, DefaultFilter(), func(Entry) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWalk_CancelledContext(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "in.jar")
	require.NoError(t, classtest.WriteJar(jar, classtest.Entry{Name: "A.class", Data: []byte("a")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Walk(ctx, jar, DefaultFilter(), func(Entry) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_MissingArchive(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.jar")
	_, err := Open(missing)
	require.Error(t, err)

	var fe *reobferrors.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, missing, fe.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
