package reobf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/reobf/internal/classfile/classtest"
	reobferrors "github.com/standardbeagle/reobf/internal/errors"
	"github.com/standardbeagle/reobf/internal/index"
	"github.com/standardbeagle/reobf/internal/rename"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const inputSRG = `PK: ./ a
CL: x a/Foo
CL: a/Foo b/Bar
FD: x/a a/Foo/hp
MD: y/a (Ly;)I a/Util/access$000 (La/Util;)I
MD: y/b (Ly;)J a/Util/access$100 (La/Util;)J
MD: x/b (Lx;)V a/Foo/run (La/Foo;)V
`

const wantSRG = `PK: ./ a
CL: x b/Bar
CL: a/Foo b/Bar
FD: x/a b/Bar/hp
MD: y/a (Ly;)I a/Util/access$200 (La/Util;)I
MD: y/b (Ly;)J a/Util/access$100 (La/Util;)J
MD: x/b (Lx;)V b/Bar/run (Lb/Bar;)V
`

type fixture struct {
	dir  string
	opts Options
}

func testPolicy() index.Policy {
	p := index.DefaultPolicy()
	p.FirstParty = []string{"a/", "b/"}
	return p
}

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// newFixture lays out a reference and candidate jar where a/Foo became
// b/Bar and the compiler renumbered one of a/Util's accessors.
func newFixture(t *testing.T, candidateExtra ...classtest.Entry) *fixture {
	t.Helper()
	dir := t.TempDir()

	refFoo := classtest.New("a/Foo").ConstField("__OBFID", "CL_001").Bytes()
	refUtil := classtest.New("a/Util").
		Accessor("access$000", "(La/Util;)I", classtest.Aload0, classtest.GetField("a/Util", "field_1_a", "I"), classtest.Ireturn).
		Accessor("access$100", "(La/Util;)J", classtest.Aload0, classtest.GetField("a/Util", "time", "J"), classtest.Op(0xad)).
		Bytes()

	candBar := classtest.New("b/Bar").ConstField("__OBFID", "CL_001").Bytes()
	candUtil := classtest.New("a/Util").
		Accessor("access$100", "(La/Util;)J", classtest.Aload0, classtest.GetField("a/Util", "time", "J"), classtest.Op(0xad)).
		Accessor("access$200", "(La/Util;)I", classtest.Aload0, classtest.GetField("a/Util", "count", "I"), classtest.Ireturn).
		Bytes()
	candIface := classtest.New("b/Iface").Interface().Bytes()

	ref := filepath.Join(dir, "deobf.jar")
	require.NoError(t, classtest.WriteJar(ref,
		classtest.Entry{Name: "META-INF/MANIFEST.MF", Data: []byte("Manifest-Version: 1.0\n")},
		classtest.Entry{Name: "a/"},
		classtest.Entry{Name: "a/Foo.class", Data: refFoo},
		classtest.Entry{Name: "a/Util.class", Data: refUtil},
	))

	cand := filepath.Join(dir, "reobf.jar")
	entries := []classtest.Entry{
		{Name: "b/Bar.class", Data: candBar},
		{Name: "a/Util.class", Data: candUtil},
		{Name: "b/Iface.class", Data: candIface},
	}
	require.NoError(t, classtest.WriteJar(cand, append(entries, candidateExtra...)...))

	return &fixture{
		dir: dir,
		opts: Options{
			Reference:   ref,
			Candidate:   cand,
			FieldNames:  write(t, filepath.Join(dir, "fields.csv"), "searge,name,side,desc\nfield_1_a,count,0,\n"),
			MethodNames: write(t, filepath.Join(dir, "methods.csv"), "func_1_b,run,0,\n"),
			Exceptions:  write(t, filepath.Join(dir, "joined.exc"), "# markers\na/Foo=CL_001\na/Foo.func_1_b(I)V=|p_1\nb/Iface=CL_009\na/Gone=CL_404\n"),
			Mapping:     write(t, filepath.Join(dir, "joined.srg"), inputSRG),
			Output:      filepath.Join(dir, "out", "reobf.srg"),
			Policy:      testPolicy(),
		},
	}
}

func (f *fixture) mkOut(t *testing.T) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(f.opts.Output), 0755))
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)

	report, err := Run(context.Background(), f.opts)
	require.NoError(t, err)

	out, err := os.ReadFile(f.opts.Output)
	require.NoError(t, err)
	assert.Equal(t, wantSRG, string(out))

	assert.Equal(t, rename.ClassTable{"a/Foo": "b/Bar"}, report.ClassRenames)
	assert.Equal(t, rename.AccessorTable{"a/Util/access$000": "a/Util/access$200"}, report.AccessorRenames)
	assert.Equal(t, 1, report.ExactAccessors)
	assert.Empty(t, report.Unmatched)
	// b/Iface is an interface in the candidate and is skipped outright
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "a/Gone", report.Unresolved[0].Class)
	assert.Equal(t, 3, report.Exceptions)

	assert.Equal(t, 2, report.Reference.Classes)
	assert.Equal(t, 3, report.Candidate.Classes)
	assert.Equal(t, 1, report.Candidate.Interfaces)
	assert.Equal(t, 7, report.Mapping.Lines)
	assert.Equal(t, 1, report.Mapping.Accessors)
	assert.Equal(t, "first-match", report.Mode)

	var text bytes.Buffer
	require.NoError(t, report.WriteText(&text))
	assert.Contains(t, text.String(), "a/Foo -> b/Bar")
	assert.Contains(t, text.String(), "a/Util/access$000 -> a/Util/access$200")

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"class_renames":{"a/Foo":"b/Bar"}`)
}

func TestRun_ClassRenamesNameCandidateClasses(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)

	report, err := Run(context.Background(), f.opts)
	require.NoError(t, err)

	inv, err := Inspect(context.Background(), f.opts.Candidate, testPolicy(), f.opts.Filter)
	require.NoError(t, err)
	known := make(map[string]bool)
	for _, class := range inv.Markers {
		known[class] = true
	}
	for _, renamed := range report.ClassRenames {
		assert.True(t, known[renamed], renamed)
	}
}

func TestRun_DescriptorObjectTypesPreserved(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)
	_, err := Run(context.Background(), f.opts)
	require.NoError(t, err)

	out, err := os.ReadFile(f.opts.Output)
	require.NoError(t, err)

	objectType := regexp.MustCompile(`L([^;]+);`)
	inLines := strings.Split(inputSRG, "\n")
	outLines := strings.Split(string(out), "\n")
	require.Equal(t, len(inLines), len(outLines))
	for i := range inLines {
		assert.Equal(t, len(objectType.FindAllString(inLines[i], -1)), len(objectType.FindAllString(outLines[i], -1)), inLines[i])
	}
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)

	first, err := Run(context.Background(), f.opts)
	require.NoError(t, err)
	firstOut, err := os.ReadFile(f.opts.Output)
	require.NoError(t, err)

	second, err := Run(context.Background(), f.opts)
	require.NoError(t, err)
	secondOut, err := os.ReadFile(f.opts.Output)
	require.NoError(t, err)

	assert.Equal(t, first.AccessorRenames, second.AccessorRenames)
	assert.Equal(t, first.ClassRenames, second.ClassRenames)
	assert.Equal(t, string(firstOut), string(secondOut))
}

func TestRun_RogueMarkerAbortsWithoutOutput(t *testing.T) {
	rogue := classtest.New("c/Rogue").ConstField("__OBFID", "CL_666").Bytes()
	f := newFixture(t, classtest.Entry{Name: "c/Rogue.class", Data: rogue})
	f.mkOut(t)
	write(t, f.opts.Output, "stale output\n")

	_, err := Run(context.Background(), f.opts)
	require.Error(t, err)
	assert.True(t, reobferrors.IsIntegrity(err))

	var ie *reobferrors.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "c/Rogue", ie.Class)
	assert.Equal(t, f.opts.Candidate, ie.Source)

	_, statErr := os.Stat(f.opts.Output)
	assert.True(t, os.IsNotExist(statErr), "stale output must be removed")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(f.opts.Output), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRun_MissingArchive(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)
	f.opts.Reference = filepath.Join(f.dir, "absent.jar")

	_, err := Run(context.Background(), f.opts)
	var fe *reobferrors.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, f.opts.Reference, fe.Path)
}

func TestRun_MalformedMappingLeavesNoOutput(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)
	write(t, f.opts.Mapping, "CL: x a/Foo\nMD: truncated record\n")

	_, err := Run(context.Background(), f.opts)
	var re *reobferrors.RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Line)

	entries, err := os.ReadDir(filepath.Dir(f.opts.Output))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_MalformedNameTable(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)
	write(t, f.opts.FieldNames, "field_1_a count\n")

	_, err := Run(context.Background(), f.opts)
	var re *reobferrors.RecordError
	assert.True(t, errors.As(err, &re))
}

func TestRun_WritesDiff(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)
	f.opts.DiffOutput = filepath.Join(f.dir, "out", "reobf.patch")

	report, err := Run(context.Background(), f.opts)
	require.NoError(t, err)
	assert.Equal(t, f.opts.DiffOutput, report.DiffOutput)

	patch, err := os.ReadFile(f.opts.DiffOutput)
	require.NoError(t, err)
	assert.Contains(t, string(patch), "--- a/joined.srg")
	assert.Contains(t, string(patch), "+++ b/reobf.srg")
	assert.Contains(t, string(patch), "-CL: x a/Foo\n+CL: x b/Bar\n")
}

func TestRun_StrictMode(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)
	f.opts.Mode = rename.ModeStrict

	report, err := Run(context.Background(), f.opts)
	require.NoError(t, err)
	// The fixture has no ambiguity, so strict mode pairs the same accessors
	assert.Equal(t, rename.AccessorTable{"a/Util/access$000": "a/Util/access$200"}, report.AccessorRenames)
	assert.Equal(t, "strict", report.Mode)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.mkOut(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, f.opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_RequiresPaths(t *testing.T) {
	_, err := Run(context.Background(), Options{Reference: "a.jar"})
	var ce *reobferrors.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "candidate", ce.Field)
}

func TestInspect(t *testing.T) {
	f := newFixture(t)

	inv, err := Inspect(context.Background(), f.opts.Reference, testPolicy(), f.opts.Filter)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"CL_001_": "a/Foo"}, inv.Markers)
	assert.Empty(t, inv.Interfaces)
	require.Len(t, inv.Accessors, 2)
	assert.Equal(t, "a/Util/access$000(La/Util;)I", inv.Accessors[0].Key)
	assert.Equal(t, "[GETFIELD a/Util/field_1_a I]", inv.Accessors[0].Fingerprint)
	assert.NotZero(t, inv.Accessors[0].Hash)
}
