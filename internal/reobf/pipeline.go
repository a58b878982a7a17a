// Package reobf runs the remapping pipeline: index both archives, build the
// class and accessor rename tables and rewrite the SRG mapping with them.
package reobf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/standardbeagle/reobf/internal/archive"
	"github.com/standardbeagle/reobf/internal/debug"
	"github.com/standardbeagle/reobf/internal/diff"
	reobferrors "github.com/standardbeagle/reobf/internal/errors"
	"github.com/standardbeagle/reobf/internal/index"
	"github.com/standardbeagle/reobf/internal/names"
	"github.com/standardbeagle/reobf/internal/rename"
	"github.com/standardbeagle/reobf/internal/srg"
)

// Options describes one run
type Options struct {
	Reference   string // archive built with final names
	Candidate   string // archive whose synthetic names the mapping must follow
	FieldNames  string // optional old,new field name table
	MethodNames string // optional old,new method name table
	Exceptions  string // optional Class=marker config
	Mapping     string // SRG document to rewrite
	Output      string // rewritten SRG document
	DiffOutput  string // optional unified diff of Mapping against Output

	// A zero Policy selects index.DefaultPolicy
	Policy index.Policy
	Filter archive.Filter
	Mode   rename.Mode
}

func (o *Options) validate() error {
	required := []struct{ field, value string }{
		{"reference", o.Reference},
		{"candidate", o.Candidate},
		{"srg", o.Mapping},
		{"output", o.Output},
	}
	for _, r := range required {
		if r.value == "" {
			return reobferrors.NewConfigError(r.field, "", errors.New("a path is required"))
		}
	}
	o.Policy = policyOrDefault(o.Policy)
	return o.Filter.Validate()
}

func policyOrDefault(p index.Policy) index.Policy {
	if p.MarkerField == "" && p.AccessorPattern == nil && len(p.FirstParty) == 0 {
		return index.DefaultPolicy()
	}
	return p
}

// Run executes the pipeline. Stages run strictly in order and the first
// fatal error stops the run. A pre-existing output is removed before any
// input is read, and the new output only appears once it is complete.
func Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if err := removeStale(opts.Output); err != nil {
		return nil, err
	}
	if opts.DiffOutput != "" {
		if err := removeStale(opts.DiffOutput); err != nil {
			return nil, err
		}
	}

	table, err := names.LoadTable(opts.FieldNames, opts.MethodNames)
	if err != nil {
		return nil, err
	}
	exceptions, err := names.LoadExceptions(opts.Exceptions)
	if err != nil {
		return nil, err
	}

	ref, err := index.Scan(ctx, opts.Reference, opts.Policy, opts.Filter)
	if err != nil {
		return nil, err
	}
	cand, err := index.Scan(ctx, opts.Candidate, opts.Policy, opts.Filter)
	if err != nil {
		return nil, err
	}

	classes, unresolved := rename.ResolveClasses(exceptions, cand)
	translated := rename.TranslateMembers(ref.Accessors, table)
	result := rename.Reconcile(translated, cand.Accessors, rename.Options{Mode: opts.Mode})

	rw := &srg.Rewriter{Classes: classes, Accessors: result.Renames}
	stats, err := rewriteMapping(rw, opts.Mapping, opts.Output)
	if err != nil {
		return nil, err
	}

	if opts.DiffOutput != "" {
		if err := writeDiff(opts.Mapping, opts.Output, opts.DiffOutput); err != nil {
			return nil, err
		}
	}

	report := newReport(opts, ref, cand)
	report.NameEntries = len(table)
	report.Exceptions = len(exceptions)
	report.ClassRenames = classes
	report.Unresolved = unresolved
	report.addReconcile(result)
	report.Mapping = stats
	report.Duration = time.Since(start)

	debug.Log("PIPELINE", "done in %v: %d class renames, %d accessor renames, %d lines\n",
		report.Duration, len(classes), len(result.Renames), stats.Lines)
	return report, nil
}

func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return reobferrors.NewFileError("remove", path, err)
	}
	return nil
}

func rewriteMapping(rw *srg.Rewriter, in, out string) (srg.Stats, error) {
	f, err := os.Open(in)
	if err != nil {
		return srg.Stats{}, reobferrors.NewFileError("open", in, err)
	}
	defer f.Close()

	var stats srg.Stats
	err = writeAtomic(out, func(w io.Writer) error {
		var err error
		stats, err = rw.Rewrite(in, f, w)
		return err
	})
	return stats, err
}

func writeDiff(before, after, out string) error {
	a, err := os.ReadFile(before)
	if err != nil {
		return reobferrors.NewFileError("read", before, err)
	}
	b, err := os.ReadFile(after)
	if err != nil {
		return reobferrors.NewFileError("read", after, err)
	}

	patch, err := diff.Unified("a/"+filepath.Base(before), "b/"+filepath.Base(after), a, b, diff.DefaultContext)
	if err != nil {
		return fmt.Errorf("diff %s: %w", before, err)
	}
	return writeAtomic(out, func(w io.Writer) error {
		_, err := io.WriteString(w, patch)
		return err
	})
}

// writeAtomic writes through a temp file in the destination directory and
// renames it over path once fill succeeds. On failure nothing is left behind.
func writeAtomic(path string, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return reobferrors.NewFileError("create", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return reobferrors.NewFileError("write", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return reobferrors.NewFileError("rename", path, err)
	}
	return nil
}
