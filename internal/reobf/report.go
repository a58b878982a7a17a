package reobf

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/standardbeagle/reobf/internal/index"
	"github.com/standardbeagle/reobf/internal/names"
	"github.com/standardbeagle/reobf/internal/rename"
	"github.com/standardbeagle/reobf/internal/srg"
)

// ArchiveSummary counts what a scan found in one archive
type ArchiveSummary struct {
	Path       string `json:"path"`
	Classes    int    `json:"classes"`
	Markers    int    `json:"markers"`
	Interfaces int    `json:"interfaces"`
	Accessors  int    `json:"accessors"`
}

func summarize(idx *index.Index) ArchiveSummary {
	return ArchiveSummary{
		Path:       idx.Source,
		Classes:    idx.Classes,
		Markers:    len(idx.Markers),
		Interfaces: len(idx.Interfaces),
		Accessors:  idx.Accessors.Len(),
	}
}

// Report describes a completed run
type Report struct {
	Reference       ArchiveSummary          `json:"reference"`
	Candidate       ArchiveSummary          `json:"candidate"`
	Mode            string                  `json:"mode"`
	NameEntries     int                     `json:"name_entries"`
	Exceptions      int                     `json:"exceptions"`
	ClassRenames    rename.ClassTable       `json:"class_renames"`
	Unresolved      []names.Exception       `json:"unresolved,omitempty"`
	AccessorRenames rename.AccessorTable    `json:"accessor_renames"`
	ExactAccessors  int                     `json:"exact_accessors"`
	Unmatched       []string                `json:"unmatched_accessors,omitempty"`
	Unclaimed       []string                `json:"unclaimed_accessors,omitempty"`
	Ambiguous       []rename.AmbiguousGroup `json:"ambiguous,omitempty"`
	Mapping         srg.Stats               `json:"mapping"`
	Output          string                  `json:"output"`
	DiffOutput      string                  `json:"diff_output,omitempty"`
	Duration        time.Duration           `json:"duration_ns"`
}

func newReport(opts Options, ref, cand *index.Index) *Report {
	return &Report{
		Reference:  summarize(ref),
		Candidate:  summarize(cand),
		Mode:       opts.Mode.String(),
		Output:     opts.Output,
		DiffOutput: opts.DiffOutput,
	}
}

func (r *Report) addReconcile(res rename.Result) {
	r.AccessorRenames = res.Renames
	r.ExactAccessors = res.Exact
	r.Ambiguous = res.Ambiguous
	for _, a := range res.Unmatched {
		r.Unmatched = append(r.Unmatched, a.Key())
	}
	for _, a := range res.Unclaimed {
		r.Unclaimed = append(r.Unclaimed, a.Key())
	}
}

// WriteText renders the report for a terminal
func (r *Report) WriteText(w io.Writer) error {
	p := &printer{w: w}
	p.printf("Reference: %s (%d classes, %d markers, %d accessors)\n",
		r.Reference.Path, r.Reference.Classes, r.Reference.Markers, r.Reference.Accessors)
	p.printf("Candidate: %s (%d classes, %d markers, %d accessors)\n",
		r.Candidate.Path, r.Candidate.Classes, r.Candidate.Markers, r.Candidate.Accessors)

	p.printf("\nClass renames: %d", len(r.ClassRenames))
	if len(r.Unresolved) > 0 {
		p.printf(" (%d unresolved)", len(r.Unresolved))
	}
	p.printf("\n")
	for _, old := range r.ClassRenames.Keys() {
		p.printf("  %s -> %s\n", old, r.ClassRenames[old])
	}
	for _, u := range r.Unresolved {
		p.printf("  %s: no class declares %s\n", u.Class, u.Marker)
	}

	p.printf("\nAccessor renames: %d (%d already aligned, mode %s)\n", len(r.AccessorRenames), r.ExactAccessors, r.Mode)
	for _, old := range sortedKeys(r.AccessorRenames) {
		p.printf("  %s -> %s\n", old, r.AccessorRenames[old])
	}
	for _, key := range r.Unmatched {
		p.printf("  unmatched: %s\n", key)
	}
	for _, g := range r.Ambiguous {
		p.printf("  ambiguous in %s%s: %v vs %v\n", g.Owner, g.Desc, g.References, g.Candidates)
	}

	p.printf("\nMapping: %d lines, %d classes, %d fields, %d methods, %d accessors, %d descriptors rewritten\n",
		r.Mapping.Lines, r.Mapping.Classes, r.Mapping.Fields, r.Mapping.Methods, r.Mapping.Accessors, r.Mapping.Descriptors)
	p.printf("Wrote %s", r.Output)
	if r.DiffOutput != "" {
		p.printf(" and %s", r.DiffOutput)
	}
	p.printf(" in %v\n", r.Duration.Round(time.Millisecond))
	return p.err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
