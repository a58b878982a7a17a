// Package archive reads class files out of jar/zip archives.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/reobf/internal/debug"
	reobferrors "github.com/standardbeagle/reobf/internal/errors"
)

// DefaultInclude matches every class file in an archive
const DefaultInclude = "**/*.class"

// Filter selects archive entries by doublestar pattern
type Filter struct {
	Include []string
	Exclude []string
}

// DefaultFilter returns a filter that accepts every class file
func DefaultFilter() Filter {
	return Filter{Include: []string{DefaultInclude}}
}

// Validate checks that every pattern is well-formed
func (f Filter) Validate() error {
	for _, p := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid entry pattern %q", p)
		}
	}
	return nil
}

// Match reports whether an entry name passes the filter. Directory entries
// never match.
func (f Filter) Match(name string) bool {
	if name == "" || strings.HasSuffix(name, "/") {
		return false
	}
	include := f.Include
	if len(include) == 0 {
		include = []string{DefaultInclude}
	}

	matched := false
	for _, pattern := range include {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, pattern := range f.Exclude {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return false
		}
	}
	return true
}

// Entry is one selected archive member
type Entry struct {
	Name string
	Data []byte
}

// Reader is an open archive
type Reader struct {
	path string
	zr   *zip.ReadCloser
}

// Open opens the archive at path. A missing or unreadable archive is fatal
// to the caller and is reported with the path and the underlying cause.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, reobferrors.NewFileError("open archive", path, err)
	}
	return &Reader{path: path, zr: zr}, nil
}

// Path returns the archive path
func (r *Reader) Path() string {
	return r.path
}

// Close releases the archive
func (r *Reader) Close() error {
	return r.zr.Close()
}

// Each calls fn for every entry accepted by filter, in archive order.
// Iteration stops at the first error from fn or when ctx is done.
func (r *Reader) Each(ctx context.Context, filter Filter, fn func(Entry) error) error {
	visited, skipped := 0, 0
	for _, zf := range r.zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if zf.FileInfo().IsDir() || !filter.Match(zf.Name) {
			skipped++
			continue
		}

		data, err := readEntry(zf)
		if err != nil {
			return reobferrors.NewFileError("read entry "+zf.Name, r.path, err)
		}
		if err := fn(Entry{Name: zf.Name, Data: data}); err != nil {
			return err
		}
		visited++
	}
	debug.LogScan("%s: %d entries visited, %d skipped\n", r.path, visited, skipped)
	return nil
}

func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Walk opens path, visits its entries and closes it again
func Walk(ctx context.Context, path string, filter Filter, fn func(Entry) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Each(ctx, filter, fn)
}
