// Package names loads the auxiliary text inputs: member name tables
// ("old,new" per line) and exception marker configs ("Class=marker").
package names

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	reobferrors "github.com/standardbeagle/reobf/internal/errors"
)

var errNoComma = errors.New("expected old,new")

// Table maps a member name to its final name
type Table map[string]string

// Lookup adapts the table for index.Fingerprint.RenameMembers
func (t Table) Lookup(name string) (string, bool) {
	v, ok := t[name]
	return v, ok
}

// LoadTable reads name tables in order; later files override earlier ones.
// Empty paths are skipped so optional tables can be passed through as-is.
func LoadTable(paths ...string) (Table, error) {
	table := make(Table)
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := readFile(path, func(r io.Reader) error { return parseTable(path, r, table) }); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// parseTable reads the first two columns of each line. Further columns
// (side, description) are ignored and commas are never escaped.
func parseTable(path string, r io.Reader, table Table) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		key, rest, ok := strings.Cut(text, ",")
		if !ok {
			return reobferrors.NewRecordError(path, line, text, errNoComma)
		}
		value, _, _ := strings.Cut(rest, ",")
		table[key] = value
	}
	if err := scanner.Err(); err != nil {
		return reobferrors.NewFileError("read", path, err)
	}
	return nil
}

// Exception is one class marker entry of an exceptor config
type Exception struct {
	Class  string
	Marker string
}

// LoadExceptions reads class marker entries in file order. Comment lines,
// lines without '=' and member entries (any line containing '.') are skipped.
func LoadExceptions(path string) ([]Exception, error) {
	if path == "" {
		return nil, nil
	}
	var out []Exception
	err := readFile(path, func(r io.Reader) error {
		var err error
		out, err = ParseExceptions(path, r)
		return err
	})
	return out, err
}

// ParseExceptions parses exceptor config text from r
func ParseExceptions(path string, r io.Reader) ([]Exception, error) {
	var out []Exception
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.HasPrefix(text, "#") || strings.Contains(text, ".") {
			continue
		}
		class, marker, ok := strings.Cut(text, "=")
		if !ok {
			continue
		}
		// Only the first '=' separates; a second one ends the marker
		marker, _, _ = strings.Cut(marker, "=")
		out = append(out, Exception{Class: class, Marker: marker})
	}
	if err := scanner.Err(); err != nil {
		return nil, reobferrors.NewFileError("read", path, err)
	}
	return out, nil
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return reobferrors.NewFileError("open", path, err)
	}
	defer f.Close()
	return fn(f)
}
