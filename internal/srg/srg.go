// Package srg rewrites SRG symbol mapping documents line by line.
//
// Records are single-space separated and start with a kind tag:
//
//	CL: obfClass newClass
//	FD: obfClass/obfField newClass/newField
//	MD: obfClass/obfMethod obfDesc newClass/newMethod newDesc
//
// Only the new side of each record is rewritten. Other records (PK:,
// comments, blank lines) are copied through unchanged.
package srg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/standardbeagle/reobf/internal/debug"
	reobferrors "github.com/standardbeagle/reobf/internal/errors"
	"github.com/standardbeagle/reobf/internal/rename"
)

// Record kind tags
const (
	TagClass  = "CL:"
	TagField  = "FD:"
	TagMethod = "MD:"
)

var (
	errTokenCount  = errors.New("wrong number of fields")
	errUnqualified = errors.New("member name has no owner")

	objectType = regexp.MustCompile(`L([^;]+);`)
)

// Stats counts what Rewrite changed
type Stats struct {
	Lines       int
	Classes     int // CL: records whose new name changed
	Fields      int // FD: records whose owner changed
	Methods     int // MD: records whose owner changed
	Accessors   int // MD: records replaced through the accessor table
	Descriptors int // MD: descriptors with at least one class replaced
	Passed      int // lines of other kinds
}

// Rewriter applies class and accessor rename tables to mapping records
type Rewriter struct {
	Classes   rename.ClassTable
	Accessors rename.AccessorTable
}

// RewriteLine rewrites a single record without its line terminator
func (rw *Rewriter) RewriteLine(line string) (string, error) {
	out, _, err := rw.rewrite(line)
	return out, err
}

type change int

const (
	changeNone change = 1 << iota
	changeClass
	changeField
	changeMethod
	changeAccessor
	changeDesc
	changePass
)

func (rw *Rewriter) rewrite(line string) (string, change, error) {
	fields := strings.Split(line, " ")
	var ch change

	switch fields[0] {
	case TagClass:
		if len(fields) != 3 {
			return "", 0, errTokenCount
		}
		renamed := rw.Classes.Rename(fields[2])
		if renamed != fields[2] {
			ch |= changeClass
		}
		fields[2] = renamed

	case TagField:
		if len(fields) != 3 {
			return "", 0, errTokenCount
		}
		owner, name, err := splitMember(fields[2])
		if err != nil {
			return "", 0, err
		}
		renamed := rw.Classes.Rename(owner)
		if renamed != owner {
			ch |= changeField
		}
		fields[2] = renamed + "/" + name

	case TagMethod:
		if len(fields) != 5 {
			return "", 0, errTokenCount
		}
		owner, name, err := splitMember(fields[3])
		if err != nil {
			return "", 0, err
		}
		renamed := rw.Classes.Rename(owner)
		if renamed != owner {
			ch |= changeMethod
		}
		fields[3] = renamed + "/" + name
		if mapped, ok := rw.Accessors[fields[3]]; ok {
			fields[3] = mapped
			ch |= changeAccessor
		}

		desc := rw.rewriteDesc(fields[4])
		if desc != fields[4] {
			ch |= changeDesc
		}
		fields[4] = desc

	default:
		return line, changePass, nil
	}

	if ch == 0 {
		ch = changeNone
	}
	return strings.Join(fields, " "), ch, nil
}

// rewriteDesc renames every L<class>; reference in a descriptor. The
// replacement is built by a function so '$' in names stays literal.
func (rw *Rewriter) rewriteDesc(desc string) string {
	return objectType.ReplaceAllStringFunc(desc, func(ref string) string {
		return "L" + rw.Classes.Rename(ref[1:len(ref)-1]) + ";"
	})
}

func splitMember(qualified string) (owner, name string, err error) {
	i := strings.LastIndexByte(qualified, '/')
	if i < 0 {
		return "", "", errUnqualified
	}
	return qualified[:i], qualified[i+1:], nil
}

// Rewrite copies the document from r to w, rewriting each record. Every
// output line ends with a single '\n'. The first malformed record stops
// the copy with a *errors.RecordError; path is used for error context only.
func (rw *Rewriter) Rewrite(path string, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		stats.Lines++
		text := scanner.Text()
		out, ch, err := rw.rewrite(text)
		if err != nil {
			return stats, reobferrors.NewRecordError(path, stats.Lines, text, err)
		}
		stats.count(ch)

		if _, err := bw.WriteString(out); err != nil {
			return stats, fmt.Errorf("write mapping: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return stats, fmt.Errorf("write mapping: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, reobferrors.NewFileError("read", path, err)
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("write mapping: %w", err)
	}

	debug.LogRewrite("%s: %d lines, %d classes, %d fields, %d methods, %d accessors, %d descriptors\n",
		path, stats.Lines, stats.Classes, stats.Fields, stats.Methods, stats.Accessors, stats.Descriptors)
	return stats, nil
}

func (s *Stats) count(ch change) {
	if ch&changeClass != 0 {
		s.Classes++
	}
	if ch&changeField != 0 {
		s.Fields++
	}
	if ch&changeMethod != 0 {
		s.Methods++
	}
	if ch&changeAccessor != 0 {
		s.Accessors++
	}
	if ch&changeDesc != 0 {
		s.Descriptors++
	}
	if ch&changePass != 0 {
		s.Passed++
	}
}
