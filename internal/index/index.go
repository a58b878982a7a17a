// Package index builds the per-archive facts reconciliation works from:
// the class marker map, the interface set and the synthetic accessor table.
package index

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/standardbeagle/reobf/internal/archive"
	"github.com/standardbeagle/reobf/internal/classfile"
	"github.com/standardbeagle/reobf/internal/debug"
	reobferrors "github.com/standardbeagle/reobf/internal/errors"
)

// Defaults for the scanning policy
const (
	DefaultMarkerField     = "__OBFID"
	DefaultFirstParty      = "net/minecraft/"
	DefaultAccessorPattern = `^access\$[\w$]+$`
)

// Policy decides which fields are class markers and which methods are
// synthetic accessors
type Policy struct {
	MarkerField     string
	FirstParty      []string
	AccessorPattern *regexp.Regexp
}

// DefaultPolicy returns the policy for the standard first-party namespace
func DefaultPolicy() Policy {
	return Policy{
		MarkerField:     DefaultMarkerField,
		FirstParty:      []string{DefaultFirstParty},
		AccessorPattern: regexp.MustCompile(DefaultAccessorPattern),
	}
}

// IsFirstParty reports whether an internal class name lies under a
// first-party prefix
func (p Policy) IsFirstParty(class string) bool {
	for _, prefix := range p.FirstParty {
		if strings.HasPrefix(class, prefix) {
			return true
		}
	}
	return false
}

// IsAccessor reports whether a method is a synthetic accessor to fingerprint
func (p Policy) IsAccessor(owner, name string) bool {
	if p.AccessorPattern == nil || !p.IsFirstParty(owner) {
		return false
	}
	return p.AccessorPattern.MatchString(name)
}

// MethodFilter adapts IsAccessor for the class file parser
func (p Policy) MethodFilter() classfile.MethodFilter {
	return func(owner, name, desc string) bool {
		return p.IsAccessor(owner, name)
	}
}

// Index holds the facts gathered from one archive
type Index struct {
	Source     string
	Markers    map[string]string   // marker value + "_" -> class
	Interfaces map[string]struct{} // interface class names
	Accessors  *AccessorTable
	Classes    int
}

// IsInterface reports whether class was declared as an interface
func (idx *Index) IsInterface(class string) bool {
	_, ok := idx.Interfaces[class]
	return ok
}

// MarkerKeys returns the marker keys in sorted order
func (idx *Index) MarkerKeys() []string {
	keys := make([]string, 0, len(idx.Markers))
	for k := range idx.Markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Builder folds parsed classes into an Index
type Builder struct {
	policy Policy
	idx    *Index
}

// NewBuilder creates a builder for the named source
func NewBuilder(source string, policy Policy) *Builder {
	return &Builder{
		policy: policy,
		idx: &Index{
			Source:     source,
			Markers:    make(map[string]string),
			Interfaces: make(map[string]struct{}),
			Accessors:  NewAccessorTable(),
		},
	}
}

// Add folds one class into the index
func (b *Builder) Add(cls *classfile.Class) error {
	b.idx.Classes++
	if cls.IsInterface() {
		b.idx.Interfaces[cls.Name] = struct{}{}
	}

	for _, f := range cls.Fields {
		if f.Name != b.policy.MarkerField {
			continue
		}
		if !b.policy.IsFirstParty(cls.Name) {
			return reobferrors.NewIntegrityError(cls.Name, f.Name).WithSource(b.idx.Source)
		}
		if !f.HasConstant {
			debug.LogScan("%s: marker %s has no constant value, ignored\n", cls.Name, f.Name)
			continue
		}
		b.idx.Markers[f.Constant+"_"] = cls.Name
	}

	for _, m := range cls.Methods {
		if !m.Inspected || !b.policy.IsAccessor(cls.Name, m.Name) {
			continue
		}
		fp, err := NewFingerprint(m.Insns)
		if err != nil {
			return fmt.Errorf("%s/%s%s: %w", cls.Name, m.Name, m.Desc, err)
		}
		b.idx.Accessors.Add(&Accessor{
			Owner:       cls.Name,
			Name:        m.Name,
			Desc:        m.Desc,
			Access:      m.Access,
			Fingerprint: fp,
		})
	}
	return nil
}

// Index returns the accumulated index. The builder must not be used afterwards.
func (b *Builder) Index() *Index {
	idx := b.idx
	b.idx = nil
	return idx
}

// Scan indexes every class file accepted by filter in the archive at path
func Scan(ctx context.Context, path string, policy Policy, filter archive.Filter) (*Index, error) {
	b := NewBuilder(path, policy)
	methodFilter := policy.MethodFilter()

	err := archive.Walk(ctx, path, filter, func(e archive.Entry) error {
		cls, err := classfile.Parse(e.Data,
			classfile.WithMethodFilter(methodFilter),
			classfile.WithSource(path+"!"+e.Name))
		if err != nil {
			return err
		}
		return b.Add(cls)
	})
	if err != nil {
		return nil, err
	}

	idx := b.Index()
	debug.LogScan("%s: %d classes, %d markers, %d interfaces, %d accessors\n",
		path, idx.Classes, len(idx.Markers), len(idx.Interfaces), idx.Accessors.Len())
	return idx, nil
}
