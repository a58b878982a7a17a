package index

import (
	"errors"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/reobf/internal/classfile"
)

// ErrEmptyFingerprint is returned for an accessor body without any field
// access or call. Every synthetic accessor exists to reach a member, so an
// empty body means the class was not produced by the expected compiler.
var ErrEmptyFingerprint = errors.New("accessor has no field access or call instructions")

// Fingerprint is the ordered sequence of member accesses in an accessor body
type Fingerprint struct {
	insns []classfile.Insn
	text  string
	hash  uint64
}

// NewFingerprint builds a fingerprint from at least one instruction
func NewFingerprint(insns []classfile.Insn) (Fingerprint, error) {
	if len(insns) == 0 {
		return Fingerprint{}, ErrEmptyFingerprint
	}
	own := append([]classfile.Insn(nil), insns...)

	var sb strings.Builder
	sb.WriteByte('[')
	for i, in := range own {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(in.String())
	}
	sb.WriteByte(']')
	text := sb.String()

	return Fingerprint{insns: own, text: text, hash: xxhash.Sum64String(text)}, nil
}

// Insns returns a copy of the instructions
func (f Fingerprint) Insns() []classfile.Insn {
	return append([]classfile.Insn(nil), f.insns...)
}

// Len returns the number of instructions
func (f Fingerprint) Len() int {
	return len(f.insns)
}

// String renders the fingerprint as "[OP owner/name desc, ...]"
func (f Fingerprint) String() string {
	return f.text
}

// Hash returns the xxhash of String, usable as a bucket key
func (f Fingerprint) Hash() uint64 {
	return f.hash
}

// Equal reports element-wise equality of the instruction sequences
func (f Fingerprint) Equal(o Fingerprint) bool {
	if len(f.insns) != len(o.insns) {
		return false
	}
	for i := range f.insns {
		if f.insns[i] != o.insns[i] {
			return false
		}
	}
	return true
}

// RenameMembers returns a fingerprint whose member names are translated by
// lookup. Owners and descriptors are left alone.
func (f Fingerprint) RenameMembers(lookup func(name string) (string, bool)) Fingerprint {
	insns := f.Insns()
	changed := false
	for i := range insns {
		if renamed, ok := lookup(insns[i].Name); ok && renamed != insns[i].Name {
			insns[i].Name = renamed
			changed = true
		}
	}
	if !changed {
		return f
	}
	out, _ := NewFingerprint(insns)
	return out
}

// Accessor is a synthetic accessor method and its fingerprint
type Accessor struct {
	Owner       string
	Name        string
	Desc        string
	Access      uint16
	Fingerprint Fingerprint
}

// Key is the accessor identity: owner/name followed by the descriptor
func (a *Accessor) Key() string {
	return a.Owner + "/" + a.Name + a.Desc
}

// Member is the qualified name used by method records: owner/name
func (a *Accessor) Member() string {
	return a.Owner + "/" + a.Name
}

// AccessorTable is an insertion-ordered set of accessors keyed by Key
type AccessorTable struct {
	order []*Accessor
	byKey map[string]int
}

// NewAccessorTable creates an empty table
func NewAccessorTable() *AccessorTable {
	return &AccessorTable{byKey: make(map[string]int)}
}

// Add inserts an accessor. A second accessor with the same key replaces the
// first one in place and keeps its position.
func (t *AccessorTable) Add(a *Accessor) {
	if i, ok := t.byKey[a.Key()]; ok {
		t.order[i] = a
		return
	}
	t.byKey[a.Key()] = len(t.order)
	t.order = append(t.order, a)
}

// Get looks up an accessor by key
func (t *AccessorTable) Get(key string) (*Accessor, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	return t.order[i], true
}

// Len returns the number of accessors
func (t *AccessorTable) Len() int {
	return len(t.order)
}

// All returns the accessors in insertion order
func (t *AccessorTable) All() []*Accessor {
	return append([]*Accessor(nil), t.order...)
}

// Map returns a new table with every accessor replaced by fn(accessor)
func (t *AccessorTable) Map(fn func(*Accessor) *Accessor) *AccessorTable {
	out := NewAccessorTable()
	for _, a := range t.order {
		out.Add(fn(a))
	}
	return out
}
