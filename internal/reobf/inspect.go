package reobf

import (
	"context"
	"sort"

	"github.com/standardbeagle/reobf/internal/archive"
	"github.com/standardbeagle/reobf/internal/index"
)

// Inventory is the index of a single archive in a printable form
type Inventory struct {
	Summary    ArchiveSummary    `json:"summary"`
	Markers    map[string]string `json:"markers"`
	Interfaces []string          `json:"interfaces"`
	Accessors  []AccessorEntry   `json:"accessors"`
}

// AccessorEntry is one synthetic accessor and its fingerprint
type AccessorEntry struct {
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
	Hash        uint64 `json:"hash"`
}

// Inspect scans one archive and lists its markers, interfaces and accessors
func Inspect(ctx context.Context, path string, policy index.Policy, filter archive.Filter) (*Inventory, error) {
	idx, err := index.Scan(ctx, path, policyOrDefault(policy), filter)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{
		Summary:    summarize(idx),
		Markers:    idx.Markers,
		Interfaces: make([]string, 0, len(idx.Interfaces)),
		Accessors:  make([]AccessorEntry, 0, idx.Accessors.Len()),
	}
	for name := range idx.Interfaces {
		inv.Interfaces = append(inv.Interfaces, name)
	}
	sort.Strings(inv.Interfaces)

	for _, a := range idx.Accessors.All() {
		inv.Accessors = append(inv.Accessors, AccessorEntry{
			Key:         a.Key(),
			Fingerprint: a.Fingerprint.String(),
			Hash:        a.Fingerprint.Hash(),
		})
	}
	return inv, nil
}
