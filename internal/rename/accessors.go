package rename

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/reobf/internal/debug"
	"github.com/standardbeagle/reobf/internal/index"
	"github.com/standardbeagle/reobf/internal/names"
)

// Mode controls how structurally identical accessors are paired
type Mode int

const (
	// ModeFirstMatch pairs each reference accessor with the first matching
	// candidate in declaration order, even when several candidates match.
	ModeFirstMatch Mode = iota
	// ModeStrict leaves ambiguous groups unpaired.
	ModeStrict
)

// String returns the mode name used in configuration
func (m Mode) String() string {
	switch m {
	case ModeFirstMatch:
		return "first-match"
	case ModeStrict:
		return "strict"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name; the empty string selects ModeFirstMatch
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "first-match":
		return ModeFirstMatch, nil
	case "strict":
		return ModeStrict, nil
	default:
		return 0, fmt.Errorf("unknown reconcile mode %q (want first-match or strict)", s)
	}
}

// AccessorTable maps a reference accessor's owner/name to the candidate's
type AccessorTable map[string]string

// Options configures Reconcile
type Options struct {
	Mode Mode
}

// Pair is a reference accessor and the candidate accessor it became
type Pair struct {
	Reference *index.Accessor
	Candidate *index.Accessor
}

// AmbiguousGroup is a set of accessors sharing owner, descriptor and
// fingerprint where pairing cannot tell the members apart
type AmbiguousGroup struct {
	Owner       string
	Desc        string
	Fingerprint string
	References  []string
	Candidates  []string
}

// Result is the outcome of Reconcile
type Result struct {
	Renames   AccessorTable
	Pairs     []Pair
	Exact     int
	Unmatched []*index.Accessor // reference accessors without a counterpart
	Unclaimed []*index.Accessor // candidate accessors nobody paired with
	Ambiguous []AmbiguousGroup
}

// TranslateMembers returns a copy of table whose fingerprint member names are
// translated through names, so reference accessors can be compared against a
// candidate compiled with final names. Owners are not translated.
func TranslateMembers(table *index.AccessorTable, tbl names.Table) *index.AccessorTable {
	return table.Map(func(a *index.Accessor) *index.Accessor {
		cp := *a
		cp.Fingerprint = a.Fingerprint.RenameMembers(tbl.Lookup)
		return &cp
	})
}

type groupKey struct {
	hash  uint64
	owner string
	desc  string
}

func keyOf(a *index.Accessor) groupKey {
	return groupKey{hash: a.Fingerprint.Hash(), owner: a.Owner, desc: a.Desc}
}

func matches(r, c *index.Accessor) bool {
	return r.Owner == c.Owner && r.Desc == c.Desc && r.Fingerprint.Equal(c.Fingerprint)
}

// Reconcile pairs reference accessors with candidate accessors.
//
// Accessors with the same key and fingerprint in both tables are already
// aligned and drop out. Each remaining reference accessor, in table order,
// then takes the first remaining candidate with the same owner, descriptor
// and fingerprint. Reference accessors left over are returned in Unmatched.
// Neither input table is modified.
func Reconcile(reference, candidate *index.AccessorTable, opts Options) Result {
	refs := reference.All()
	cands := candidate.All()
	refDone := make([]bool, len(refs))
	candDone := make([]bool, len(cands))
	candPos := make(map[string]int, len(cands))
	for i, c := range cands {
		candPos[c.Key()] = i
	}

	res := Result{Renames: make(AccessorTable)}

	for i, r := range refs {
		j, ok := candPos[r.Key()]
		if ok && cands[j].Fingerprint.String() == r.Fingerprint.String() {
			refDone[i] = true
			candDone[j] = true
			res.Exact++
		}
	}

	// Candidate positions per group, in insertion order
	buckets := make(map[groupKey][]int)
	for j, c := range cands {
		if !candDone[j] {
			buckets[keyOf(c)] = append(buckets[keyOf(c)], j)
		}
	}

	ambiguous := findAmbiguous(refs, refDone, cands, buckets)
	for _, g := range ambiguous.groups {
		res.Ambiguous = append(res.Ambiguous, g)
	}

	for i, r := range refs {
		if refDone[i] {
			continue
		}
		if opts.Mode == ModeStrict && ambiguous.refs[i] {
			continue
		}
		for _, j := range buckets[keyOf(r)] {
			if candDone[j] || !matches(r, cands[j]) {
				continue
			}
			refDone[i] = true
			candDone[j] = true
			res.Pairs = append(res.Pairs, Pair{Reference: r, Candidate: cands[j]})
			res.Renames[r.Member()] = cands[j].Member()
			debug.LogReconcile("%s -> %s\n", r.Member(), cands[j].Member())
			break
		}
	}

	for i, r := range refs {
		if !refDone[i] {
			res.Unmatched = append(res.Unmatched, r)
		}
	}
	for j, c := range cands {
		if !candDone[j] {
			res.Unclaimed = append(res.Unclaimed, c)
		}
	}

	debug.LogReconcile("%d exact, %d paired, %d unmatched, %d ambiguous groups (mode %s)\n",
		res.Exact, len(res.Pairs), len(res.Unmatched), len(res.Ambiguous), opts.Mode)
	return res
}

type ambiguity struct {
	groups []AmbiguousGroup
	refs   map[int]bool
}

// findAmbiguous reports groups where more than one reference or more than one
// candidate share owner, descriptor and fingerprint, and both sides are present.
func findAmbiguous(refs []*index.Accessor, refDone []bool, cands []*index.Accessor, buckets map[groupKey][]int) ambiguity {
	out := ambiguity{refs: make(map[int]bool)}

	type group struct {
		refs  []int
		cands []int
	}
	var order []groupKey
	groups := make(map[groupKey]*group)

	for i, r := range refs {
		if refDone[i] {
			continue
		}
		k := keyOf(r)
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		g.refs = append(g.refs, i)
	}

	for _, k := range order {
		g := groups[k]
		first := refs[g.refs[0]]
		for _, j := range buckets[k] {
			if matches(first, cands[j]) {
				g.cands = append(g.cands, j)
			}
		}
		if len(g.cands) == 0 || (len(g.refs) < 2 && len(g.cands) < 2) {
			continue
		}

		ag := AmbiguousGroup{Owner: first.Owner, Desc: first.Desc, Fingerprint: first.Fingerprint.String()}
		for _, i := range g.refs {
			ag.References = append(ag.References, refs[i].Member())
			out.refs[i] = true
		}
		for _, j := range g.cands {
			ag.Candidates = append(ag.Candidates, cands[j].Member())
		}
		out.groups = append(out.groups, ag)
	}

	sort.SliceStable(out.groups, func(a, b int) bool {
		return out.groups[a].Owner < out.groups[b].Owner
	})
	return out
}
