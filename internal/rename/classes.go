// Package rename builds the class and accessor rename tables.
package rename

import (
	"sort"

	"github.com/standardbeagle/reobf/internal/debug"
	"github.com/standardbeagle/reobf/internal/index"
	"github.com/standardbeagle/reobf/internal/names"
)

// ClassTable maps an old internal class name to its new internal name
type ClassTable map[string]string

// Rename returns the new name of class, or class itself when there is none
func (t ClassTable) Rename(class string) string {
	if renamed, ok := t[class]; ok {
		return renamed
	}
	return class
}

// Keys returns the old names in sorted order
func (t ClassTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveClasses maps every configured class to the candidate class that
// declares the same marker. Interfaces are skipped, and entries whose marker
// is not found in the candidate are returned as unresolved rather than
// treated as errors. A later entry for the same class overrides an earlier one.
func ResolveClasses(exceptions []names.Exception, candidate *index.Index) (ClassTable, []names.Exception) {
	table := make(ClassTable)
	var unresolved []names.Exception

	for _, exc := range exceptions {
		if candidate.IsInterface(exc.Class) {
			continue
		}
		found, ok := candidate.Markers[exc.Marker+"_"]
		if !ok {
			debug.LogResolve("no candidate class declares marker %s for %s\n", exc.Marker, exc.Class)
			unresolved = append(unresolved, exc)
			continue
		}
		table[exc.Class] = found
	}

	debug.LogResolve("%d class renames resolved, %d unresolved\n", len(table), len(unresolved))
	return table, unresolved
}
