package lsm

import "sort"

// sortEntries orders a memtable snapshot by InternalKey. This is the one
// place in the package that reaches for sort.Slice instead of a
// third-party alternative: ordering an in-memory slice by a comparator
// is exactly what the standard library's sort package is for, and
// nothing in the example corpus pulls in a dedicated sorting library for
// a job this ordinary.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return Compare(entries[i].Key, entries[j].Key) < 0
	})
}
