package timer

// The per-thread hash index resolves a region name (or instrumentation
// address) to its entry on every start and stop. Collisions go into a
// per-bucket slice searched linearly.

type bucket struct {
	entries []*Region
}

// hashName sums byte values weighted by their 1-based position over at
// most MaxChars bytes, modulo the table size.
func hashName(name string, tablesize int) int {
	h := 0
	for i := 0; i < len(name) && i < MaxChars; i++ {
		h += int(name[i]) * (i + 1)
	}

	return h % tablesize
}

// hashAddr hashes an instrumentation address. Linkers align functions, so
// the low bits carry no information.
func hashAddr(addr uintptr, tablesize int) int {
	return int((addr >> 4) % uintptr(tablesize))
}

// getEntry finds the entry for name, or nil. The bucket index is returned
// either way so a following insert can reuse it.
func (ts *threadState) getEntry(name string) (*Region, int) {
	indx := hashName(name, len(ts.hash))
	for _, r := range ts.hash[indx].entries {
		if r.name == name {
			return r, indx
		}
	}

	return nil, indx
}

func (ts *threadState) getEntryInstr(addr uintptr) (*Region, int) {
	indx := hashAddr(addr, len(ts.hash))
	for _, r := range ts.hash[indx].entries {
		if r.address == addr {
			return r, indx
		}
	}

	return nil, indx
}

// insert appends a new region to the insertion-ordered list and to its
// hash bucket, and keeps the thread's longest-name figure current.
func (ts *threadState) insert(r *Region, indx int) {
	if len(r.name) > ts.maxNameLen {
		ts.maxNameLen = len(r.name)
	}
	ts.last.next = r
	ts.last = r
	ts.hash[indx].entries = append(ts.hash[indx].entries, r)
	ts.nregions++
}
