package timer

// Test-only accessors for engine internals.

func (p *Profiler) StackIndex(t int) int { return p.threads[t].stackidx }

func (p *Profiler) RegionNames(t int) []string {
	var names []string
	for r := p.threads[t].root.next; r != nil; r = r.next {
		names = append(names, r.name)
	}

	return names
}

// ParentAccounting returns the per-parent call counts, the orphan count
// and the invocation counters of a region.
func (p *Profiler) ParentAccounting(t int, name string) (parentSum, norphan, count, nrecurse int, ok bool) {
	r, _ := p.threads[t].getEntry(truncateName(name))
	if r == nil {
		return 0, 0, 0, 0, false
	}
	for _, c := range r.parentCount {
		parentSum += c
	}

	return parentSum, r.norphan, int(r.count), int(r.nrecurse), true
}

// TreeEdges constructs the call tree and returns its (parent, child)
// edges, sentinel included.
func (p *Profiler) TreeEdges(t int) [][2]string {
	ts := p.threads[t]
	p.constructTree(ts)

	var edges [][2]string
	for r := ts.root; r != nil; r = r.next {
		for _, c := range r.children {
			edges = append(edges, [2]string{r.name, c.name})
		}
	}

	return edges
}

// ReachableFromRoot constructs the call tree and returns every region
// name reachable from the sentinel.
func (p *Profiler) ReachableFromRoot(t int) []string {
	ts := p.threads[t]
	p.constructTree(ts)

	seen := map[*Region]bool{}
	var out []string
	var walk func(r *Region)
	walk = func(r *Region) {
		if seen[r] {
			return
		}
		seen[r] = true
		if r != ts.root {
			out = append(out, r.name)
		}
		for _, c := range r.children {
			walk(c)
		}
	}
	walk(ts.root)

	return out
}

const RootName = rootName
