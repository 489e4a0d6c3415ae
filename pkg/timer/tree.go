package timer

// constructTree builds each region's children list from the recorded
// parent sets, under the configured parent-selection policy. The result
// is a DAG rooted at the sentinel: an edge whose parent is already a
// descendant of the child is rejected and logged, never fatal.
//
// Children are rebuilt from scratch on every call so the report can be
// rendered more than once.
func (p *Profiler) constructTree(ts *threadState) {
	for r := ts.root; r != nil; r = r.next {
		r.children = nil
	}

	for r := ts.root; r != nil; r = r.next {
		switch p.method {
		case FirstParent:
			if len(r.parents) > 0 {
				p.newChild(r.parents[0], r)
			}
		case LastParent:
			if len(r.parents) > 0 {
				p.newChild(r.parents[len(r.parents)-1], r)
			}
		case MostFrequent:
			maxcount := 0
			var pick *Region
			for i, pr := range r.parents {
				if r.parentCount[i] > maxcount {
					pick = pr
					maxcount = r.parentCount[i]
				}
			}
			if pick != nil { // orphans have no parent at all
				p.newChild(pick, r)
			}
		case FullTree:
			for _, pr := range r.parents {
				p.newChild(pr, r)
			}
		}
	}
}

// newChild links child under parent unless the edge would close a cycle.
func (p *Profiler) newChild(parent, child *Region) {
	if parent == child {
		p.logger.Warn().Str("timer", child.name).Msg("timer cannot be a parent of itself")
		return
	}
	if isDescendant(child, parent) {
		p.logger.Warn().Str("parent", parent.name).Str("child", child.name).
			Msg("loop detected, not adding to the call tree")
		return
	}

	parent.children = append(parent.children, child)
}

// isDescendant reports whether node2 is reachable from node1 through
// child edges added so far. Breadth before depth.
func isDescendant(node1, node2 *Region) bool {
	for _, c := range node1.children {
		if c == node2 {
			return true
		}
	}
	for _, c := range node1.children {
		if isDescendant(c, node2) {
			return true
		}
	}

	return false
}

// treeDepth returns the maximum depth below r, with r itself at start.
func treeDepth(r *Region, start int) int {
	max := start
	for _, c := range r.children {
		if d := treeDepth(c, start+1); d > max {
			max = d
		}
	}

	return max
}
