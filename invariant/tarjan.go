// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invariant

// tarjanState holds working state for an iterative Tarjan strongly
// connected components pass over a dense-index adjacency list.
//
// The recursion is flattened onto an explicit frame stack so arbitrarily
// deep dependency chains cannot overflow the goroutine stack.
type tarjanState struct {
	adjacency [][]int

	index   []int
	lowLink []int
	onStack []bool

	stack   []int
	counter int

	// sccs collects components in discovery order; members are dense
	// indexes, unordered.
	sccs [][]int
}

// tarjanFrame is one flattened recursion frame.
type tarjanFrame struct {
	node int
	// edgeIdx is the next adjacency entry to visit for node.
	edgeIdx int
}

// stronglyConnectedComponents runs Tarjan's algorithm over the adjacency
// list and returns every SCC, including singletons.
//
// Complexity: O(V + E).
func stronglyConnectedComponents(adjacency [][]int) [][]int {
	n := len(adjacency)
	st := &tarjanState{
		adjacency: adjacency,
		index:     make([]int, n),
		lowLink:   make([]int, n),
		onStack:   make([]bool, n),
		stack:     make([]int, 0, n),
	}
	for i := range st.index {
		st.index[i] = -1
	}

	for v := 0; v < n; v++ {
		if st.index[v] == -1 {
			st.strongConnect(v)
		}
	}
	return st.sccs
}

// strongConnect is the iterative core of Tarjan's algorithm rooted at v.
func (st *tarjanState) strongConnect(v int) {
	frames := []tarjanFrame{{node: v}}

	st.index[v] = st.counter
	st.lowLink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for len(frames) > 0 {
		frame := &frames[len(frames)-1]
		node := frame.node

		if frame.edgeIdx < len(st.adjacency[node]) {
			next := st.adjacency[node][frame.edgeIdx]
			frame.edgeIdx++

			switch {
			case st.index[next] == -1:
				// Unvisited: push a frame (the recursive call).
				st.index[next] = st.counter
				st.lowLink[next] = st.counter
				st.counter++
				st.stack = append(st.stack, next)
				st.onStack[next] = true
				frames = append(frames, tarjanFrame{node: next})
			case st.onStack[next]:
				// Back edge into the current SCC stack.
				if st.index[next] < st.lowLink[node] {
					st.lowLink[node] = st.index[next]
				}
			}
			continue
		}

		// All successors visited: pop the frame (the recursive return).
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			parent := frames[len(frames)-1].node
			if st.lowLink[node] < st.lowLink[parent] {
				st.lowLink[parent] = st.lowLink[node]
			}
		}

		// Root of an SCC: pop the component off the node stack.
		if st.lowLink[node] == st.index[node] {
			var scc []int
			for {
				top := st.stack[len(st.stack)-1]
				st.stack = st.stack[:len(st.stack)-1]
				st.onStack[top] = false
				scc = append(scc, top)
				if top == node {
					break
				}
			}
			st.sccs = append(st.sccs, scc)
		}
	}
}
