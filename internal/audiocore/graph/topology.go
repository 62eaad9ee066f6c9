package graph

// Topology helpers. Callers hold g.mu.

// adjacency builds the forward adjacency list from the edge set.
func (g *Graph) adjacency() map[NodeID][]NodeID {
	adj := make(map[NodeID][]NodeID, len(g.nodes))
	for _, e := range g.edges {
		adj[e.from] = append(adj[e.from], e.to)
	}
	return adj
}

// hasCycle runs DFS with a recursion stack: revisiting a node already on
// the stack means the edge set closes a loop.
func (g *Graph) hasCycle() bool {
	adj := g.adjacency()
	visited := make(map[NodeID]bool, len(g.nodes))
	onStack := make(map[NodeID]bool, len(g.nodes))

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		visited[id] = true
		onStack[id] = true
		for _, next := range adj[id] {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for id := range g.nodes {
		if !visited[id] && visit(id) {
			return true
		}
	}
	return false
}

// topologicalOrder returns the nodes in dependency order: every producer
// precedes its consumers. DFS post-order, reversed.
func (g *Graph) topologicalOrder() []NodeID {
	adj := g.adjacency()
	visited := make(map[NodeID]bool, len(g.nodes))
	order := make([]NodeID, 0, len(g.nodes))

	var visit func(id NodeID)
	visit = func(id NodeID) {
		visited[id] = true
		for _, next := range adj[id] {
			if !visited[next] {
				visit(next)
			}
		}
		order = append(order, id)
	}

	for id := range g.nodes {
		if !visited[id] {
			visit(id)
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// unreachable returns the ids of nodes no source can reach, via BFS over
// the forward edges from every source node.
func (g *Graph) unreachable() []NodeID {
	adj := g.adjacency()
	reached := make(map[NodeID]bool, len(g.nodes))

	var frontier []NodeID
	for id, n := range g.nodes {
		if n.kind == kindSource {
			reached[id] = true
			frontier = append(frontier, id)
		}
	}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		for _, next := range adj[id] {
			if !reached[next] {
				reached[next] = true
				frontier = append(frontier, next)
			}
		}
	}

	var missing []NodeID
	for id := range g.nodes {
		if !reached[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
