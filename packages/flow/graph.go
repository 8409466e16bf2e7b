package flow

// StartNodeID is where execution begins
const StartNodeID = "1"

// order returns the nodes reachable from StartNodeID, depth first, each node
// before its successors and successors in edge order. A node is visited once
// even when several edges lead to it, so cycles terminate. Edges naming
// unknown nodes are followed but contribute nothing.
func order(nodes []Node, edges []Edge) []Node {
	byID := make(map[string][]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = append(byID[n.ID], n)
	}

	adjacency := make(map[string][]string)
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	var (
		result  []Node
		visited = make(map[string]bool)
		visit   func(id string)
	)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		result = append(result, byID[id]...)
		for _, next := range adjacency[id] {
			visit(next)
		}
	}
	visit(StartNodeID)

	return result
}
