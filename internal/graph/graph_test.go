package graph

import "testing"

func contains[N comparable](nodes []N, target N) bool {
	for _, n := range nodes {
		if n == target {
			return true
		}
	}
	return false
}

func TestFindLoopNoCycle(t *testing.T) {
	g := New[int]()
	g.AddEdgeAndNodes(0, 1)
	g.AddEdgeAndNodes(0, 2)
	g.AddEdgeAndNodes(0, 3)
	g.AddEdgeAndNodes(1, 2)
	g.AddEdgeAndNodes(4, 0)

	if cycle, found := g.FindLoop(); found {
		t.Fatalf("expected no loop, got %v", cycle)
	}
}

func TestFindLoopDetectsCycle(t *testing.T) {
	g := New[int]()
	g.AddEdgeAndNodes(0, 1)
	g.AddEdgeAndNodes(0, 2)
	g.AddEdgeAndNodes(0, 3)
	g.AddEdgeAndNodes(1, 2)
	g.AddEdgeAndNodes(4, 0)
	g.AddEdgeAndNodes(2, 4)

	cycle, found := g.FindLoop()
	if !found {
		t.Fatal("expected a loop to be found")
	}
	for _, want := range []int{0, 2, 4} {
		if !contains(cycle, want) {
			t.Errorf("expected cycle %v to contain node %d", cycle, want)
		}
	}

	// Every consecutive pair (including wraparound) must be a real edge.
	for i, n := range cycle {
		next := cycle[(i+1)%len(cycle)]
		if _, ok := g.nodes[n][next]; !ok {
			t.Errorf("cycle %v has no edge %v -> %v", cycle, n, next)
		}
	}
}

func TestFindLoopSelfLoop(t *testing.T) {
	g := New[string]()
	g.AddEdgeAndNodes("a", "a")

	cycle, found := g.FindLoop()
	if !found {
		t.Fatal("expected self-loop to be detected")
	}
	if len(cycle) != 1 || cycle[0] != "a" {
		t.Fatalf("expected cycle [a], got %v", cycle)
	}
}

func TestAddEdgeAndNodesDeduplicates(t *testing.T) {
	g := New[int]()
	g.AddEdgeAndNodes(1, 2)
	g.AddEdgeAndNodes(1, 2)

	if got := len(g.nodes[1]); got != 1 {
		t.Fatalf("expected a single deduplicated edge, got %d", got)
	}
	if g.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.NodeCount())
	}
}
