// Package stats computes social network analysis metrics over the active
// members of the organization: components, degree and betweenness
// centrality with their centralization indices, and average geodesic
// distance. All distances are hop counts.
package stats

import (
	"slices"

	"github.com/talgya/dtosim/internal/agents"
)

// Graph is the read view the metrics need.
type Graph interface {
	ActiveAgents() []*agents.Agent
	Neighbors(id agents.AgentID) []agents.AgentID
}

// Metrics summarizes one observation of the network.
type Metrics struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	Components       int   `json:"components"`
	LargestComponent int   `json:"largest_component"`
	ComponentSizes   []int `json:"component_sizes,omitempty"` // descending

	// Degree normalized by n-1.
	MinDegree            float64 `json:"min_degree"`
	AvgDegree            float64 `json:"avg_degree"`
	MaxDegree            float64 `json:"max_degree"`
	DegreeCentralization float64 `json:"degree_centralization"`

	// Betweenness normalized by (n-1)(n-2)/2.
	MinBetweenness            float64 `json:"min_betweenness"`
	AvgBetweenness            float64 `json:"avg_betweenness"`
	MaxBetweenness            float64 `json:"max_betweenness"`
	BetweennessCentralization float64 `json:"betweenness_centralization"`

	// AverageGeodesic is the mean distance over unordered pairs of distinct
	// agents in the same component. Pairs in different components are
	// excluded; when no pair is reachable it is 0 and ReachablePairs is 0.
	AverageGeodesic float64 `json:"average_geodesic"`
	ReachablePairs  int     `json:"reachable_pairs"`
	Diameter        int     `json:"diameter"`
}

// view is the active subgraph re-indexed 0..n-1 in agent ID order.
type view struct {
	adj   [][]int
	edges int
}

func snapshot(g Graph) view {
	active := g.ActiveAgents()
	index := make(map[agents.AgentID]int, len(active))
	for i, a := range active {
		index[a.ID] = i
	}
	v := view{adj: make([][]int, len(active))}
	for i, a := range active {
		for _, nid := range g.Neighbors(a.ID) {
			if j, ok := index[nid]; ok {
				v.adj[i] = append(v.adj[i], j)
				if i < j {
					v.edges++
				}
			}
		}
	}
	return v
}

// Compute returns the metrics of the current active graph.
func Compute(g Graph) Metrics {
	v := snapshot(g)
	n := len(v.adj)
	m := Metrics{Nodes: n, Edges: v.edges}
	if n == 0 {
		return m
	}

	m.ComponentSizes = components(v.adj)
	m.Components = len(m.ComponentSizes)
	m.LargestComponent = m.ComponentSizes[0]

	degrees := make([]float64, n)
	if n > 1 {
		for i, nbrs := range v.adj {
			degrees[i] = float64(len(nbrs)) / float64(n-1)
		}
	}
	m.MinDegree, m.AvgDegree, m.MaxDegree = summarize(degrees)
	if n > 2 {
		m.DegreeCentralization = deviationSum(degrees, m.MaxDegree) / float64(n-2)
	}

	between, distSum, pairs, diameter := brandes(v.adj)
	if n > 2 {
		norm := float64((n-1)*(n-2)) / 2
		for i := range between {
			between[i] /= norm
		}
	} else {
		clear(between)
	}
	m.MinBetweenness, m.AvgBetweenness, m.MaxBetweenness = summarize(between)
	if n > 2 {
		m.BetweennessCentralization = deviationSum(between, m.MaxBetweenness) / float64(n-1)
	}

	if pairs > 0 {
		m.AverageGeodesic = float64(distSum) / float64(pairs)
	}
	m.ReachablePairs = pairs / 2
	m.Diameter = diameter
	return m
}

// components returns component sizes in descending order.
func components(adj [][]int) []int {
	seen := make([]bool, len(adj))
	var sizes []int
	queue := make([]int, 0, len(adj))
	for s := range adj {
		if seen[s] {
			continue
		}
		seen[s] = true
		queue = append(queue[:0], s)
		size := 0
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			size++
			for _, w := range adj[u] {
				if !seen[w] {
					seen[w] = true
					queue = append(queue, w)
				}
			}
		}
		sizes = append(sizes, size)
	}
	slices.SortFunc(sizes, func(a, b int) int { return b - a })
	return sizes
}

// brandes runs one BFS per source, accumulating raw undirected betweenness
// (each unordered pair counted once) alongside the distance totals over
// ordered reachable pairs.
func brandes(adj [][]int) (between []float64, distSum, pairs, diameter int) {
	n := len(adj)
	between = make([]float64, n)
	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := range dist {
			dist[i] = -1
			sigma[i] = 0
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		stack = stack[:0]
		queue = append(queue[:0], s)
		dist[s] = 0
		sigma[s] = 1

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			stack = append(stack, v)
			for _, w := range adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
					distSum += dist[w]
					pairs++
					diameter = max(diameter, dist[w])
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				between[w] += delta[w]
			}
		}
	}

	for i := range between {
		between[i] /= 2
	}
	return between, distSum, pairs, diameter
}

func summarize(xs []float64) (lo, avg, hi float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	lo, hi = xs[0], xs[0]
	sum := 0.0
	for _, x := range xs {
		lo = min(lo, x)
		hi = max(hi, x)
		sum += x
	}
	return lo, sum / float64(len(xs)), hi
}

func deviationSum(xs []float64, top float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += top - x
	}
	return sum
}
