package stats

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/network"
)

// build creates one agent per role; link pairs index into the created agents.
func build(t *testing.T, roles []agents.Role, links [][2]int) (*network.Graph, []agents.AgentID) {
	t.Helper()
	g := network.New(true)
	ids := make([]agents.AgentID, len(roles))
	for i, r := range roles {
		a, err := g.CreateAgent(r, 0, 0)
		require.NoError(t, err)
		ids[i] = a.ID
	}
	for _, l := range links {
		require.NoError(t, g.Connect(ids[l[0]], ids[l[1]], 1))
	}
	return g, ids
}

func star(t *testing.T, leaves int) *network.Graph {
	roles := []agents.Role{agents.RolePackager}
	var links [][2]int
	for i := 1; i <= leaves; i++ {
		roles = append(roles, agents.RoleRetailer)
		links = append(links, [2]int{0, i})
	}
	g, _ := build(t, roles, links)
	return g
}

func TestEmptyGraph(t *testing.T) {
	m := Compute(network.New(false))
	assert.Equal(t, Metrics{}, m)
}

func TestSingleNode(t *testing.T) {
	g, _ := build(t, []agents.Role{agents.RoleTrafficker}, nil)
	m := Compute(g)
	assert.Equal(t, 1, m.Nodes)
	assert.Equal(t, 1, m.Components)
	assert.Zero(t, m.MaxDegree)
	assert.Zero(t, m.AverageGeodesic)
	assert.Zero(t, m.ReachablePairs)
}

func TestStarIsFullyCentralized(t *testing.T) {
	m := Compute(star(t, 5))
	assert.Equal(t, 6, m.Nodes)
	assert.Equal(t, 5, m.Edges)
	assert.Equal(t, 1, m.Components)

	assert.InDelta(t, 1.0, m.MaxDegree, 1e-12)
	assert.InDelta(t, 0.2, m.MinDegree, 1e-12)
	assert.InDelta(t, 1.0, m.DegreeCentralization, 1e-12)

	assert.InDelta(t, 1.0, m.MaxBetweenness, 1e-12)
	assert.Zero(t, m.MinBetweenness)
	assert.InDelta(t, 1.0, m.BetweennessCentralization, 1e-12)

	// 5 hub pairs at 1, 10 leaf pairs at 2.
	assert.Equal(t, 15, m.ReachablePairs)
	assert.InDelta(t, 25.0/15.0, m.AverageGeodesic, 1e-12)
	assert.Equal(t, 2, m.Diameter)
}

func TestPathBetweenness(t *testing.T) {
	// T - P - R - P - T laid out as a path of five.
	T, P, R := agents.RoleTrafficker, agents.RolePackager, agents.RoleRetailer
	g, _ := build(t, []agents.Role{T, P, R, P, T}, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}})
	m := Compute(g)

	// Raw betweenness along the path is 0, 3, 4, 3, 0.
	norm := 4.0 * 3.0 / 2.0
	assert.InDelta(t, 4.0/norm, m.MaxBetweenness, 1e-12)
	assert.InDelta(t, (0+3+4+3+0)/norm/5, m.AvgBetweenness, 1e-12)
	assert.Equal(t, 4, m.Diameter)
	assert.InDelta(t, 2.0, m.AverageGeodesic, 1e-12)
}

func TestDisconnectedPairsExcluded(t *testing.T) {
	T, P := agents.RoleTrafficker, agents.RolePackager
	g, _ := build(t, []agents.Role{T, P, T, P, T}, [][2]int{{0, 1}, {2, 3}})
	m := Compute(g)
	assert.Equal(t, 3, m.Components)
	assert.Equal(t, []int{2, 2, 1}, m.ComponentSizes)
	assert.Equal(t, 2, m.LargestComponent)
	assert.Equal(t, 2, m.ReachablePairs)
	assert.Equal(t, 1.0, m.AverageGeodesic)
}

func TestInactiveAgentsIgnored(t *testing.T) {
	g := star(t, 4)
	require.NoError(t, g.RemoveAgent(1, 1))
	m := Compute(g)
	assert.Equal(t, 4, m.Nodes)
	assert.Zero(t, m.Edges)
	assert.Equal(t, 4, m.Components)
	assert.Zero(t, m.AverageGeodesic)
}

// randomGraph builds a supply-chain graph from generated link choices.
func randomGraph(nt, np, nr int, picks []int) *network.Graph {
	g := network.New(false)
	var ts, ps []agents.AgentID
	for i := 0; i < nt; i++ {
		a, _ := g.CreateAgent(agents.RoleTrafficker, 0, 0)
		ts = append(ts, a.ID)
	}
	for i := 0; i < np; i++ {
		a, _ := g.CreateAgent(agents.RolePackager, 0, 0)
		ps = append(ps, a.ID)
	}
	var rs []agents.AgentID
	for i := 0; i < nr; i++ {
		a, _ := g.CreateAgent(agents.RoleRetailer, 0, 0)
		rs = append(rs, a.ID)
	}
	for i, pick := range picks {
		p := ps[pick%len(ps)]
		if i%2 == 0 {
			_ = g.Connect(ts[(pick/7)%len(ts)], p, 1)
		} else {
			_ = g.Connect(p, rs[(pick/3)%len(rs)], 1)
		}
	}
	return g
}

func oracle(g *network.Graph) (*simple.UndirectedGraph, []agents.AgentID) {
	og := simple.NewUndirectedGraph()
	var ids []agents.AgentID
	for _, a := range g.ActiveAgents() {
		og.AddNode(simple.Node(int64(a.ID)))
		ids = append(ids, a.ID)
	}
	for _, e := range g.Edges() {
		og.SetEdge(simple.Edge{F: simple.Node(int64(e.A)), T: simple.Node(int64(e.B))})
	}
	return og, ids
}

func TestAgainstGonum(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("components and geodesics match gonum", prop.ForAll(
		func(nt, np, nr int, picks []int) bool {
			g := randomGraph(nt, np, nr, picks)
			m := Compute(g)
			og, ids := oracle(g)

			if len(topo.ConnectedComponents(og)) != m.Components {
				return false
			}

			all := path.DijkstraAllPaths(og)
			sum, pairs := 0.0, 0
			for i, u := range ids {
				for _, v := range ids[i+1:] {
					w := all.Weight(int64(u), int64(v))
					if math.IsInf(w, 1) {
						continue
					}
					sum += w
					pairs++
				}
			}
			if pairs != m.ReachablePairs {
				return false
			}
			if pairs == 0 {
				return m.AverageGeodesic == 0
			}
			return math.Abs(sum/float64(pairs)-m.AverageGeodesic) < 1e-9
		},
		gen.IntRange(1, 4),
		gen.IntRange(1, 5),
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("centralization lies in [0,1]", prop.ForAll(
		func(nt, np, nr int, picks []int) bool {
			m := Compute(randomGraph(nt, np, nr, picks))
			in := func(x float64) bool { return x >= -1e-12 && x <= 1+1e-12 }
			return in(m.DegreeCentralization) && in(m.BetweennessCentralization) &&
				in(m.MaxDegree) && in(m.MaxBetweenness) &&
				(m.ReachablePairs == 0 || m.AverageGeodesic >= 1)
		},
		gen.IntRange(1, 4),
		gen.IntRange(1, 5),
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
