package network

import (
	"fmt"

	"github.com/talgya/dtosim/internal/agents"
)

// State is the serializable form of a Graph.
type State struct {
	DirectRetail bool           `json:"direct_retail"`
	Agents       []agents.Agent `json:"agents"`
	Edges        []Edge         `json:"edges"`
	History      []Edge         `json:"history,omitempty"`
	Version      uint64         `json:"version"`
}

// Export copies the graph into a State.
func (g *Graph) Export() State {
	s := State{
		DirectRetail: g.directRetail,
		Agents:       make([]agents.Agent, len(g.agents)),
		Edges:        g.Edges(),
		History:      g.History(),
		Version:      g.version,
	}
	for i, a := range g.agents {
		s.Agents[i] = *a
	}
	return s
}

// Import rebuilds a Graph from a State. Agent IDs must be dense from 1 and
// every live edge must join two active agents of a permitted role pair.
func Import(s State) (*Graph, error) {
	g := New(s.DirectRetail)
	for i := range s.Agents {
		a := s.Agents[i]
		if a.ID != agents.AgentID(i+1) {
			return nil, fmt.Errorf("agent at index %d has id %d", i, a.ID)
		}
		if !a.Role.Valid() {
			return nil, fmt.Errorf("%w: agent %d", ErrInvalidRole, a.ID)
		}
		if !(a.Drug >= 0) || !(a.Cash >= 0) {
			return nil, fmt.Errorf("%w: agent %d", ErrNegativeBalance, a.ID)
		}
		g.agents = append(g.agents, &a)
		g.adj = append(g.adj, make(map[agents.AgentID]float64))
	}
	for _, e := range s.Edges {
		x, err := g.active(e.A)
		if err != nil {
			return nil, fmt.Errorf("edge %d–%d: %w", e.A, e.B, err)
		}
		y, err := g.active(e.B)
		if err != nil {
			return nil, fmt.Errorf("edge %d–%d: %w", e.A, e.B, err)
		}
		if e.A == e.B {
			return nil, ErrSelfLink
		}
		if !Permitted(x.Role, y.Role, g.directRetail) {
			return nil, fmt.Errorf("edge %d–%d: %w", e.A, e.B, ErrRolePairNotPermitted)
		}
		if _, dup := g.adj[e.A-1][e.B]; dup {
			return nil, fmt.Errorf("duplicate edge %d–%d", e.A, e.B)
		}
		g.adj[e.A-1][e.B] = e.Weight
		g.adj[e.B-1][e.A] = e.Weight
		g.edges++
	}
	g.history = append(g.history, s.History...)
	g.version = s.Version
	return g, nil
}
