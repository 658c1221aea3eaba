// Package network holds the organization's member graph: agents in an arena
// keyed by ID and weighted, undirected working relationships between them.
package network

import (
	"errors"
	"fmt"
	"slices"

	"github.com/talgya/dtosim/internal/agents"
)

var (
	ErrUnknownAgent         = errors.New("unknown agent")
	ErrInactiveAgent        = errors.New("agent is not active")
	ErrSelfLink             = errors.New("agent cannot link to itself")
	ErrRolePairNotPermitted = errors.New("role pair not permitted")
	ErrInvalidWeight        = errors.New("link weight must be positive")
	ErrInvalidRole          = errors.New("invalid role")
	ErrNegativeBalance      = errors.New("negative stock or cash")
)

// Edge is an undirected link, stored with A < B.
type Edge struct {
	A      agents.AgentID `json:"a"`
	B      agents.AgentID `json:"b"`
	Weight float64        `json:"weight"`
}

// Graph is the organization network. Agents live in a slice indexed by ID-1
// and are never removed from it; removal marks the agent inactive and moves
// its incident edges to the history list.
type Graph struct {
	agents  []*agents.Agent
	adj     []map[agents.AgentID]float64
	history []Edge

	directRetail bool
	edges        int
	version      uint64
}

// New creates an empty graph. directRetail permits trafficker–retailer links.
func New(directRetail bool) *Graph {
	return &Graph{directRetail: directRetail}
}

// Permitted reports whether two roles may share a link.
func Permitted(a, b agents.Role, directRetail bool) bool {
	if a > b {
		a, b = b, a
	}
	switch {
	case a == agents.RoleTrafficker && b == agents.RolePackager:
		return true
	case a == agents.RolePackager && b == agents.RoleRetailer:
		return true
	case a == agents.RoleTrafficker && b == agents.RoleRetailer:
		return directRetail
	}
	return false
}

// DirectRetail reports whether trafficker–retailer links are permitted.
func (g *Graph) DirectRetail() bool { return g.directRetail }

// Add registers an agent, assigning the next ID. Negative stock or cash is
// rejected.
func (g *Graph) Add(a *agents.Agent) (*agents.Agent, error) {
	if !a.Role.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, a.Role)
	}
	if !(a.Drug >= 0) || !(a.Cash >= 0) {
		return nil, fmt.Errorf("%w: drug %v cash %v", ErrNegativeBalance, a.Drug, a.Cash)
	}
	a.ID = agents.AgentID(len(g.agents) + 1)
	a.Active = true
	g.agents = append(g.agents, a)
	g.adj = append(g.adj, make(map[agents.AgentID]float64))
	g.version++
	return a, nil
}

// CreateAgent registers a new active agent with the given stock and cash.
func (g *Graph) CreateAgent(role agents.Role, drug, cash float64) (*agents.Agent, error) {
	return g.Add(agents.New(role, drug, cash))
}

// Agent returns the agent with the given ID, active or not.
func (g *Graph) Agent(id agents.AgentID) (*agents.Agent, bool) {
	if id == 0 || int(id) > len(g.agents) {
		return nil, false
	}
	return g.agents[id-1], true
}

func (g *Graph) active(id agents.AgentID) (*agents.Agent, error) {
	a, ok := g.Agent(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	if !a.Active {
		return nil, fmt.Errorf("%w: %s", ErrInactiveAgent, a)
	}
	return a, nil
}

// Connect adds weight to the link between two active agents, creating it if
// absent. The link is symmetric.
func (g *Graph) Connect(a, b agents.AgentID, weight float64) error {
	if a == b {
		return ErrSelfLink
	}
	if !(weight > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}
	x, err := g.active(a)
	if err != nil {
		return err
	}
	y, err := g.active(b)
	if err != nil {
		return err
	}
	if !Permitted(x.Role, y.Role, g.directRetail) {
		return fmt.Errorf("%w: %s–%s", ErrRolePairNotPermitted, x.Role, y.Role)
	}
	if _, ok := g.adj[a-1][b]; !ok {
		g.edges++
	}
	g.adj[a-1][b] += weight
	g.adj[b-1][a] += weight
	g.version++
	return nil
}

// RemoveAgent marks an agent inactive and archives its links. Removing an
// already inactive agent is a no-op.
func (g *Graph) RemoveAgent(id agents.AgentID, tick uint64) error {
	a, ok := g.Agent(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	if !a.Active {
		return nil
	}
	for _, n := range sortedKeys(g.adj[id-1]) {
		g.history = append(g.history, makeEdge(id, n, g.adj[id-1][n]))
		delete(g.adj[n-1], id)
		g.edges--
	}
	g.adj[id-1] = make(map[agents.AgentID]float64)
	a.Active = false
	a.Available = false
	a.ArrestedTick = tick
	g.version++
	return nil
}

// ActiveAgents returns all active agents in ID order.
func (g *Graph) ActiveAgents() []*agents.Agent {
	out := make([]*agents.Agent, 0, len(g.agents))
	for _, a := range g.agents {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

// ActiveByRole returns active agents of one role in ID order.
func (g *Graph) ActiveByRole(role agents.Role) []*agents.Agent {
	var out []*agents.Agent
	for _, a := range g.agents {
		if a.Active && a.Role == role {
			out = append(out, a)
		}
	}
	return out
}

// CountByRole returns the number of active agents per role.
func (g *Graph) CountByRole() [agents.NumRoles]int {
	var counts [agents.NumRoles]int
	for _, a := range g.agents {
		if a.Active {
			counts[a.Role]++
		}
	}
	return counts
}

// ActiveCount is the number of active agents.
func (g *Graph) ActiveCount() int {
	n := 0
	for _, a := range g.agents {
		if a.Active {
			n++
		}
	}
	return n
}

// All returns every agent ever registered, in ID order.
func (g *Graph) All() []*agents.Agent {
	return slices.Clone(g.agents)
}

// Len is the number of agents ever registered.
func (g *Graph) Len() int { return len(g.agents) }

// Neighbors returns the IDs linked to id in ascending order.
func (g *Graph) Neighbors(id agents.AgentID) []agents.AgentID {
	if _, ok := g.Agent(id); !ok {
		return nil
	}
	return sortedKeys(g.adj[id-1])
}

// Weight is the link weight between a and b, zero if unlinked.
func (g *Graph) Weight(a, b agents.AgentID) float64 {
	if _, ok := g.Agent(a); !ok {
		return 0
	}
	return g.adj[a-1][b]
}

// Degree is the number of live links at id.
func (g *Graph) Degree(id agents.AgentID) int {
	if _, ok := g.Agent(id); !ok {
		return 0
	}
	return len(g.adj[id-1])
}

// EdgeCount is the number of live links.
func (g *Graph) EdgeCount() int { return g.edges }

// Edges returns the live links sorted by (A, B).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for i := range g.adj {
		a := agents.AgentID(i + 1)
		for _, b := range sortedKeys(g.adj[i]) {
			if a < b {
				out = append(out, Edge{A: a, B: b, Weight: g.adj[i][b]})
			}
		}
	}
	return out
}

// History returns links archived by RemoveAgent, in removal order.
func (g *Graph) History() []Edge {
	return slices.Clone(g.history)
}

// Version increases on every structural change.
func (g *Graph) Version() uint64 { return g.version }

func makeEdge(a, b agents.AgentID, w float64) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b, Weight: w}
}

func sortedKeys(m map[agents.AgentID]float64) []agents.AgentID {
	keys := make([]agents.AgentID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
