// Package agents provides the organization member model: roles, criminal
// expertise, drug stock and individual takings.
package agents

import "fmt"

// AgentID is a unique identifier for an agent. IDs are issued in ascending
// order starting at 1 and are never reused.
type AgentID uint64

// Role is the member's fixed position in the supply chain.
type Role uint8

const (
	RoleTrafficker Role = iota // Buys wholesale, supplies packagers
	RolePackager               // Cuts and packs, supplies retailers
	RoleRetailer               // Sells unit doses to consumers
)

// NumRoles is the number of roles.
const NumRoles = 3

// Roles lists every role in dispatch order.
var Roles = [NumRoles]Role{RoleTrafficker, RolePackager, RoleRetailer}

var roleNames = [NumRoles]string{"trafficker", "packager", "retailer"}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return roleNames[r]
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r < NumRoles
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, error) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Expertise bounds for packagers and retailers.
const (
	ExpertiseMin = 0.1
	ExpertiseMax = 1.0
)

// Agent is one member of the organization.
type Agent struct {
	ID   AgentID `json:"id"`
	Role Role    `json:"role"`

	// Active is monotonic: once an agent is arrested it never returns.
	Active       bool   `json:"active"`
	JoinedTick   uint64 `json:"joined_tick"`
	ArrestedTick uint64 `json:"arrested_tick,omitempty"`

	Expertise float64 `json:"expertise"` // criminal expertise, 0.0–1.0

	// Stock is held in grams for every role; retailers sell it in unit doses.
	Drug float64 `json:"drug"`

	// Individual takings. Traffickers and packagers are paid from the shared
	// treasury; retailers keep their share of each sale.
	Cash        float64 `json:"cash"`
	DailyProfit float64 `json:"daily_profit"`

	Available    bool `json:"available"` // has spare capacity for deliveries today
	Acquisitions int  `json:"acquisitions"`
}

// New creates an unregistered agent. The network assigns its ID.
func New(role Role, drug, cash float64) *Agent {
	return &Agent{
		Role:      role,
		Active:    true,
		Expertise: 0.5,
		Drug:      drug,
		Cash:      cash,
		Available: true,
	}
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s#%d", a.Role, a.ID)
}
