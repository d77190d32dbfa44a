// Package access maps staff roles to the UI actions they may invoke.
// It only provides a capability view; enforcement belongs to the backend.
package access

import (
	"sort"

	"github.com/trezcool/schoolpulse/core"
)

// Roles
type Role string

const (
	RolePrincipal     Role = "principal"
	RoleAdministrator Role = "administrator"
	RoleTeacher       Role = "teacher"
	RoleSupport       Role = "support"
)

// AllRoles in the order they are offered on login.
var AllRoles = []Role{RolePrincipal, RoleAdministrator, RoleTeacher, RoleSupport}

var roleLabels = map[Role]string{
	RolePrincipal:     "Principal",
	RoleAdministrator: "Administrator",
	RoleTeacher:       "Teacher/Staff",
	RoleSupport:       "Support Staff",
}

// Actions
type Action string

const (
	ActionReportDelay      Action = "ReportDelay"
	ActionReportInfraction Action = "ReportInfraction"
	ActionViewInsights     Action = "ViewInsights"
)

var (
	staffActions   = []Action{ActionReportDelay, ActionReportInfraction}
	managerActions = []Action{ActionReportDelay, ActionReportInfraction, ActionViewInsights}

	roleActions = map[Role][]Action{
		RolePrincipal:     managerActions,
		RoleAdministrator: managerActions,
		RoleTeacher:       staffActions,
		RoleSupport:       staffActions,
	}
)

// ParseRole normalizes s and reports whether it names a known Role.
func ParseRole(s string) (Role, bool) {
	role := Role(core.CleanString(s, true /* lower */))
	_, ok := roleLabels[role]
	return role, ok
}

func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label is the human readable name of the role.
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return roleLabels[RoleTeacher]
}

// Capabilities is a set of permitted actions.
type Capabilities map[Action]struct{}

// CapabilitiesFor returns the actions role may invoke.
// Unknown roles get the teacher's capabilities.
func CapabilitiesFor(role Role) Capabilities {
	actions, ok := roleActions[role]
	if !ok {
		actions = roleActions[RoleTeacher]
	}
	caps := make(Capabilities, len(actions))
	for _, a := range actions {
		caps[a] = struct{}{}
	}
	return caps
}

func (c Capabilities) Has(a Action) bool {
	_, ok := c[a]
	return ok
}

// List returns the actions sorted by name.
func (c Capabilities) List() []Action {
	out := make([]Action, 0, len(c))
	for a := range c {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
