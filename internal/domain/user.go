package domain

// LedgerRole binds a role and jurisdiction to one shared ledger.
type LedgerRole struct {
	SharedLedgerID string           `json:"sharedLedgerId"`
	Role           RoleType         `json:"role"`
	Jurisdiction   JurisdictionType `json:"jurisdiction"`
}

// User holds per-ledger role assignments for one caller address. A user has at
// most one active role per ledger; reassignment is last-write-wins.
type User struct {
	ID    string       `json:"id"`
	Roles []LedgerRole `json:"roles"`
}

// NewUser creates a user with an initial role assignment. An empty id gets a
// random one.
func NewUser(id string, role LedgerRole) *User {
	if id == "" {
		id = randomB64(64)
	}
	return &User{ID: id, Roles: []LedgerRole{role}}
}

// RoleFor returns the user's role on the given ledger, RoleNone if unassigned.
func (u *User) RoleFor(sharedLedgerID string) RoleType {
	for _, r := range u.Roles {
		if r.SharedLedgerID == sharedLedgerID {
			return r.Role
		}
	}
	return RoleNone
}

// JurisdictionFor returns the user's jurisdiction on the given ledger.
func (u *User) JurisdictionFor(sharedLedgerID string) JurisdictionType {
	for _, r := range u.Roles {
		if r.SharedLedgerID == sharedLedgerID {
			return r.Jurisdiction
		}
	}
	return JurisdictionNone
}

// UpdateRole assigns or replaces the role for the role's ledger id.
func (u *User) UpdateRole(role LedgerRole) {
	for i := range u.Roles {
		if u.Roles[i].SharedLedgerID == role.SharedLedgerID {
			u.Roles[i].Role = role.Role
			u.Roles[i].Jurisdiction = role.Jurisdiction
			return
		}
	}
	u.Roles = append(u.Roles, role)
}

// IsAdmin reports whether the user administers the given ledger.
func (u *User) IsAdmin(sharedLedgerID string) bool {
	return u.RoleFor(sharedLedgerID) == RoleAdmin
}

// IsRegulator reports whether the user oversees the given ledger.
func (u *User) IsRegulator(sharedLedgerID string) bool {
	return u.RoleFor(sharedLedgerID) == RoleRegulator
}
