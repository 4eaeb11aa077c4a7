package enrollment

import (
	"tradeledger/internal/domain"
)

// SuperAdminScope is the reserved pseudo-ledger id for platform admins. A
// request targeting it with the Admin role is a super-admin request and is
// approved by role assignment alone, without ledger membership.
const SuperAdminScope = "super"

// Request is a user's pending ask for a role on a shared ledger.
type Request struct {
	ID             string                  `json:"id"`
	UserID         string                  `json:"userId"`
	SharedLedgerID string                  `json:"sharedLedgerId"`
	Role           domain.RoleType         `json:"role"`
	Jurisdiction   domain.JurisdictionType `json:"jurisdiction"`
}

// IsSuperAdmin reports whether approving this request grants platform
// admin rather than ledger membership.
func (r Request) IsSuperAdmin() bool {
	return r.SharedLedgerID == SuperAdminScope && r.Role == domain.RoleAdmin
}

// Credential stores the bcrypt hash of a user's API secret. The plaintext is
// returned once at enrollment and never persisted.
type Credential struct {
	UserID     string `json:"userId"`
	SecretHash string `json:"secretHash"`
}
