package ledger

import "tradeledger/internal/domain"

// VisibleTo decides whether a trade appears in a caller's listing. Originator
// roles see only what they created; reconciliation roles see trades at the
// stage their category acts on; oversight roles see everything.
func VisibleTo(t domain.Trade, role domain.RoleType, sender string) bool {
	switch {
	case role.IsOriginator():
		return t.TradeCreation.AddedBy == sender
	case role == domain.RoleSettlementAgent:
		return t.Status >= domain.StatusExecuted
	case role == domain.RoleClearingHouse, role == domain.RoleCustodian, role == domain.RoleAMLSanction:
		return t.Status == domain.StatusSettling || t.Status == domain.StatusSettled
	case role == domain.RoleAdmin, role == domain.RoleRegulator:
		return true
	default:
		return false
	}
}
