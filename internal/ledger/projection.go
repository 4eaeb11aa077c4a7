package ledger

import (
	"tradeledger/internal/domain"
	dErrors "tradeledger/pkg/domain-errors"
)

// ProjectionPolicy configures the private-comment filter. The original policy
// removes entries tagged with the viewer's own role; set HideOwnRoleComments
// to false to invert that and show the viewer only their own role's comments.
type ProjectionPolicy struct {
	HideOwnRoleComments bool
}

// DefaultProjectionPolicy preserves the original filtering behavior.
var DefaultProjectionPolicy = ProjectionPolicy{HideOwnRoleComments: true}

// Project redacts a trade for the given role. It is pure and total over the
// role set: unknown roles are denied, every other role gets a defined view.
// Projecting an already projected trade with the same role is a no-op.
func Project(t domain.Trade, role domain.RoleType, policy ProjectionPolicy) (domain.Trade, error) {
	t.AuditHistory = nil

	switch {
	case role.IsOriginator():
		t.MatchTradeDetails = nil
		t.MatchMoneyTransfer = nil
		t.MatchAssetTransfer = nil
		t.MatchAMLSanction = nil
		t.PrivateComments = filterComments(t.PrivateComments, role, policy)
	case role == domain.RoleSettlementAgent:
		clearCreation(&t.TradeCreation)
		t.PrivateComments = filterComments(t.PrivateComments, role, policy)
	case role == domain.RoleClearingHouse:
		keepAssetAndBuyer(&t.TradeCreation)
		clearMatchLogs(&t)
		t.PrivateComments = filterComments(t.PrivateComments, role, policy)
	case role == domain.RoleCustodian:
		keepAssetAndSeller(&t.TradeCreation)
		clearMatchLogs(&t)
		t.PrivateComments = filterComments(t.PrivateComments, role, policy)
	case role == domain.RoleAMLSanction:
		keepAssetBuyerAndSeller(&t.TradeCreation)
		clearMatchLogs(&t)
		t.PrivateComments = filterComments(t.PrivateComments, role, policy)
	case role == domain.RoleAdmin || role == domain.RoleRegulator:
		// Full view apart from the audit trail.
	default:
		return domain.Trade{}, dErrors.New(dErrors.CodeForbidden, "role is not authorized to view this trade")
	}
	return t, nil
}

func clearMatchLogs(t *domain.Trade) {
	t.MatchTradeDetails = nil
	t.MatchMoneyTransfer = nil
	t.MatchAssetTransfer = nil
	t.MatchAMLSanction = nil
}

func clearCreation(c *domain.TradeCreation) {
	c.Info = domain.TradeInfo{Jurisdiction: domain.JurisdictionNone}
	c.AddedBy = ""
}

func keepAssetAndSeller(c *domain.TradeCreation) {
	c.Info.BuyerName = ""
	c.Info.BuyerCountry = ""
	c.Info.BuyerAccountID = ""
	redactTerms(&c.Info)
	c.AddedBy = ""
}

func keepAssetAndBuyer(c *domain.TradeCreation) {
	c.Info.SellerName = ""
	c.Info.SellerCountry = ""
	c.Info.SellerAccountID = ""
	redactTerms(&c.Info)
	c.AddedBy = ""
}

func keepAssetBuyerAndSeller(c *domain.TradeCreation) {
	redactTerms(&c.Info)
	c.AddedBy = ""
}

// redactTerms drops the economic terms, leaving only party and asset fields.
func redactTerms(info *domain.TradeInfo) {
	info.Quantity = 0
	info.Price = 0
	info.TradeDate = ""
	info.Jurisdiction = domain.JurisdictionNone
}

func filterComments(comments []domain.TradeComment, viewer domain.RoleType, policy ProjectionPolicy) []domain.TradeComment {
	if comments == nil {
		return nil
	}
	kept := make([]domain.TradeComment, 0, len(comments))
	for _, c := range comments {
		if policy.HideOwnRoleComments == (c.Role != viewer) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
