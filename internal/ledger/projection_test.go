package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tradeledger/internal/domain"
	dErrors "tradeledger/pkg/domain-errors"
)

type ProjectionSuite struct {
	suite.Suite
	trade domain.Trade
}

func TestProjectionSuite(t *testing.T) {
	suite.Run(t, new(ProjectionSuite))
}

func (s *ProjectionSuite) SetupTest() {
	now := time.Date(2023, 9, 5, 12, 0, 0, 0, time.UTC)
	trade := domain.NewTrade("UTI-1", "alice", now, domain.TradeInfo{
		BuyerName:       "Alice Corp",
		BuyerCountry:    "US",
		BuyerAccountID:  "ACC-B",
		SellerName:      "Bob Ltd",
		SellerCountry:   "UK",
		SellerAccountID: "ACC-S",
		Asset:           "XS0123456789",
		Quantity:        100,
		Price:           50,
		TradeDate:       "1693899000000",
		Jurisdiction:    domain.JurisdictionEurope,
	})
	s.Require().NoError(trade.AddMatchLog(domain.RoleSettlementAgent, "sa", now, "buyerName", "Alice Corp"))
	s.Require().NoError(trade.AddMatchLog(domain.RoleClearingHouse, "ch", now, "price", "50"))
	trade.AddPrivateComment("sa", domain.RoleSettlementAgent, now, "settlement note")
	trade.AddPrivateComment("cu", domain.RoleCustodian, now, "custody note")
	trade.AddPublicComment("alice", domain.RoleTrader, now, "public note")
	trade.AddAuditLog("alice", now)
	s.trade = *trade
}

func (s *ProjectionSuite) TestAuditHistoryNeverLeaves() {
	for _, role := range []domain.RoleType{
		domain.RoleTrader, domain.RoleAdmin, domain.RoleRegulator,
		domain.RoleSettlementAgent, domain.RoleClearingHouse,
		domain.RoleCustodian, domain.RoleAMLSanction,
	} {
		projected, err := Project(s.trade, role, DefaultProjectionPolicy)
		s.Require().NoError(err, "role %s", role)
		s.Nil(projected.AuditHistory, "role %s", role)
	}
}

func (s *ProjectionSuite) TestOriginatorKeepsCreationDropsMatchLogs() {
	for _, role := range []domain.RoleType{domain.RoleTrader, domain.RoleInvestor, domain.RoleBroker, domain.RoleDealer} {
		projected, err := Project(s.trade, role, DefaultProjectionPolicy)
		s.Require().NoError(err)

		s.Equal("Alice Corp", projected.TradeCreation.Info.BuyerName, "role %s", role)
		s.Equal(float64(100), projected.TradeCreation.Info.Quantity)
		s.Nil(projected.MatchTradeDetails)
		s.Nil(projected.MatchMoneyTransfer)
		s.Nil(projected.MatchAssetTransfer)
		s.Nil(projected.MatchAMLSanction)
	}
}

func (s *ProjectionSuite) TestSettlementAgentSeesMatchLogsNotCreation() {
	projected, err := Project(s.trade, domain.RoleSettlementAgent, DefaultProjectionPolicy)
	s.Require().NoError(err)

	s.Empty(projected.TradeCreation.AddedBy)
	s.Equal(domain.TradeInfo{Jurisdiction: domain.JurisdictionNone}, projected.TradeCreation.Info)
	s.Len(projected.MatchTradeDetails, 1)
	s.Len(projected.MatchMoneyTransfer, 1)
}

func (s *ProjectionSuite) TestClearingHouseSeesAssetAndBuyerOnly() {
	projected, err := Project(s.trade, domain.RoleClearingHouse, DefaultProjectionPolicy)
	s.Require().NoError(err)

	info := projected.TradeCreation.Info
	s.Equal("Alice Corp", info.BuyerName)
	s.Equal("ACC-B", info.BuyerAccountID)
	s.Empty(info.SellerName)
	s.Empty(info.SellerAccountID)
	s.Equal("XS0123456789", info.Asset)
	s.Zero(info.Quantity)
	s.Zero(info.Price)
	s.Empty(info.TradeDate)
	s.Equal(domain.JurisdictionNone, info.Jurisdiction)
	s.Nil(projected.MatchMoneyTransfer)
}

func (s *ProjectionSuite) TestCustodianSeesAssetAndSellerOnly() {
	projected, err := Project(s.trade, domain.RoleCustodian, DefaultProjectionPolicy)
	s.Require().NoError(err)

	info := projected.TradeCreation.Info
	s.Empty(info.BuyerName)
	s.Equal("Bob Ltd", info.SellerName)
	s.Equal("ACC-S", info.SellerAccountID)
	s.Equal("XS0123456789", info.Asset)
	s.Zero(info.Price)
}

func (s *ProjectionSuite) TestAMLSanctionSeesBothPartiesNoTerms() {
	projected, err := Project(s.trade, domain.RoleAMLSanction, DefaultProjectionPolicy)
	s.Require().NoError(err)

	info := projected.TradeCreation.Info
	s.Equal("Alice Corp", info.BuyerName)
	s.Equal("Bob Ltd", info.SellerName)
	s.Zero(info.Quantity)
	s.Zero(info.Price)
	s.Empty(info.TradeDate)
}

func (s *ProjectionSuite) TestAdminAndRegulatorSeeEverything() {
	for _, role := range []domain.RoleType{domain.RoleAdmin, domain.RoleRegulator} {
		projected, err := Project(s.trade, role, DefaultProjectionPolicy)
		s.Require().NoError(err)

		s.Equal(s.trade.TradeCreation, projected.TradeCreation)
		s.Len(projected.MatchTradeDetails, 1)
		s.Len(projected.PrivateComments, 2)
	}
}

func (s *ProjectionSuite) TestUnknownRoleIsDenied() {
	_, err := Project(s.trade, domain.RoleNone, DefaultProjectionPolicy)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

// The historic behavior removes private comments tagged with the viewer's own
// role; the inverted policy keeps only them.
func (s *ProjectionSuite) TestPrivateCommentFilterDefaultHidesOwnRole() {
	projected, err := Project(s.trade, domain.RoleSettlementAgent, DefaultProjectionPolicy)
	s.Require().NoError(err)

	s.Require().Len(projected.PrivateComments, 1)
	s.Equal(domain.RoleCustodian, projected.PrivateComments[0].Role)
}

func (s *ProjectionSuite) TestPrivateCommentFilterInvertedKeepsOwnRole() {
	policy := ProjectionPolicy{HideOwnRoleComments: false}
	projected, err := Project(s.trade, domain.RoleSettlementAgent, policy)
	s.Require().NoError(err)

	s.Require().Len(projected.PrivateComments, 1)
	s.Equal(domain.RoleSettlementAgent, projected.PrivateComments[0].Role)
}

func (s *ProjectionSuite) TestPublicCommentsAlwaysSurvive() {
	projected, err := Project(s.trade, domain.RoleCustodian, DefaultProjectionPolicy)
	s.Require().NoError(err)
	s.Len(projected.PublicComments, 1)
}

func (s *ProjectionSuite) TestProjectionIsIdempotent() {
	once, err := Project(s.trade, domain.RoleCustodian, DefaultProjectionPolicy)
	s.Require().NoError(err)
	twice, err := Project(once, domain.RoleCustodian, DefaultProjectionPolicy)
	s.Require().NoError(err)
	s.Equal(once, twice)
}
