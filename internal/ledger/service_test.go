package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tradeledger/internal/domain"
	"tradeledger/internal/signer"
	"tradeledger/internal/storage"
	dErrors "tradeledger/pkg/domain-errors"
	"tradeledger/pkg/platform/sentinel"
	"tradeledger/pkg/requestcontext"
)

const testSLID = "SL1"

type ServiceSuite struct {
	suite.Suite
	store   *storage.InMemoryStore
	repo    *Repo
	signing *signer.Service
	svc     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = storage.NewInMemoryStore()
	s.repo = NewRepo(s.store)
	s.signing = signer.New(s.store)
	s.Require().NoError(s.signing.Generate(context.Background()))
	s.svc = NewService(s.repo, s.signing)
}

func (s *ServiceSuite) ctx(sender string) context.Context {
	return requestcontext.WithSender(context.Background(), sender)
}

// seedMember creates the user record and enrolls it into the test ledger.
func (s *ServiceSuite) seedMember(id string, role domain.RoleType) {
	user := domain.NewUser(id, domain.LedgerRole{
		SharedLedgerID: testSLID,
		Role:           role,
		Jurisdiction:   domain.JurisdictionGlobal,
	})
	s.Require().NoError(s.repo.SaveUser(s.T().Context(), user))
	s.Require().NoError(s.svc.Enroll(s.ctx("admin"), testSLID, id, role, domain.JurisdictionGlobal))
}

// newLedger seeds alice as trader and creates the test ledger with her as the
// first member.
func (s *ServiceSuite) newLedger() {
	user := domain.NewUser("alice", domain.LedgerRole{
		SharedLedgerID: testSLID,
		Role:           domain.RoleTrader,
		Jurisdiction:   domain.JurisdictionEurope,
	})
	s.Require().NoError(s.repo.SaveUser(s.T().Context(), user))
	slid, err := s.svc.CreateLedger(s.ctx("alice"), testSLID)
	s.Require().NoError(err)
	s.Require().Equal(testSLID, slid)
}

func (s *ServiceSuite) tradeInfo() domain.TradeInfo {
	return domain.TradeInfo{
		BuyerName:     "Alice Corp",
		BuyerCountry:  "US",
		SellerName:    "Bob Ltd",
		SellerCountry: "UK",
		Asset:         "XS0123456789",
		Quantity:      100,
		Price:         50,
		TradeDate:     "1693899000000",
		Jurisdiction:  domain.JurisdictionEurope,
	}
}

func (s *ServiceSuite) submit() *SubmitTradeResult {
	result, err := s.svc.SubmitTrade(s.ctx("alice"), testSLID, SubmitTradeInput{Info: s.tradeInfo()})
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) TestCreateLedgerRequiresUser() {
	_, err := s.svc.CreateLedger(s.ctx("nobody"), testSLID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCreateLedgerRejectsDuplicateID() {
	s.newLedger()
	_, err := s.svc.CreateLedger(s.ctx("alice"), testSLID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestCreateLedgerGeneratesID() {
	s.newLedger()
	generated, err := s.svc.CreateLedger(s.ctx("alice"), "")
	s.Require().NoError(err)
	s.NotEmpty(generated)

	ids, err := s.svc.ListLedgers(s.ctx("alice"))
	s.Require().NoError(err)
	s.ElementsMatch([]string{testSLID, generated}, ids)
}

func (s *ServiceSuite) TestSubmitTradeRequiresMembership() {
	s.newLedger()
	bob := domain.NewUser("bob", domain.LedgerRole{SharedLedgerID: testSLID, Role: domain.RoleTrader})
	s.Require().NoError(s.repo.SaveUser(s.T().Context(), bob))

	_, err := s.svc.SubmitTrade(s.ctx("bob"), testSLID, SubmitTradeInput{Info: s.tradeInfo()})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestSubmitTradeIssuesToken() {
	s.newLedger()
	result := s.submit()

	s.NotEmpty(result.UTI)
	s.NotEmpty(result.TokenB64)
	s.Require().NoError(s.svc.VerifyTradeToken(s.ctx("alice"), result.UTI, result.TokenB64))

	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Equal(domain.StatusExecuted, trade.Status)
	s.Equal("alice", trade.TradeCreation.AddedBy)
}

func (s *ServiceSuite) TestSubmitTradeRejectsDuplicateUTI() {
	s.newLedger()
	result := s.submit()

	_, err := s.svc.SubmitTrade(s.ctx("alice"), testSLID, SubmitTradeInput{UTI: result.UTI, Info: s.tradeInfo()})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSubmitTradeNeedsSigningIdentity() {
	s.newLedger()
	s.Require().NoError(s.signing.Clear(s.T().Context()))

	_, err := s.svc.SubmitTrade(s.ctx("alice"), testSLID, SubmitTradeInput{Info: s.tradeInfo()})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

// Full reconciliation: four detail facts move the trade to Settling, then the
// asset, money, and AML streams take it to Settled.
func (s *ServiceSuite) TestFullSettlementFlow() {
	s.newLedger()
	s.seedMember("sa", domain.RoleSettlementAgent)
	s.seedMember("ch", domain.RoleClearingHouse)
	s.seedMember("cu", domain.RoleCustodian)
	s.seedMember("aml", domain.RoleAMLSanction)
	result := s.submit()

	details := map[string]string{
		"buyerName":     "Alice Corp",
		"buyerCountry":  "US",
		"sellerName":    "Bob Ltd",
		"sellerCountry": "UK",
	}
	for key, value := range details {
		matched, err := s.svc.RecordExactMatch(s.ctx("sa"), testSLID, ExactMatchInput{
			UTI: result.UTI, TokenB64: result.TokenB64, Key: key, Value: value,
		})
		s.Require().NoError(err)
		s.Require().True(matched, "key %s", key)
	}
	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Equal(domain.StatusSettling, trade.Status)

	matched, err := s.svc.RecordBoundaryMatch(s.ctx("cu"), testSLID, BoundaryMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Key: "quantity", Min: 99, Max: 101,
	})
	s.Require().NoError(err)
	s.True(matched)

	matched, err = s.svc.RecordExactMatch(s.ctx("ch"), testSLID, ExactMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Key: "price", Value: "50",
	})
	s.Require().NoError(err)
	s.True(matched)

	matched, err = s.svc.RecordBoundaryMatch(s.ctx("aml"), testSLID, BoundaryMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Key: "amlRiskRank", Min: 0, Max: 0.04,
	})
	s.Require().NoError(err)
	s.True(matched)

	matched, err = s.svc.RecordExactMatch(s.ctx("aml"), testSLID, ExactMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Key: "underSanction", Value: "true",
	})
	s.Require().NoError(err)
	s.True(matched)

	trade, err = s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Equal(domain.StatusSettled, trade.Status)
	s.Len(trade.StatusHistory, 3)

	// Boundary log records the submitted interval, exact logs the value.
	s.Require().NotEmpty(trade.MatchAssetTransfer)
	s.Equal("99< x <101", trade.MatchAssetTransfer[0].MatchedValue)
}

func (s *ServiceSuite) TestMatchMissRecordsNothing() {
	s.newLedger()
	s.seedMember("cu", domain.RoleCustodian)
	result := s.submit()

	matched, err := s.svc.RecordBoundaryMatch(s.ctx("cu"), testSLID, BoundaryMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Key: "quantity", Min: 100, Max: 101,
	})
	s.Require().NoError(err)
	s.False(matched)

	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Empty(trade.MatchAssetTransfer)
}

// The sentinel distance for keys with no fuzzy comparison (-1) passes any
// non-negative threshold, so the levenshtein path also records AML facts like
// underSanction. The default policy keeps that; RejectUnsupportedKeys refuses
// the key instead.
func (s *ServiceSuite) TestLevenshteinUnsupportedKeyMatchesByDefault() {
	s.newLedger()
	s.seedMember("aml", domain.RoleAMLSanction)
	result := s.submit()

	matched, err := s.svc.RecordLevenshteinMatch(s.ctx("aml"), testSLID, LevenshteinMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64,
		Key: "underSanction", Value: "anything", MaxDistance: 0,
	})
	s.Require().NoError(err)
	s.True(matched)

	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Require().Len(trade.MatchAMLSanction, 1)
	s.Equal("underSanction", trade.MatchAMLSanction[0].MatchedKey)
}

func (s *ServiceSuite) TestLevenshteinUnsupportedKeyRejectedByPolicy() {
	s.newLedger()
	s.seedMember("aml", domain.RoleAMLSanction)
	result := s.submit()

	strict := NewService(s.repo, s.signing, WithMatchPolicy(MatchPolicy{RejectUnsupportedKeys: true}))
	matched, err := strict.RecordLevenshteinMatch(s.ctx("aml"), testSLID, LevenshteinMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64,
		Key: "underSanction", Value: "anything", MaxDistance: 0,
	})
	s.Require().NoError(err)
	s.False(matched)

	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Empty(trade.MatchAMLSanction)
}

func (s *ServiceSuite) TestMatchRejectsOriginatorRoles() {
	s.newLedger()
	result := s.submit()

	_, err := s.svc.RecordExactMatch(s.ctx("alice"), testSLID, ExactMatchInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Key: "buyerName", Value: "Alice Corp",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestMatchRejectsWrongToken() {
	s.newLedger()
	s.seedMember("sa", domain.RoleSettlementAgent)
	first := s.submit()
	second, err := s.svc.SubmitTrade(s.ctx("alice"), testSLID, SubmitTradeInput{Info: s.tradeInfo()})
	s.Require().NoError(err)

	// A token for one trade must not authorize another.
	_, err = s.svc.RecordExactMatch(s.ctx("sa"), testSLID, ExactMatchInput{
		UTI: first.UTI, TokenB64: second.TokenB64, Key: "buyerName", Value: "Alice Corp",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestAddCommentRequiresToken() {
	s.newLedger()
	result := s.submit()

	err := s.svc.AddComment(s.ctx("alice"), testSLID, CommentInput{
		UTI: result.UTI, TokenB64: "bogus", Public: true, Metadata: "note",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = s.svc.AddComment(s.ctx("alice"), testSLID, CommentInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Public: true, Metadata: "note",
	})
	s.Require().NoError(err)

	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Require().Len(trade.PublicComments, 1)
	s.Equal(domain.RoleTrader, trade.PublicComments[0].Role)
}

func (s *ServiceSuite) TestListVisibleTradesByRole() {
	s.newLedger()
	s.seedMember("bob", domain.RoleTrader)
	s.seedMember("sa", domain.RoleSettlementAgent)
	s.seedMember("cu", domain.RoleCustodian)
	result := s.submit()

	visible, err := s.svc.ListVisibleTrades(s.ctx("alice"), testSLID)
	s.Require().NoError(err)
	s.Require().Len(visible, 1)
	s.Equal(result.UTI, visible[0].UTI)
	s.Equal(result.TokenB64, visible[0].TokenB64)

	visible, err = s.svc.ListVisibleTrades(s.ctx("bob"), testSLID)
	s.Require().NoError(err)
	s.Empty(visible)

	visible, err = s.svc.ListVisibleTrades(s.ctx("sa"), testSLID)
	s.Require().NoError(err)
	s.Len(visible, 1)

	// Custodians act on Settling trades; an Executed trade stays hidden.
	visible, err = s.svc.ListVisibleTrades(s.ctx("cu"), testSLID)
	s.Require().NoError(err)
	s.Empty(visible)
}

func (s *ServiceSuite) TestListVisibleTradesAppendsAuditTrail() {
	s.newLedger()
	result := s.submit()

	_, err := s.svc.ListVisibleTrades(s.ctx("alice"), testSLID)
	s.Require().NoError(err)
	_, err = s.svc.ListVisibleTrades(s.ctx("alice"), testSLID)
	s.Require().NoError(err)

	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Len(trade.AuditHistory, 2)
	s.Equal("alice", trade.AuditHistory[0].PerformedBy)
}

func (s *ServiceSuite) TestTradeDetailProjectsForRole() {
	s.newLedger()
	s.seedMember("sa", domain.RoleSettlementAgent)
	result := s.submit()

	// The submitting trader sees the full creation record.
	detail, err := s.svc.TradeDetail(s.ctx("alice"), testSLID, result.UTI, result.TokenB64)
	s.Require().NoError(err)
	s.Equal("Alice Corp", detail.TradeCreation.Info.BuyerName)
	s.Nil(detail.AuditHistory)

	// The settlement agent holds the token but gets the redacted view.
	detail, err = s.svc.TradeDetail(s.ctx("sa"), testSLID, result.UTI, result.TokenB64)
	s.Require().NoError(err)
	s.Empty(detail.TradeCreation.Info.BuyerName)
	s.Empty(detail.TradeCreation.AddedBy)
}

func (s *ServiceSuite) TestTradeDetailRejectsWrongToken() {
	s.newLedger()
	result := s.submit()

	_, err := s.svc.TradeDetail(s.ctx("alice"), testSLID, result.UTI, "bogus")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestMultipleTradeDetailReportsPerItem() {
	s.newLedger()
	result := s.submit()

	results := s.svc.MultipleTradeDetail(s.ctx("alice"), testSLID, []TradeIdentification{
		{UTI: result.UTI, TokenB64: result.TokenB64},
		{UTI: result.UTI, TokenB64: "bogus"},
		{UTI: "missing", TokenB64: result.TokenB64},
	})
	s.Require().Len(results, 3)
	s.NotNil(results[0].Trade)
	s.Empty(results[0].Err)
	s.Nil(results[1].Trade)
	s.NotEmpty(results[1].Err)
	s.NotEmpty(results[2].Err)
}

func (s *ServiceSuite) TestEnrollIsIdempotentForMembers() {
	s.newLedger()
	s.seedMember("sa", domain.RoleSettlementAgent)

	// Second enrollment with a different role must not reassign.
	s.Require().NoError(s.svc.Enroll(s.ctx("admin"), testSLID, "sa", domain.RoleTrader, domain.JurisdictionGlobal))

	user, err := s.repo.LoadUser(s.T().Context(), "sa")
	s.Require().NoError(err)
	s.Equal(domain.RoleSettlementAgent, user.RoleFor(testSLID))
}

func (s *ServiceSuite) TestEnrollUnknownUser() {
	s.newLedger()
	err := s.svc.Enroll(s.ctx("alice"), testSLID, "ghost", domain.RoleTrader, domain.JurisdictionGlobal)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRemoveTradeIsAdminOnly() {
	s.newLedger()
	s.seedMember("boss", domain.RoleAdmin)
	result := s.submit()

	err := s.svc.RemoveTrade(s.ctx("alice"), testSLID, result.UTI)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.svc.RemoveTrade(s.ctx("boss"), testSLID, result.UTI))
	_, err = s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	ledger, err := s.repo.LoadLedger(s.T().Context(), testSLID)
	s.Require().NoError(err)
	s.False(ledger.HasTrade(result.UTI))
}

func (s *ServiceSuite) TestLockStopsMutationsKeepsReads() {
	s.newLedger()
	result := s.submit()
	s.Require().NoError(s.svc.Lock(s.ctx("alice"), testSLID))

	_, err := s.svc.SubmitTrade(s.ctx("alice"), testSLID, SubmitTradeInput{Info: s.tradeInfo()})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	err = s.svc.AddComment(s.ctx("alice"), testSLID, CommentInput{
		UTI: result.UTI, TokenB64: result.TokenB64, Public: true, Metadata: "late",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	content, err := s.svc.LedgerContent(s.ctx("alice"), testSLID)
	s.Require().NoError(err)
	s.True(content.Locked)
	s.Len(content.Trades, 1)

	detail, err := s.svc.TradeDetail(s.ctx("alice"), testSLID, result.UTI, result.TokenB64)
	s.Require().NoError(err)
	s.Equal(result.UTI, detail.UTI)

	// Locking twice is a no-op.
	s.Require().NoError(s.svc.Lock(s.ctx("alice"), testSLID))
}

func (s *ServiceSuite) TestDeleteLedgerCascades() {
	s.newLedger()
	s.seedMember("boss", domain.RoleAdmin)
	result := s.submit()

	s.Require().NoError(s.svc.DeleteLedger(s.ctx("boss"), testSLID))

	_, err := s.repo.LoadLedger(s.T().Context(), testSLID)
	s.True(errors.Is(err, sentinel.ErrNotFound))
	_, err = s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.True(errors.Is(err, sentinel.ErrNotFound))
	_, err = s.repo.LoadUser(s.T().Context(), "alice")
	s.True(errors.Is(err, sentinel.ErrNotFound))

	ids, err := s.svc.ListLedgers(context.Background())
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *ServiceSuite) TestLedgerContentProjectsPerRole() {
	s.newLedger()
	s.seedMember("reg", domain.RoleRegulator)
	s.submit()

	content, err := s.svc.LedgerContent(s.ctx("reg"), testSLID)
	s.Require().NoError(err)
	s.Require().Len(content.Trades, 1)
	s.Equal("Alice Corp", content.Trades[0].TradeCreation.Info.BuyerName)
	s.Nil(content.Trades[0].AuditHistory)
}

func (s *ServiceSuite) TestVerifyTradeTokenDetectsTampering() {
	s.newLedger()
	result := s.submit()

	err := s.svc.VerifyTradeToken(s.ctx("alice"), "some-other-uti", result.TokenB64)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

// fixedClock pins request time to make audit entries deterministic.
func (s *ServiceSuite) TestRequestTimeFlowsIntoStatusHistory() {
	s.newLedger()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx("alice"), at)

	result, err := s.svc.SubmitTrade(ctx, testSLID, SubmitTradeInput{Info: s.tradeInfo()})
	s.Require().NoError(err)

	trade, err := s.repo.LoadTrade(s.T().Context(), result.UTI)
	s.Require().NoError(err)
	s.Require().Len(trade.StatusHistory, 1)
	s.Equal(at, trade.StatusHistory[0].Datetime)
}
