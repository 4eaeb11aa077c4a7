package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"

	dErrors "tradeledger/pkg/domain-errors"
)

// TradeInfo is the immutable fact set captured at submission. Counterparties
// later confirm individual fields against it through the matching engine.
type TradeInfo struct {
	BuyerName       string           `json:"buyerName"`
	BuyerCountry    string           `json:"buyerCountry"`
	BuyerAccountID  string           `json:"buyerAccountId"`
	SellerName      string           `json:"sellerName"`
	SellerCountry   string           `json:"sellerCountry"`
	SellerAccountID string           `json:"sellerAccountId"`
	Asset           string           `json:"asset"`
	Quantity        float64          `json:"quantity"`
	Price           float64          `json:"price"`
	TradeDate       string           `json:"tradeDate"` // unix milliseconds as text
	Jurisdiction    JurisdictionType `json:"jurisdiction"`
}

// TradeCreation records who submitted the trade and when.
type TradeCreation struct {
	AddedBy  string    `json:"addedBy"`
	Datetime time.Time `json:"datetime"`
	Info     TradeInfo `json:"info"`
}

// TradeComment is one entry in a trade's public or private comment stream.
type TradeComment struct {
	AddedBy  string    `json:"addedBy"`
	Role     RoleType  `json:"role"`
	Datetime time.Time `json:"datetime"`
	Metadata string    `json:"metadata"`
}

// StatusLog is one entry in the status history, including the initial state.
type StatusLog struct {
	Datetime time.Time  `json:"datetime"`
	Status   StatusType `json:"status"`
}

// AuditLog records one read access to the trade.
type AuditLog struct {
	PerformedBy string    `json:"performedBy"`
	Datetime    time.Time `json:"datetime"`
}

// MatchLog records one confirmed fact: a role verified matchedKey against the
// trade's creation data.
type MatchLog struct {
	PerformedBy  string    `json:"performedBy"`
	Datetime     time.Time `json:"datetime"`
	MatchedKey   string    `json:"matchedKey"`
	MatchedValue string    `json:"matchedValue"`
}

// Trade is the multi-party reconciliation record. Four independent match-log
// streams gate the Executed -> Settling -> Settled progression; each stream is
// owned by one role.
type Trade struct {
	UTI      string `json:"UTI"`
	TokenB64 string `json:"tokenB64"`

	TradeCreation TradeCreation `json:"tradeCreation"`

	PublicComments  []TradeComment `json:"tradePublicComments"`
	PrivateComments []TradeComment `json:"tradePrivateComments"`

	MatchTradeDetails  []MatchLog `json:"matchTradeDetails"`  // settlement agent: buyer/seller name and country
	MatchMoneyTransfer []MatchLog `json:"matchMoneyTransfer"` // clearing house: price
	MatchAssetTransfer []MatchLog `json:"matchAssetTransfer"` // custodian: quantity
	MatchAMLSanction   []MatchLog `json:"matchAMLSanction"`   // AML/sanctions: amlRiskRank, underSanction

	Status        StatusType  `json:"status"`
	StatusHistory []StatusLog `json:"statusHistory"`
	AuditHistory  []AuditLog  `json:"auditHistory"`
}

// NewTrade builds a trade in the Executed state. When uti is empty one is
// generated as SWIFT<rand>.TRADE<YYYYMMDD>SEQ<rand> with base64 random parts
// and the date taken from the trade-date millis when parsable, e.g.
// SWIFTmNzQ=.TRADE20230905SEQyv0sDUbRF1g=.
func NewTrade(uti, sender string, now time.Time, info TradeInfo) *Trade {
	if uti == "" {
		uti = generateUTI(info.TradeDate, now)
	}
	t := &Trade{
		UTI: uti,
		TradeCreation: TradeCreation{
			AddedBy:  sender,
			Datetime: now,
			Info:     info,
		},
		Status: StatusExecuted,
	}
	t.StatusHistory = append(t.StatusHistory, StatusLog{Datetime: now, Status: t.Status})
	return t
}

func generateUTI(tradeDate string, now time.Time) string {
	at := now
	if millis, err := strconv.ParseInt(tradeDate, 10, 64); err == nil {
		at = time.UnixMilli(millis).UTC()
	}
	return "SWIFT" + randomB64(4) + ".TRADE" + at.Format("20060102") + "SEQ" + randomB64(8)
}

func randomB64(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read does not fail on supported platforms.
	_, _ = rand.Read(buf)
	return base64.StdEncoding.EncodeToString(buf)
}

// AddPublicComment appends to the public comment stream.
func (t *Trade) AddPublicComment(sender string, role RoleType, now time.Time, metadata string) {
	t.PublicComments = append(t.PublicComments, TradeComment{
		AddedBy: sender, Role: role, Datetime: now, Metadata: metadata,
	})
}

// AddPrivateComment appends to the private comment stream.
func (t *Trade) AddPrivateComment(sender string, role RoleType, now time.Time, metadata string) {
	t.PrivateComments = append(t.PrivateComments, TradeComment{
		AddedBy: sender, Role: role, Datetime: now, Metadata: metadata,
	})
}

// AddAuditLog records one read access.
func (t *Trade) AddAuditLog(sender string, now time.Time) {
	t.AuditHistory = append(t.AuditHistory, AuditLog{PerformedBy: sender, Datetime: now})
}

// AddMatchLog appends a confirmed fact to the stream owned by the acting role.
// Roles outside the four reconciliation categories cannot record matches.
func (t *Trade) AddMatchLog(role RoleType, sender string, now time.Time, key, value string) error {
	entry := MatchLog{PerformedBy: sender, Datetime: now, MatchedKey: key, MatchedValue: value}
	switch role {
	case RoleSettlementAgent:
		t.MatchTradeDetails = append(t.MatchTradeDetails, entry)
	case RoleClearingHouse:
		t.MatchMoneyTransfer = append(t.MatchMoneyTransfer, entry)
	case RoleCustodian:
		t.MatchAssetTransfer = append(t.MatchAssetTransfer, entry)
	case RoleAMLSanction:
		t.MatchAMLSanction = append(t.MatchAMLSanction, entry)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid role type")
	}
	return nil
}

func logsContain(logs []MatchLog, keys ...string) bool {
	for _, key := range keys {
		found := false
		for _, entry := range logs {
			if entry.MatchedKey == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (t *Trade) tradeDetailsMatched() bool {
	return logsContain(t.MatchTradeDetails, "buyerName", "buyerCountry", "sellerName", "sellerCountry")
}

func (t *Trade) assetTransferMatched() bool {
	return logsContain(t.MatchAssetTransfer, "quantity")
}

func (t *Trade) moneyTransferMatched() bool {
	return logsContain(t.MatchMoneyTransfer, "price")
}

func (t *Trade) amlSanctionsMatched() bool {
	return logsContain(t.MatchAMLSanction, "amlRiskRank", "underSanction")
}

// ProgressStatus advances the state machine as far as the accumulated match
// logs allow. Transitions are idempotent: satisfied criteria for an already
// reached state change nothing.
func (t *Trade) ProgressStatus(now time.Time) {
	if t.Status == StatusExecuted && t.tradeDetailsMatched() {
		t.setStatus(StatusSettling, now)
	}
	if t.Status == StatusSettling && t.assetTransferMatched() && t.moneyTransferMatched() && t.amlSanctionsMatched() {
		t.setStatus(StatusSettled, now)
	}
}

func (t *Trade) setStatus(status StatusType, now time.Time) {
	t.Status = status
	t.StatusHistory = append(t.StatusHistory, StatusLog{Datetime: now, Status: status})
}
