package audit

import "time"

// Event is one ledger-level operation record, separate from the per-trade
// audit history: it captures who did what to which entity across the whole
// deployment.
type Event struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	Timestamp time.Time `json:"timestamp"`
}

// Actions recorded by the ledger service.
const (
	ActionLedgerCreated  = "ledger.created"
	ActionLedgerLocked   = "ledger.locked"
	ActionLedgerDeleted  = "ledger.deleted"
	ActionTradeSubmitted = "trade.submitted"
	ActionTradeRemoved   = "trade.removed"
	ActionTradeRead      = "trade.read"
	ActionMatchRecorded  = "trade.match_recorded"
	ActionUserEnrolled   = "user.enrolled"
)
