package domain

// SharedLedger groups users and trades under common membership and lock state.
// It holds only identifiers; Trade and User records are owned by their own
// store tables.
type SharedLedger struct {
	ID     string   `json:"id"`
	Trades []string `json:"trades"`
	Users  []string `json:"users"`
	Locked bool     `json:"locked"`
}

// NewSharedLedger creates an empty ledger. An empty id gets a random one.
func NewSharedLedger(id string) *SharedLedger {
	if id == "" {
		id = randomB64(64)
	}
	return &SharedLedger{ID: id}
}

// HasUser reports membership.
func (l *SharedLedger) HasUser(userID string) bool {
	for _, id := range l.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// HasTrade reports whether the UTI is already indexed by this ledger.
func (l *SharedLedger) HasTrade(uti string) bool {
	for _, id := range l.Trades {
		if id == uti {
			return true
		}
	}
	return false
}

// AddTrade indexes a trade id, keeping insertion order.
func (l *SharedLedger) AddTrade(uti string) {
	l.Trades = append(l.Trades, uti)
}

// RemoveTrade drops a trade id from the index. Reports whether it was present.
func (l *SharedLedger) RemoveTrade(uti string) bool {
	for i, id := range l.Trades {
		if id == uti {
			l.Trades = append(l.Trades[:i], l.Trades[i+1:]...)
			return true
		}
	}
	return false
}

// AddUser enrolls a member, keeping insertion order.
func (l *SharedLedger) AddUser(userID string) {
	l.Users = append(l.Users, userID)
}
