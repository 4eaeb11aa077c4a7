package domain

// RoleType is a user's role on one shared ledger. The set is closed; parsing
// unknown input yields RoleNone rather than an error so role checks stay total.
type RoleType string

const (
	RoleNone            RoleType = "none"
	RoleAdmin           RoleType = "admin"
	RoleTrader          RoleType = "trader"
	RoleInvestor        RoleType = "investor"
	RoleBroker          RoleType = "broker"
	RoleDealer          RoleType = "dealer"
	RoleCustodian       RoleType = "custodian"
	RoleClearingHouse   RoleType = "clearingHouse"
	RoleSettlementAgent RoleType = "settlementAgent"
	RoleRegulator       RoleType = "regulator"
	RoleAMLSanction     RoleType = "amlSanction"
)

var roleNames = map[RoleType]struct{}{
	RoleNone:            {},
	RoleAdmin:           {},
	RoleTrader:          {},
	RoleInvestor:        {},
	RoleBroker:          {},
	RoleDealer:          {},
	RoleCustodian:       {},
	RoleClearingHouse:   {},
	RoleSettlementAgent: {},
	RoleRegulator:       {},
	RoleAMLSanction:     {},
}

// ParseRole maps arbitrary input to a RoleType, returning RoleNone for
// anything outside the closed set.
func ParseRole(s string) RoleType {
	r := RoleType(s)
	if _, ok := roleNames[r]; !ok {
		return RoleNone
	}
	return r
}

func (r RoleType) String() string { return string(r) }

// IsOriginator reports whether the role submits trades and sees only its own.
func (r RoleType) IsOriginator() bool {
	switch r {
	case RoleTrader, RoleInvestor, RoleBroker, RoleDealer:
		return true
	}
	return false
}

// CanRecordMatch reports whether the role owns one of the four reconciliation
// categories.
func (r RoleType) CanRecordMatch() bool {
	switch r {
	case RoleSettlementAgent, RoleClearingHouse, RoleCustodian, RoleAMLSanction:
		return true
	}
	return false
}

// JurisdictionType is the closed set of trade jurisdictions.
type JurisdictionType string

const (
	JurisdictionNone         JurisdictionType = "none"
	JurisdictionGlobal       JurisdictionType = "global"
	JurisdictionNorthAmerica JurisdictionType = "northAmerica"
	JurisdictionSouthAmerica JurisdictionType = "southAmerica"
	JurisdictionEurope       JurisdictionType = "europe"
	JurisdictionUK           JurisdictionType = "uk"
	JurisdictionMiddleEast   JurisdictionType = "middleEast"
	JurisdictionAfrica       JurisdictionType = "africa"
	JurisdictionAPAC         JurisdictionType = "apac"
	JurisdictionOceania      JurisdictionType = "oceania"
)

var jurisdictionNames = map[JurisdictionType]struct{}{
	JurisdictionNone:         {},
	JurisdictionGlobal:       {},
	JurisdictionNorthAmerica: {},
	JurisdictionSouthAmerica: {},
	JurisdictionEurope:       {},
	JurisdictionUK:           {},
	JurisdictionMiddleEast:   {},
	JurisdictionAfrica:       {},
	JurisdictionAPAC:         {},
	JurisdictionOceania:      {},
}

// ParseJurisdiction maps arbitrary input to a JurisdictionType, returning
// JurisdictionNone for anything outside the closed set.
func ParseJurisdiction(s string) JurisdictionType {
	j := JurisdictionType(s)
	if _, ok := jurisdictionNames[j]; !ok {
		return JurisdictionNone
	}
	return j
}

func (j JurisdictionType) String() string { return string(j) }
