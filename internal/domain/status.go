package domain

// StatusType tracks a trade through reconciliation. Values are ordered:
// status only ever moves forward, one step at a time.
type StatusType int

const (
	StatusNone StatusType = iota
	StatusExecuted
	StatusSettling
	StatusSettled
)

func (s StatusType) String() string {
	switch s {
	case StatusExecuted:
		return "executed"
	case StatusSettling:
		return "settling"
	case StatusSettled:
		return "settled"
	default:
		return "none"
	}
}

// ParseStatus maps a status name to a StatusType, returning StatusNone for
// unknown input.
func ParseStatus(s string) StatusType {
	switch s {
	case "executed":
		return StatusExecuted
	case "settling":
		return StatusSettling
	case "settled":
		return StatusSettled
	default:
		return StatusNone
	}
}
