package backend

import "strings"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
	StatusUnknown   Status = "UNKNOWN"
)

// ParseStatus folds the backend's status vocabulary. Casing varies and the
// paid state shows up as PAID, SUCCES (sic), SUCCESS or COMPLETED.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PAID", "SUCCES", "SUCCESS", "COMPLETED":
		return StatusPaid
	case "PENDING":
		return StatusPending
	case "EXPIRED":
		return StatusExpired
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

var validNext = map[Status]map[Status]bool{
	StatusUnknown:   {StatusPending: true, StatusPaid: true, StatusExpired: true, StatusCancelled: true},
	StatusPending:   {StatusPaid: true, StatusExpired: true, StatusCancelled: true},
	StatusPaid:      {},
	StatusExpired:   {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusExpired || s == StatusCancelled
}
