package orders

import "github.com/ariefcatur/club-portal/internal/domain"

type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusReady: true, StatusCancelled: true},
	StatusReady:     {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", domain.Invalid("unknown order status %q", v)
	}
	return s, nil
}

// AllStatuses in lifecycle order, for listings and dashboards.
var AllStatuses = []Status{StatusPending, StatusReady, StatusCompleted, StatusCancelled}
