package domain

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleKind is the type of a token lifecycle transition.
type LifecycleKind string

const (
	LifecycleAdmitted LifecycleKind = "admitted" // pending candidate promoted to active
	LifecycleEvicted  LifecycleKind = "evicted"  // active token removed by capacity pressure
	LifecycleExpired  LifecycleKind = "expired"  // active token whose history aged out completely; it stays active
	LifecycleDropped  LifecycleKind = "dropped"  // candidate discarded after exhausting retries
)

// String returns the string representation of LifecycleKind.
func (k LifecycleKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k LifecycleKind) IsValid() bool {
	switch k {
	case LifecycleAdmitted, LifecycleEvicted, LifecycleExpired, LifecycleDropped:
		return true
	}
	return false
}

// LifecycleEvent records one transition of a token.
type LifecycleEvent struct {
	EventID    uuid.UUID
	TokenID    TokenID
	Kind       LifecycleKind
	Retries    int // failed validations so far (dropped candidates)
	OccurredAt time.Time
}

// NewLifecycleEvent creates an event with a fresh random ID.
func NewLifecycleEvent(id TokenID, kind LifecycleKind, retries int, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		EventID:    uuid.New(),
		TokenID:    id,
		Kind:       kind,
		Retries:    retries,
		OccurredAt: at,
	}
}
