package storage

import (
	"fmt"

	"github.com/google/uuid"

	"solana-price-tracker/internal/domain"
)

// ValidateEvent checks the fields every backend requires.
func ValidateEvent(e *domain.LifecycleEvent) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidInput)
	}
	if e.EventID == uuid.Nil {
		return fmt.Errorf("%w: missing event id", ErrInvalidInput)
	}
	if e.TokenID == "" {
		return fmt.Errorf("%w: missing token id", ErrInvalidInput)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, e.Kind)
	}
	return nil
}

// ValidateSnapshot checks the fields every backend requires.
func ValidateSnapshot(s *domain.Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidInput)
	}
	if s.TickID == uuid.Nil {
		return fmt.Errorf("%w: missing tick id", ErrInvalidInput)
	}
	return nil
}
