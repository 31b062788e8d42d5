package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ledger core. Controllers map these to HTTP
// statuses; nothing in this package swallows them.
var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrDuplicateCommission = errors.New("commission already credited for this conversion")
	ErrConcurrencyConflict = errors.New("record was modified concurrently, retry the operation")
	ErrInvalidTransition   = errors.New("invalid status transition")

	// ErrNoMatch signals that a cross-channel conversion has no
	// commission-eligible partner lead. It is a valid no-op outcome for
	// the resolver, not a failure.
	ErrNoMatch = errors.New("no matching partner lead")
)

// InvalidTransitionError identifies the attempted from/to pair of a
// rejected status change. errors.Is(err, ErrInvalidTransition) holds.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition from %q to %q", e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalidTransition(entity, from, to string) error {
	return &InvalidTransitionError{Entity: entity, From: from, To: to}
}
