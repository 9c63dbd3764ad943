package economy

import "errors"

// Workflow failures are returned as wrapped sentinel errors so the transport
// layer can pick a response with errors.Is without parsing messages.
var (
	// ErrNotFound: the referenced entity does not exist or belongs to a
	// different family than the acting user.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized: the acting user lacks the required role or
	// relationship (not a parent, not the assignee).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidStateTransition: the entity is not in the state the command
	// requires, e.g. verifying a chore that is still pending.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInsufficientFunds: the debit would drive a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConcurrentModification: a compare-and-set on entity state found the
	// row changed since it was read. The caller may re-fetch and retry.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrAlreadyCompleted: the goal was completed before; completion is
	// terminal.
	ErrAlreadyCompleted = errors.New("already completed")
)
