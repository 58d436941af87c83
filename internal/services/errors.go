package services

import "errors"

var (
	// ErrOracleUnavailable means no randomness source could be reached for a
	// request. Fatal for that request; the caller may retry later.
	ErrOracleUnavailable = errors.New("no randomness source available")

	// ErrSeedExhausted means the number derivation loop hit its iteration cap.
	// With a 32-byte hash space over a domain of at most 49 values this should
	// never trigger.
	ErrSeedExhausted = errors.New("seed derivation exceeded iteration cap")

	// ErrAuditEntryNotFound is reported to the caller when verification is
	// requested for an unknown request id. Not retried.
	ErrAuditEntryNotFound = errors.New("randomness audit entry not found")

	// ErrBatchIntegrityMismatch means a recomputed Merkle root differs from
	// the stored one. Any dependent payout flow must halt on it.
	ErrBatchIntegrityMismatch = errors.New("merkle batch root mismatch")

	// ErrTicketCreditFailure wraps a wallet credit that kept failing after
	// bounded retries. Surfaced per ticket, never aborts the whole batch.
	ErrTicketCreditFailure = errors.New("wallet credit failed")

	// ErrNotFound is the generic missing-record error from the ledger store.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyResolved means a ticket's result annotation was already
	// written. The annotation is write-once; replays treat this as a no-op.
	ErrAlreadyResolved = errors.New("ticket result already recorded")
)
