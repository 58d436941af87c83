package services

import (
	"context"

	"draw-engine-backend/internal/models"
)

// BatchLeaf is one entry of a draw's open (unsealed) hash batch, in
// purchase order.
type BatchLeaf struct {
	TicketID string `json:"ticket_id"`
	Hash     string `json:"hash"`
}

// LedgerStore is the durable record of draws, tickets, audit entries, hash
// records and Merkle batches. Implementations must honor the write-once and
// append-only rules: audit entries mutate only through fulfillment, ticket
// result annotations are written once, sealed batches never change.
type LedgerStore interface {
	SaveDraw(ctx context.Context, draw *models.Draw) error
	GetDraw(ctx context.Context, drawID string) (*models.Draw, error)

	SaveAuditEntry(ctx context.Context, entry *models.RandomnessAuditEntry) error
	GetAuditEntry(ctx context.Context, requestID string) (*models.RandomnessAuditEntry, error)
	LatestAuditEntryForDraw(ctx context.Context, drawID string) (*models.RandomnessAuditEntry, error)
	SetAuditEntryReceipt(ctx context.Context, requestID, txRef string, blockNumber uint64) error

	SaveTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error)
	ListTicketsByDraw(ctx context.Context, drawID string) ([]*models.Ticket, error)
	AnnotateTicketResult(ctx context.Context, ticketID string, matchedCount int, prizeAmount string, isWinner bool) error

	SaveHashRecord(ctx context.Context, record *models.TicketHashRecord) error
	GetHashRecord(ctx context.Context, ticketID string) (*models.TicketHashRecord, error)
	SetHashRecordBatchInfo(ctx context.Context, ticketID, merkleRoot, anchorRef string) error

	AppendOpenBatchLeaf(ctx context.Context, drawID string, leaf BatchLeaf) error
	OpenBatchLeaves(ctx context.Context, drawID string) ([]BatchLeaf, error)
	ClearOpenBatch(ctx context.Context, drawID string) error

	SaveBatch(ctx context.Context, batch *models.MerkleBatch) error
	GetBatch(ctx context.Context, batchID string) (*models.MerkleBatch, error)
	BatchForDraw(ctx context.Context, drawID string) (*models.MerkleBatch, error)
	ListUnanchoredBatches(ctx context.Context) ([]*models.MerkleBatch, error)
	MarkBatchAnchored(ctx context.Context, batchID, anchorRef string) error

	// ClaimPayout is the per-ticket idempotency key for payout side effects.
	// Returns true only for the first claim.
	ClaimPayout(ctx context.Context, ticketID string) (bool, error)
	ReleasePayoutClaim(ctx context.Context, ticketID string) error
}
