package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"draw-engine-backend/internal/models"
)

const hashAlgorithm = "sha256"

// IntegrityLedger binds sold tickets to a tamper-evident hash trail. Each
// ticket gets a deterministic hash at purchase time; the hashes of a draw
// accumulate in an open batch that is sealed into a Merkle tree when the
// draw closes, so inclusion of any ticket can later be proven against the
// batch root.
type IntegrityLedger struct {
	store LedgerStore
}

func NewIntegrityLedger(store LedgerStore) *IntegrityLedger {
	return &IntegrityLedger{store: store}
}

// HashTicket hashes the canonical serialization of a ticket's immutable
// fields. Selected numbers are sorted before hashing so the order the buyer
// entered them in never affects the hash.
func HashTicket(t *models.Ticket) string {
	numbers := models.SortedNumbers(t.SelectedNumbers)
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, strconv.Itoa(n))
	}

	canonical := strings.Join([]string{
		t.ID,
		t.UserID,
		t.DrawID,
		strings.Join(parts, ","),
		t.Cost,
		strconv.FormatInt(t.PurchasedAt.Unix(), 10),
		t.AgentID,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func combineHashes(left, right string) string {
	sum := sha256.Sum256([]byte(left + right))
	return hex.EncodeToString(sum[:])
}

// BuildMerkleRoot folds an ordered hash sequence pairwise into a single
// root. An odd node at any level is paired with itself. Empty input yields
// the empty sentinel root; a single hash is its own root.
func BuildMerkleRoot(hashes []string) string {
	if len(hashes) == 0 {
		return ""
	}

	level := hashes
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, combineHashes(level[i], level[i+1]))
			} else {
				next = append(next, combineHashes(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}

// GenerateMerkleProof collects, per tree level, the sibling of the node on
// the path from hashes[index] up to the root.
func GenerateMerkleProof(hashes []string, index int) ([]string, error) {
	if index < 0 || index >= len(hashes) {
		return nil, fmt.Errorf("proof index %d out of range for %d hashes", index, len(hashes))
	}

	siblings := []string{}
	level := hashes
	for len(level) > 1 {
		if index%2 == 0 {
			if index+1 < len(level) {
				siblings = append(siblings, level[index+1])
			} else {
				siblings = append(siblings, level[index])
			}
		} else {
			siblings = append(siblings, level[index-1])
		}

		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, combineHashes(level[i], level[i+1]))
			} else {
				next = append(next, combineHashes(level[i], level[i]))
			}
		}
		level = next
		index /= 2
	}
	return siblings, nil
}

// VerifyMerkleProof recombines a leaf with its sibling path. At each level
// the index bit decides the side: 0 means the current node is the left
// child, 1 the right.
func VerifyMerkleProof(leafHash, root string, siblings []string, index int) bool {
	current := leafHash
	for _, sibling := range siblings {
		if index%2 == 0 {
			current = combineHashes(current, sibling)
		} else {
			current = combineHashes(sibling, current)
		}
		index /= 2
	}
	return current == root
}

// RecordTicketHash computes and stores the ticket's hash record and appends
// the hash to the draw's open batch. Called once at purchase time.
func (l *IntegrityLedger) RecordTicketHash(ctx context.Context, ticket *models.Ticket) (*models.TicketHashRecord, error) {
	if existing, err := l.store.GetHashRecord(ctx, ticket.ID); err == nil {
		return existing, nil
	}

	record := &models.TicketHashRecord{
		TicketID:  ticket.ID,
		Hash:      HashTicket(ticket),
		Algorithm: hashAlgorithm,
		CreatedAt: time.Now(),
	}
	if err := l.store.SaveHashRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save hash record: %v", err)
	}

	leaf := BatchLeaf{TicketID: ticket.ID, Hash: record.Hash}
	if err := l.store.AppendOpenBatchLeaf(ctx, ticket.DrawID, leaf); err != nil {
		return nil, fmt.Errorf("failed to append to open batch: %v", err)
	}
	return record, nil
}

// SealBatch freezes the draw's open batch into an immutable MerkleBatch and
// backfills the root on every member hash record. Anchoring happens later,
// from the anchor worker. Sealing twice returns the existing batch.
func (l *IntegrityLedger) SealBatch(ctx context.Context, drawID string) (*models.MerkleBatch, error) {
	if existing, err := l.store.BatchForDraw(ctx, drawID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	leaves, err := l.store.OpenBatchLeaves(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if len(leaves) == 0 {
		return nil, fmt.Errorf("no ticket hashes recorded for draw %s", drawID)
	}

	ticketIDs := make([]string, len(leaves))
	hashes := make([]string, len(leaves))
	for i, leaf := range leaves {
		ticketIDs[i] = leaf.TicketID
		hashes[i] = leaf.Hash
	}

	batch := &models.MerkleBatch{
		ID:        models.GenerateBatchID(drawID),
		DrawID:    drawID,
		TicketIDs: ticketIDs,
		Hashes:    hashes,
		Root:      BuildMerkleRoot(hashes),
		SealedAt:  time.Now(),
	}
	if err := l.store.SaveBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save batch: %v", err)
	}

	for _, ticketID := range ticketIDs {
		if err := l.store.SetHashRecordBatchInfo(ctx, ticketID, batch.Root, ""); err != nil {
			return nil, fmt.Errorf("failed to backfill root on ticket %s: %v", ticketID, err)
		}
	}

	if err := l.store.ClearOpenBatch(ctx, drawID); err != nil {
		return nil, err
	}
	return batch, nil
}

// VerifyBatch recomputes a sealed batch's root from its stored hash
// sequence. A mismatch is critical and must halt dependent payout flows.
func (l *IntegrityLedger) VerifyBatch(ctx context.Context, batchID string) (*models.MerkleBatch, error) {
	batch, err := l.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if BuildMerkleRoot(batch.Hashes) != batch.Root {
		return batch, fmt.Errorf("batch %s: %w", batchID, ErrBatchIntegrityMismatch)
	}
	return batch, nil
}

// TicketProof builds the Merkle inclusion proof for a ticket in its draw's
// sealed batch.
func (l *IntegrityLedger) TicketProof(ctx context.Context, ticketID string) (*models.TicketProof, error) {
	record, err := l.store.GetHashRecord(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	ticket, err := l.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	batch, err := l.store.BatchForDraw(ctx, ticket.DrawID)
	if err != nil {
		return nil, fmt.Errorf("draw %s has no sealed batch: %w", ticket.DrawID, err)
	}

	index := -1
	for i, hash := range batch.Hashes {
		if hash == record.Hash && batch.TicketIDs[i] == ticketID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("ticket %s not found in batch %s", ticketID, batch.ID)
	}

	siblings, err := GenerateMerkleProof(batch.Hashes, index)
	if err != nil {
		return nil, err
	}

	return &models.TicketProof{
		TicketID: ticketID,
		BatchID:  batch.ID,
		LeafHash: record.Hash,
		Root:     batch.Root,
		Index:    index,
		Siblings: siblings,
	}, nil
}
