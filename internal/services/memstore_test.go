package services_test

import (
	"context"
	"sync"
	"time"

	"draw-engine-backend/internal/models"
	"draw-engine-backend/internal/services"
)

// memStore is an in-memory LedgerStore for tests that exercise the pure
// engine logic without a Redis instance.
type memStore struct {
	mu           sync.Mutex
	draws        map[string]*models.Draw
	audits       map[string]*models.RandomnessAuditEntry
	drawAudit    map[string]string
	tickets      map[string]*models.Ticket
	drawTickets  map[string][]string
	hashRecords  map[string]*models.TicketHashRecord
	openBatches  map[string][]services.BatchLeaf
	batches      map[string]*models.MerkleBatch
	drawBatch    map[string]string
	payoutClaims map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		draws:        make(map[string]*models.Draw),
		audits:       make(map[string]*models.RandomnessAuditEntry),
		drawAudit:    make(map[string]string),
		tickets:      make(map[string]*models.Ticket),
		drawTickets:  make(map[string][]string),
		hashRecords:  make(map[string]*models.TicketHashRecord),
		openBatches:  make(map[string][]services.BatchLeaf),
		batches:      make(map[string]*models.MerkleBatch),
		drawBatch:    make(map[string]string),
		payoutClaims: make(map[string]bool),
	}
}

func (s *memStore) SaveDraw(ctx context.Context, draw *models.Draw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws[draw.ID] = draw
	return nil
}

func (s *memStore) GetDraw(ctx context.Context, drawID string) (*models.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw, ok := s.draws[drawID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return draw, nil
}

func (s *memStore) SaveAuditEntry(ctx context.Context, entry *models.RandomnessAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.audits[entry.RequestID] = &copied
	s.drawAudit[entry.DrawID] = entry.RequestID
	return nil
}

func (s *memStore) GetAuditEntry(ctx context.Context, requestID string) (*models.RandomnessAuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.audits[requestID]
	if !ok {
		return nil, services.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (s *memStore) LatestAuditEntryForDraw(ctx context.Context, drawID string) (*models.RandomnessAuditEntry, error) {
	s.mu.Lock()
	requestID, ok := s.drawAudit[drawID]
	s.mu.Unlock()
	if !ok {
		return nil, services.ErrNotFound
	}
	return s.GetAuditEntry(ctx, requestID)
}

func (s *memStore) SetAuditEntryReceipt(ctx context.Context, requestID, txRef string, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.audits[requestID]
	if !ok {
		return services.ErrNotFound
	}
	if entry.TxRef == "" {
		entry.TxRef = txRef
		entry.BlockNumber = blockNumber
	}
	return nil
}

func (s *memStore) SaveTicket(ctx context.Context, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[ticket.ID]; !exists {
		s.drawTickets[ticket.DrawID] = append(s.drawTickets[ticket.DrawID], ticket.ID)
	}
	s.tickets[ticket.ID] = ticket
	return nil
}

func (s *memStore) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return ticket, nil
}

func (s *memStore) ListTicketsByDraw(ctx context.Context, drawID string) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tickets []*models.Ticket
	for _, id := range s.drawTickets[drawID] {
		tickets = append(tickets, s.tickets[id])
	}
	return tickets, nil
}

func (s *memStore) AnnotateTicketResult(ctx context.Context, ticketID string, matchedCount int, prizeAmount string, isWinner bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return services.ErrNotFound
	}
	if ticket.Resolved {
		return services.ErrAlreadyResolved
	}
	ticket.MatchedCount = matchedCount
	ticket.PrizeAmount = prizeAmount
	ticket.IsWinner = isWinner
	ticket.Resolved = true
	return nil
}

func (s *memStore) SaveHashRecord(ctx context.Context, record *models.TicketHashRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashRecords[record.TicketID] = record
	return nil
}

func (s *memStore) GetHashRecord(ctx context.Context, ticketID string) (*models.TicketHashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.hashRecords[ticketID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return record, nil
}

func (s *memStore) SetHashRecordBatchInfo(ctx context.Context, ticketID, merkleRoot, anchorRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.hashRecords[ticketID]
	if !ok {
		return services.ErrNotFound
	}
	if merkleRoot != "" {
		record.MerkleRoot = merkleRoot
	}
	if anchorRef != "" {
		record.BlockchainAnchor = anchorRef
	}
	return nil
}

func (s *memStore) AppendOpenBatchLeaf(ctx context.Context, drawID string, leaf services.BatchLeaf) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openBatches[drawID] = append(s.openBatches[drawID], leaf)
	return nil
}

func (s *memStore) OpenBatchLeaves(ctx context.Context, drawID string) ([]services.BatchLeaf, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.BatchLeaf{}, s.openBatches[drawID]...), nil
}

func (s *memStore) ClearOpenBatch(ctx context.Context, drawID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.openBatches, drawID)
	return nil
}

func (s *memStore) SaveBatch(ctx context.Context, batch *models.MerkleBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = batch
	s.drawBatch[batch.DrawID] = batch.ID
	return nil
}

func (s *memStore) GetBatch(ctx context.Context, batchID string) (*models.MerkleBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return batch, nil
}

func (s *memStore) BatchForDraw(ctx context.Context, drawID string) (*models.MerkleBatch, error) {
	s.mu.Lock()
	batchID, ok := s.drawBatch[drawID]
	s.mu.Unlock()
	if !ok {
		return nil, services.ErrNotFound
	}
	return s.GetBatch(ctx, batchID)
}

func (s *memStore) ListUnanchoredBatches(ctx context.Context) ([]*models.MerkleBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batches []*models.MerkleBatch
	for _, batch := range s.batches {
		if batch.AnchorRef == "" {
			batches = append(batches, batch)
		}
	}
	return batches, nil
}

func (s *memStore) MarkBatchAnchored(ctx context.Context, batchID, anchorRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return services.ErrNotFound
	}
	if batch.AnchorRef == "" {
		now := time.Now()
		batch.AnchorRef = anchorRef
		batch.AnchoredAt = &now
	}
	return nil
}

func (s *memStore) ClaimPayout(ctx context.Context, ticketID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payoutClaims[ticketID] {
		return false, nil
	}
	s.payoutClaims[ticketID] = true
	return true, nil
}

func (s *memStore) ReleasePayoutClaim(ctx context.Context, ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payoutClaims, ticketID)
	return nil
}
