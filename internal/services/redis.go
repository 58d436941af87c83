package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"draw-engine-backend/internal/config"
	"draw-engine-backend/internal/models"
)

// RedisStore implements LedgerStore on Redis. Entities are stored as JSON
// blobs under typed keys; per-draw ticket order and the open hash batch use
// lists so batch order is exactly purchase order.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", key, err)
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %v", key, err)
	}
	return json.Unmarshal([]byte(data), v)
}

func (s *RedisStore) SaveDraw(ctx context.Context, draw *models.Draw) error {
	draw.UpdatedAt = time.Now()
	return s.setJSON(ctx, fmt.Sprintf(KeyDraw, draw.ID), draw)
}

func (s *RedisStore) GetDraw(ctx context.Context, drawID string) (*models.Draw, error) {
	var draw models.Draw
	if err := s.getJSON(ctx, fmt.Sprintf(KeyDraw, drawID), &draw); err != nil {
		return nil, err
	}
	return &draw, nil
}

func (s *RedisStore) SaveAuditEntry(ctx context.Context, entry *models.RandomnessAuditEntry) error {
	if err := s.setJSON(ctx, fmt.Sprintf(KeyAuditEntry, entry.RequestID), entry); err != nil {
		return err
	}
	// Latest request wins the per-draw pointer; older entries stay readable
	// under their own request id.
	return s.client.Set(ctx, fmt.Sprintf(KeyDrawRandomness, entry.DrawID), entry.RequestID, 0).Err()
}

func (s *RedisStore) GetAuditEntry(ctx context.Context, requestID string) (*models.RandomnessAuditEntry, error) {
	var entry models.RandomnessAuditEntry
	if err := s.getJSON(ctx, fmt.Sprintf(KeyAuditEntry, requestID), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RedisStore) LatestAuditEntryForDraw(ctx context.Context, drawID string) (*models.RandomnessAuditEntry, error) {
	requestID, err := s.client.Get(ctx, fmt.Sprintf(KeyDrawRandomness, drawID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get randomness pointer for draw %s: %v", drawID, err)
	}
	return s.GetAuditEntry(ctx, requestID)
}

func (s *RedisStore) SetAuditEntryReceipt(ctx context.Context, requestID, txRef string, blockNumber uint64) error {
	entry, err := s.GetAuditEntry(ctx, requestID)
	if err != nil {
		return err
	}
	if entry.TxRef != "" {
		return nil
	}
	entry.TxRef = txRef
	entry.BlockNumber = blockNumber
	return s.setJSON(ctx, fmt.Sprintf(KeyAuditEntry, requestID), entry)
}

func (s *RedisStore) SaveTicket(ctx context.Context, ticket *models.Ticket) error {
	if err := s.setJSON(ctx, fmt.Sprintf(KeyTicket, ticket.ID), ticket); err != nil {
		return err
	}
	return s.client.RPush(ctx, fmt.Sprintf(KeyDrawTickets, ticket.DrawID), ticket.ID).Err()
}

func (s *RedisStore) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.getJSON(ctx, fmt.Sprintf(KeyTicket, ticketID), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *RedisStore) ListTicketsByDraw(ctx context.Context, drawID string) ([]*models.Ticket, error) {
	ids, err := s.client.LRange(ctx, fmt.Sprintf(KeyDrawTickets, drawID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for draw %s: %v", drawID, err)
	}

	tickets := make([]*models.Ticket, 0, len(ids))
	for _, id := range ids {
		ticket, err := s.GetTicket(ctx, id)
		if err != nil {
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (s *RedisStore) AnnotateTicketResult(ctx context.Context, ticketID string, matchedCount int, prizeAmount string, isWinner bool) error {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Resolved {
		return ErrAlreadyResolved
	}

	ticket.MatchedCount = matchedCount
	ticket.PrizeAmount = prizeAmount
	ticket.IsWinner = isWinner
	ticket.Resolved = true

	return s.setJSON(ctx, fmt.Sprintf(KeyTicket, ticketID), ticket)
}

func (s *RedisStore) SaveHashRecord(ctx context.Context, record *models.TicketHashRecord) error {
	return s.setJSON(ctx, fmt.Sprintf(KeyHashRecord, record.TicketID), record)
}

func (s *RedisStore) GetHashRecord(ctx context.Context, ticketID string) (*models.TicketHashRecord, error) {
	var record models.TicketHashRecord
	if err := s.getJSON(ctx, fmt.Sprintf(KeyHashRecord, ticketID), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *RedisStore) SetHashRecordBatchInfo(ctx context.Context, ticketID, merkleRoot, anchorRef string) error {
	record, err := s.GetHashRecord(ctx, ticketID)
	if err != nil {
		return err
	}
	if merkleRoot != "" {
		record.MerkleRoot = merkleRoot
	}
	if anchorRef != "" {
		record.BlockchainAnchor = anchorRef
	}
	return s.setJSON(ctx, fmt.Sprintf(KeyHashRecord, ticketID), record)
}

func (s *RedisStore) AppendOpenBatchLeaf(ctx context.Context, drawID string, leaf BatchLeaf) error {
	data, err := json.Marshal(leaf)
	if err != nil {
		return fmt.Errorf("failed to marshal batch leaf: %v", err)
	}
	return s.client.RPush(ctx, fmt.Sprintf(KeyDrawOpenBatch, drawID), data).Err()
}

func (s *RedisStore) OpenBatchLeaves(ctx context.Context, drawID string) ([]BatchLeaf, error) {
	entries, err := s.client.LRange(ctx, fmt.Sprintf(KeyDrawOpenBatch, drawID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read open batch for draw %s: %v", drawID, err)
	}

	leaves := make([]BatchLeaf, 0, len(entries))
	for _, entry := range entries {
		var leaf BatchLeaf
		if err := json.Unmarshal([]byte(entry), &leaf); err != nil {
			return nil, fmt.Errorf("corrupt open batch entry for draw %s: %v", drawID, err)
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

func (s *RedisStore) ClearOpenBatch(ctx context.Context, drawID string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyDrawOpenBatch, drawID)).Err()
}

func (s *RedisStore) SaveBatch(ctx context.Context, batch *models.MerkleBatch) error {
	if err := s.setJSON(ctx, fmt.Sprintf(KeyBatch, batch.ID), batch); err != nil {
		return err
	}
	if err := s.client.Set(ctx, fmt.Sprintf(KeyDrawBatch, batch.DrawID), batch.ID, 0).Err(); err != nil {
		return err
	}
	if batch.AnchorRef == "" {
		return s.client.SAdd(ctx, KeyUnanchoredSet, batch.ID).Err()
	}
	return nil
}

func (s *RedisStore) GetBatch(ctx context.Context, batchID string) (*models.MerkleBatch, error) {
	var batch models.MerkleBatch
	if err := s.getJSON(ctx, fmt.Sprintf(KeyBatch, batchID), &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (s *RedisStore) BatchForDraw(ctx context.Context, drawID string) (*models.MerkleBatch, error) {
	batchID, err := s.client.Get(ctx, fmt.Sprintf(KeyDrawBatch, drawID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch pointer for draw %s: %v", drawID, err)
	}
	return s.GetBatch(ctx, batchID)
}

func (s *RedisStore) ListUnanchoredBatches(ctx context.Context) ([]*models.MerkleBatch, error) {
	ids, err := s.client.SMembers(ctx, KeyUnanchoredSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list unanchored batches: %v", err)
	}

	batches := make([]*models.MerkleBatch, 0, len(ids))
	for _, id := range ids {
		batch, err := s.GetBatch(ctx, id)
		if err != nil {
			continue
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func (s *RedisStore) MarkBatchAnchored(ctx context.Context, batchID, anchorRef string) error {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.AnchorRef != "" {
		return nil
	}

	now := time.Now()
	batch.AnchorRef = anchorRef
	batch.AnchoredAt = &now

	if err := s.setJSON(ctx, fmt.Sprintf(KeyBatch, batchID), batch); err != nil {
		return err
	}
	return s.client.SRem(ctx, KeyUnanchoredSet, batchID).Err()
}

func (s *RedisStore) ClaimPayout(ctx context.Context, ticketID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, fmt.Sprintf(KeyPayoutClaim, ticketID), time.Now().Unix(), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim payout for ticket %s: %v", ticketID, err)
	}
	return ok, nil
}

func (s *RedisStore) ReleasePayoutClaim(ctx context.Context, ticketID string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyPayoutClaim, ticketID)).Err()
}
