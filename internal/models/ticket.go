package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID              string    `json:"id" redis:"id"`
	UserID          string    `json:"user_id" redis:"user_id"`
	DrawID          string    `json:"draw_id" redis:"draw_id"`
	SelectedNumbers []int     `json:"selected_numbers" redis:"selected_numbers"`
	Cost            string    `json:"cost" redis:"cost"`
	PurchasedAt     time.Time `json:"purchased_at" redis:"purchased_at"`
	AgentID         string    `json:"agent_id,omitempty" redis:"agent_id"`

	// Result annotation, written exactly once by draw resolution.
	MatchedCount int    `json:"matched_count" redis:"matched_count"`
	PrizeAmount  string `json:"prize_amount,omitempty" redis:"prize_amount"`
	IsWinner     bool   `json:"is_winner" redis:"is_winner"`
	Resolved     bool   `json:"resolved" redis:"resolved"`
}

// Validate rejects malformed tickets before any side effect occurs.
func (t *Ticket) Validate(rules DrawRules) error {
	if t.UserID == "" {
		return fmt.Errorf("ticket must have a user id")
	}
	if t.DrawID == "" {
		return fmt.Errorf("ticket must have a draw id")
	}
	if len(t.SelectedNumbers) != rules.NumbersRequired {
		return fmt.Errorf("ticket must select exactly %d numbers, got %d",
			rules.NumbersRequired, len(t.SelectedNumbers))
	}
	seen := make(map[int]bool, len(t.SelectedNumbers))
	for _, n := range t.SelectedNumbers {
		if n < 1 || n > rules.MaxNumberValue {
			return fmt.Errorf("number %d out of range 1-%d", n, rules.MaxNumberValue)
		}
		if seen[n] {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = true
	}
	if _, err := decimal.NewFromString(t.Cost); err != nil {
		return fmt.Errorf("invalid ticket cost %q: %v", t.Cost, err)
	}
	return nil
}

type PurchaseTicketRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	DrawID          string `json:"draw_id" binding:"required"`
	SelectedNumbers []int  `json:"selected_numbers" binding:"required"`
	Cost            string `json:"cost" binding:"required"`
	AgentID         string `json:"agent_id"`
}

// TicketHashRecord binds a ticket to the integrity ledger. Hash and algorithm
// are set at purchase time; merkle_root and blockchain_anchor are filled in
// later when the ticket's batch is sealed and anchored. Append-only.
type TicketHashRecord struct {
	TicketID         string    `json:"ticket_id" redis:"ticket_id"`
	Hash             string    `json:"hash" redis:"hash"`
	Algorithm        string    `json:"algorithm" redis:"algorithm"`
	MerkleRoot       string    `json:"merkle_root,omitempty" redis:"merkle_root"`
	BlockchainAnchor string    `json:"blockchain_anchor,omitempty" redis:"blockchain_anchor"`
	CreatedAt        time.Time `json:"created_at" redis:"created_at"`
}

// MerkleBatch is a sealed, ordered sequence of ticket hashes and its root.
// Batches are never mutated after sealing; anchoring only fills AnchorRef.
type MerkleBatch struct {
	ID         string     `json:"id" redis:"id"`
	DrawID     string     `json:"draw_id" redis:"draw_id"`
	TicketIDs  []string   `json:"ticket_ids" redis:"ticket_ids"`
	Hashes     []string   `json:"hashes" redis:"hashes"`
	Root       string     `json:"root" redis:"root"`
	AnchorRef  string     `json:"anchor_ref,omitempty" redis:"anchor_ref"`
	SealedAt   time.Time  `json:"sealed_at" redis:"sealed_at"`
	AnchoredAt *time.Time `json:"anchored_at,omitempty" redis:"anchored_at"`
}

// TicketProof is a Merkle inclusion proof for one ticket in a sealed batch.
type TicketProof struct {
	TicketID string   `json:"ticket_id"`
	BatchID  string   `json:"batch_id"`
	LeafHash string   `json:"leaf_hash"`
	Root     string   `json:"root"`
	Index    int      `json:"index"`
	Siblings []string `json:"siblings"`
}
