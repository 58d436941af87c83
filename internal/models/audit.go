package models

import "time"

type OracleSource string

const (
	OracleSourceCertified OracleSource = "certified_chain"
	OracleSourceLocal     OracleSource = "local_secure"
)

type RandomnessStatus string

const (
	RandomnessStatusPending   RandomnessStatus = "pending"
	RandomnessStatusFulfilled RandomnessStatus = "fulfilled"
	RandomnessStatusFailed    RandomnessStatus = "failed"
)

// RandomnessAuditEntry is the audit trail of one randomness request. Entries
// are created pending, mutated exactly once by fulfillment, never deleted.
type RandomnessAuditEntry struct {
	RequestID    string           `json:"request_id" redis:"request_id"`
	DrawID       string           `json:"draw_id" redis:"draw_id"`
	Seed         string           `json:"seed,omitempty" redis:"seed"`
	Proof        string           `json:"proof,omitempty" redis:"proof"`
	OracleSource OracleSource     `json:"oracle_source" redis:"oracle_source"`
	Status       RandomnessStatus `json:"status" redis:"status"`
	TxRef        string           `json:"tx_ref,omitempty" redis:"tx_ref"`
	BlockNumber  uint64           `json:"block_number,omitempty" redis:"block_number"`
	CreatedAt    time.Time        `json:"created_at" redis:"created_at"`
	FulfilledAt  *time.Time       `json:"fulfilled_at,omitempty" redis:"fulfilled_at"`
}

// RandomnessReceipt is returned to the caller at request time.
type RandomnessReceipt struct {
	RequestID                string       `json:"request_id"`
	DrawID                   string       `json:"draw_id"`
	OracleSource             OracleSource `json:"oracle_source"`
	EstimatedFulfillmentTime time.Time    `json:"estimated_fulfillment_time"`
}

// ProofVerification is the outcome of re-checking a randomness proof.
//
// For local_secure entries this is an audit-log integrity check only: it
// proves the stored seed was not altered after the fact, not that the seed
// was unpredictable. Only the certified_chain source carries a verifiable
// randomness guarantee.
type ProofVerification struct {
	RequestID string `json:"request_id"`
	IsValid   bool   `json:"is_valid"`
	Details   string `json:"details"`
}
