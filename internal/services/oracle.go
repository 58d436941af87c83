package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"draw-engine-backend/internal/config"
	"draw-engine-backend/internal/models"
)

// maxDeriveIterations caps the seed-to-numbers loop. The domain is at most
// 49 values against a 256-bit hash chain, so the cap is never expected to
// trigger.
const maxDeriveIterations = 10000

// Oracle produces certified random seeds for draws and derives winning
// numbers from them. Exactly one provenance mode is active per instance:
// certified_chain delegates seed generation to an external verifiable
// oracle, local_secure generates the seed from crypto/rand and stores an
// audit proof SHA256(seed || requestID).
//
// The local proof is an audit-log integrity check only. It shows the seed
// was not altered after the fact; it does not carry the unpredictability
// guarantee of the certified path.
type Oracle struct {
	store        LedgerStore
	chain        ChainOracle
	mode         config.OracleMode
	fulfillDelay time.Duration
}

func NewOracle(store LedgerStore, chain ChainOracle, cfg *config.Config) *Oracle {
	return &Oracle{
		store:        store,
		chain:        chain,
		mode:         cfg.OracleMode,
		fulfillDelay: cfg.LocalFulfillDelay,
	}
}

// RequestRandomNumbers creates a pending audit entry for the draw and kicks
// off fulfillment on the configured path.
func (o *Oracle) RequestRandomNumbers(ctx context.Context, drawID string, drawType models.DrawType) (*models.RandomnessReceipt, error) {
	if _, ok := models.RulesFor(drawType); !ok {
		return nil, fmt.Errorf("unknown draw type: %s", drawType)
	}

	if o.mode == config.OracleModeCertified && o.chain == nil {
		return nil, fmt.Errorf("certified oracle not configured: %w", ErrOracleUnavailable)
	}

	requestID := models.GenerateRequestID()
	entry := &models.RandomnessAuditEntry{
		RequestID:    requestID,
		DrawID:       drawID,
		OracleSource: models.OracleSource(o.mode),
		Status:       models.RandomnessStatusPending,
		CreatedAt:    time.Now(),
	}
	if err := o.store.SaveAuditEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save audit entry: %v", err)
	}

	receipt := &models.RandomnessReceipt{
		RequestID:    requestID,
		DrawID:       drawID,
		OracleSource: entry.OracleSource,
	}

	switch o.mode {
	case config.OracleModeCertified:
		if err := o.chain.SubmitRequest(ctx, requestID, drawID); err != nil {
			o.markFailed(ctx, requestID)
			return nil, fmt.Errorf("chain oracle request failed: %w", ErrOracleUnavailable)
		}
		// Fulfillment arrives out of band over the chain feed.
		receipt.EstimatedFulfillmentTime = time.Now().Add(2 * time.Minute)

	case config.OracleModeLocal:
		receipt.EstimatedFulfillmentTime = time.Now().Add(o.fulfillDelay)
		if o.fulfillDelay <= 0 {
			if err := o.fulfillLocal(ctx, requestID); err != nil {
				return nil, err
			}
		} else {
			time.AfterFunc(o.fulfillDelay, func() {
				if err := o.fulfillLocal(context.Background(), requestID); err != nil {
					log.Printf("local fulfillment failed for %s: %v", requestID, err)
				}
			})
		}
	}

	return receipt, nil
}

func (o *Oracle) fulfillLocal(ctx context.Context, requestID string) error {
	seed, err := generateSeed()
	if err != nil {
		o.markFailed(ctx, requestID)
		return fmt.Errorf("failed to generate seed: %w", ErrOracleUnavailable)
	}
	return o.Fulfill(ctx, requestID, seed, "", "")
}

// Fulfill applies the at-most-once pending -> fulfilled transition. Replays
// against an already fulfilled or failed entry are no-ops; the stored seed
// and proof never change after the first fulfillment. An empty proof is
// computed as SHA256(seed || requestID).
func (o *Oracle) Fulfill(ctx context.Context, requestID, seed, proof, txRef string) error {
	entry, err := o.store.GetAuditEntry(ctx, requestID)
	if err != nil {
		return fmt.Errorf("fulfillment for unknown request %s: %w", requestID, ErrAuditEntryNotFound)
	}
	if entry.Status != models.RandomnessStatusPending {
		return nil
	}

	if proof == "" {
		proof = LocalProof(seed, requestID)
	}

	now := time.Now()
	entry.Seed = seed
	entry.Proof = proof
	entry.Status = models.RandomnessStatusFulfilled
	entry.FulfilledAt = &now
	if txRef != "" {
		entry.TxRef = txRef
	}

	return o.store.SaveAuditEntry(ctx, entry)
}

func (o *Oracle) markFailed(ctx context.Context, requestID string) {
	entry, err := o.store.GetAuditEntry(ctx, requestID)
	if err != nil || entry.Status != models.RandomnessStatusPending {
		return
	}
	entry.Status = models.RandomnessStatusFailed
	if err := o.store.SaveAuditEntry(ctx, entry); err != nil {
		log.Printf("failed to mark request %s failed: %v", requestID, err)
	}
}

// VerifyProof re-checks the stored proof of a randomness request. Local
// entries recompute SHA256(seed || requestID); certified entries confirm the
// referenced on-chain transaction.
func (o *Oracle) VerifyProof(ctx context.Context, requestID string) (*models.ProofVerification, error) {
	entry, err := o.store.GetAuditEntry(ctx, requestID)
	if err != nil {
		return &models.ProofVerification{
			RequestID: requestID,
			IsValid:   false,
			Details:   "audit entry not found",
		}, nil
	}

	if entry.Status != models.RandomnessStatusFulfilled {
		return &models.ProofVerification{
			RequestID: requestID,
			IsValid:   false,
			Details:   fmt.Sprintf("request is %s, not fulfilled", entry.Status),
		}, nil
	}

	switch entry.OracleSource {
	case models.OracleSourceLocal:
		if LocalProof(entry.Seed, requestID) != entry.Proof {
			return &models.ProofVerification{
				RequestID: requestID,
				IsValid:   false,
				Details:   "recomputed proof does not match stored proof",
			}, nil
		}
		return &models.ProofVerification{
			RequestID: requestID,
			IsValid:   true,
			Details:   "seed unaltered since fulfillment (audit integrity only, not a VRF)",
		}, nil

	case models.OracleSourceCertified:
		if entry.TxRef == "" {
			return &models.ProofVerification{
				RequestID: requestID,
				IsValid:   false,
				Details:   "no transaction reference recorded",
			}, nil
		}
		if o.chain == nil {
			return nil, fmt.Errorf("certified entry but no chain oracle configured: %w", ErrOracleUnavailable)
		}
		ok, err := o.chain.TransactionSucceeded(ctx, entry.TxRef)
		if err != nil {
			return nil, fmt.Errorf("failed to check transaction %s: %v", entry.TxRef, err)
		}
		if !ok {
			return &models.ProofVerification{
				RequestID: requestID,
				IsValid:   false,
				Details:   fmt.Sprintf("transaction %s not confirmed", entry.TxRef),
			}, nil
		}
		return &models.ProofVerification{
			RequestID: requestID,
			IsValid:   true,
			Details:   fmt.Sprintf("on-chain fulfillment confirmed in tx %s", entry.TxRef),
		}, nil
	}

	return nil, fmt.Errorf("unknown oracle source %q", entry.OracleSource)
}

// ComputeWinningNumbers derives and persists the draw's winning numbers from
// its fulfilled randomness. Idempotent: once a draw has numbers they are
// returned as-is.
func (o *Oracle) ComputeWinningNumbers(ctx context.Context, drawID string) ([]int, error) {
	draw, err := o.store.GetDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if len(draw.WinningNumbers) > 0 {
		return draw.WinningNumbers, nil
	}

	rules, ok := draw.Rules()
	if !ok {
		return nil, fmt.Errorf("unknown draw type: %s", draw.DrawType)
	}

	entry, err := o.store.LatestAuditEntryForDraw(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("no randomness for draw %s: %w", drawID, ErrAuditEntryNotFound)
	}
	if entry.Status != models.RandomnessStatusFulfilled {
		return nil, fmt.Errorf("randomness for draw %s is %s, not fulfilled", drawID, entry.Status)
	}

	numbers, err := DeriveWinningNumbers(entry.Seed, rules)
	if err != nil {
		return nil, err
	}

	draw.WinningNumbers = numbers
	draw.Status = models.DrawStatusNumbersDrawn
	if err := o.store.SaveDraw(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to persist winning numbers: %v", err)
	}
	return numbers, nil
}

// DeriveWinningNumbers turns a seed into sorted, unique winning numbers. The
// derivation is deterministic and must stay bit-exact: hash the current seed
// with SHA-256, read the first 8 hex characters of the digest as an unsigned
// integer, map it into [1, max], skip duplicates, and feed the digest back in
// as the next seed.
func DeriveWinningNumbers(seed string, rules models.DrawRules) ([]int, error) {
	if seed == "" {
		return nil, fmt.Errorf("empty seed")
	}

	numbers := make([]int, 0, rules.NumbersRequired)
	seen := make(map[int]bool, rules.NumbersRequired)
	current := seed

	for i := 0; i < maxDeriveIterations && len(numbers) < rules.NumbersRequired; i++ {
		sum := sha256.Sum256([]byte(current))
		digest := hex.EncodeToString(sum[:])

		v, err := strconv.ParseUint(digest[:8], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse digest prefix: %v", err)
		}

		candidate := int(v%uint64(rules.MaxNumberValue)) + 1
		if !seen[candidate] {
			seen[candidate] = true
			numbers = append(numbers, candidate)
		}
		current = digest
	}

	if len(numbers) < rules.NumbersRequired {
		return nil, ErrSeedExhausted
	}

	sort.Ints(numbers)
	return numbers, nil
}

// LocalProof computes the audit proof for a locally generated seed.
func LocalProof(seed, requestID string) string {
	sum := sha256.Sum256([]byte(seed + requestID))
	return hex.EncodeToString(sum[:])
}

func generateSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
