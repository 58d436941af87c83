package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"draw-engine-backend/internal/config"
)

// Anchorer commits a Merkle root to an external immutable ledger and returns
// a reference usable for independent verification. The specifics of that
// ledger are outside this engine; only the commit contract matters here.
type Anchorer interface {
	SubmitRoot(ctx context.Context, root string, leaves []string) (string, error)
}

// HTTPAnchorer posts batch roots to the anchoring gateway. The first few
// leaf hashes go along for transparency.
type HTTPAnchorer struct {
	url       string
	leafCount int
	client    *http.Client
}

func NewHTTPAnchorer(cfg *config.Config) *HTTPAnchorer {
	return &HTTPAnchorer{
		url:       cfg.AnchorURL,
		leafCount: cfg.AnchorLeafCount,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type anchorRequest struct {
	Root   string   `json:"root"`
	Leaves []string `json:"leaves"`
}

type anchorResponse struct {
	AnchorRef string `json:"anchor_ref"`
}

func (a *HTTPAnchorer) SubmitRoot(ctx context.Context, root string, leaves []string) (string, error) {
	if a.url == "" {
		return "", fmt.Errorf("no anchor endpoint configured")
	}

	if len(leaves) > a.leafCount {
		leaves = leaves[:a.leafCount]
	}

	body, err := json.Marshal(anchorRequest{Root: root, Leaves: leaves})
	if err != nil {
		return "", fmt.Errorf("failed to marshal anchor request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anchor submit failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("anchor gateway returned %d", resp.StatusCode)
	}

	var out anchorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode anchor response: %v", err)
	}
	if out.AnchorRef == "" {
		return "", fmt.Errorf("anchor gateway returned empty reference")
	}
	return out.AnchorRef, nil
}

// AnchorWorker periodically picks up sealed-but-unanchored batches and
// submits their roots with per-batch retry and backoff. It runs off the
// purchase path, so anchoring never blocks ticket sales.
type AnchorWorker struct {
	store      LedgerStore
	anchorer   Anchorer
	maxRetries int
}

func NewAnchorWorker(store LedgerStore, anchorer Anchorer, maxRetries int) *AnchorWorker {
	return &AnchorWorker{
		store:      store,
		anchorer:   anchorer,
		maxRetries: maxRetries,
	}
}

func (w *AnchorWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *AnchorWorker) sweep(ctx context.Context) {
	batches, err := w.store.ListUnanchoredBatches(ctx)
	if err != nil {
		log.Printf("anchor sweep failed: %v", err)
		return
	}

	for _, batch := range batches {
		if err := w.anchorBatch(ctx, batch.ID); err != nil {
			log.Printf("failed to anchor batch %s: %v", batch.ID, err)
		}
	}
}

func (w *AnchorWorker) anchorBatch(ctx context.Context, batchID string) error {
	batch, err := w.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.AnchorRef != "" {
		return nil
	}

	var ref string
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		ref, err = w.anchorer.SubmitRoot(ctx, batch.Root, batch.Hashes)
		if err == nil {
			break
		}
		if attempt+1 >= w.maxRetries {
			return fmt.Errorf("giving up after %d attempts: %v", attempt+1, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if err := w.store.MarkBatchAnchored(ctx, batchID, ref); err != nil {
		return err
	}
	for _, ticketID := range batch.TicketIDs {
		if err := w.store.SetHashRecordBatchInfo(ctx, ticketID, "", ref); err != nil {
			log.Printf("failed to backfill anchor on ticket %s: %v", ticketID, err)
		}
	}

	log.Printf("anchored batch %s as %s", batchID, ref)
	return nil
}
