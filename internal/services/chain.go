package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ChainOracle is the pluggable certified-randomness collaborator. The engine
// never implements the oracle's cryptography itself; it submits requests and
// records the receipts and fulfillments the oracle reports back.
type ChainOracle interface {
	SubmitRequest(ctx context.Context, requestID, drawID string) error
	TransactionSucceeded(ctx context.Context, txRef string) (bool, error)
}

type chainMessage struct {
	Type        string `json:"type"`
	RequestID   string `json:"request_id,omitempty"`
	DrawID      string `json:"draw_id,omitempty"`
	Seed        string `json:"seed,omitempty"`
	Proof       string `json:"proof,omitempty"`
	TxRef       string `json:"tx_ref,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
}

const (
	msgRequestRandomness   = "REQUEST_RANDOMNESS"
	msgRandomnessAccepted  = "RANDOMNESS_ACCEPTED"
	msgRandomnessFulfilled = "RANDOMNESS_FULFILLED"
	msgTxConfirmed         = "TX_CONFIRMED"
)

// ChainFeed is a ChainOracle over a websocket connection to the oracle
// coordinator. Requests go out as JSON messages; receipts, fulfillments and
// confirmations stream back asynchronously and are applied to the audit
// trail as they arrive.
type ChainFeed struct {
	url   string
	store LedgerStore

	mu        sync.Mutex
	conn      *websocket.Conn
	confirmed map[string]bool
}

func NewChainFeed(url string, store LedgerStore) *ChainFeed {
	return &ChainFeed{
		url:       url,
		store:     store,
		confirmed: make(map[string]bool),
	}
}

func (f *ChainFeed) SubmitRequest(ctx context.Context, requestID, drawID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("chain feed not connected: %w", ErrOracleUnavailable)
	}

	msg := chainMessage{
		Type:      msgRequestRandomness,
		RequestID: requestID,
		DrawID:    drawID,
	}
	if err := f.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to submit randomness request: %v", err)
	}
	return nil
}

func (f *ChainFeed) TransactionSucceeded(ctx context.Context, txRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed[txRef], nil
}

// Run dials the coordinator and processes feed messages until ctx is
// cancelled, reconnecting with backoff after connection loss.
func (f *ChainFeed) Run(ctx context.Context, oracle *Oracle) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			log.Printf("chain feed dial failed: %v, retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < time.Minute {
				backoff *= 2
			}
			continue
		}

		log.Printf("chain feed connected: %s", f.url)
		backoff = time.Second

		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()

		f.readLoop(ctx, conn, oracle)

		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
		conn.Close()
	}
}

func (f *ChainFeed) readLoop(ctx context.Context, conn *websocket.Conn, oracle *Oracle) {
	for {
		var msg chainMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("chain feed error: %v", err)
			}
			return
		}

		switch msg.Type {
		case msgRandomnessAccepted:
			if err := f.store.SetAuditEntryReceipt(ctx, msg.RequestID, msg.TxRef, msg.BlockNumber); err != nil {
				log.Printf("failed to record receipt for %s: %v", msg.RequestID, err)
			}
			f.markConfirmed(msg.TxRef)

		case msgRandomnessFulfilled:
			if err := oracle.Fulfill(ctx, msg.RequestID, msg.Seed, msg.Proof, msg.TxRef); err != nil {
				log.Printf("failed to apply fulfillment for %s: %v", msg.RequestID, err)
			}
			f.markConfirmed(msg.TxRef)

		case msgTxConfirmed:
			f.markConfirmed(msg.TxRef)
		}
	}
}

func (f *ChainFeed) markConfirmed(txRef string) {
	if txRef == "" {
		return
	}
	f.mu.Lock()
	f.confirmed[txRef] = true
	f.mu.Unlock()
}
