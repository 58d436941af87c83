package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"draw-engine-backend/internal/config"
	"draw-engine-backend/internal/models"
	"draw-engine-backend/internal/services"
)

func TestRedisStore(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	store, err := services.NewRedisStore(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	drawID := fmt.Sprintf("test_draw_%d", time.Now().UnixNano())

	draw := &models.Draw{
		ID:            drawID,
		DrawType:      models.DrawTypeDaily,
		Status:        models.DrawStatusScheduled,
		JackpotAmount: "500.00",
		CreatedAt:     time.Now(),
	}
	if err := store.SaveDraw(ctx, draw); err != nil {
		t.Fatalf("Failed to save draw: %v", err)
	}

	retrieved, err := store.GetDraw(ctx, drawID)
	if err != nil {
		t.Fatalf("Failed to get draw: %v", err)
	}
	if retrieved.DrawType != models.DrawTypeDaily || retrieved.JackpotAmount != "500.00" {
		t.Errorf("Draw round trip mismatch: %+v", retrieved)
	}

	if _, err := store.GetDraw(ctx, "missing_draw"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing draw, got %v", err)
	}

	ticketID := fmt.Sprintf("test_ticket_%d", time.Now().UnixNano())
	ticket := &models.Ticket{
		ID:              ticketID,
		UserID:          "test_user",
		DrawID:          drawID,
		SelectedNumbers: []int{3, 9, 17, 28, 41},
		Cost:            "2.00",
		PurchasedAt:     time.Now(),
	}
	if err := store.SaveTicket(ctx, ticket); err != nil {
		t.Fatalf("Failed to save ticket: %v", err)
	}

	tickets, err := store.ListTicketsByDraw(ctx, drawID)
	if err != nil {
		t.Fatalf("Failed to list tickets: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != ticketID {
		t.Errorf("Expected the saved ticket in the draw listing, got %d tickets", len(tickets))
	}

	// Annotation is write-once.
	if err := store.AnnotateTicketResult(ctx, ticketID, 3, "25.00", true); err != nil {
		t.Errorf("Failed to annotate ticket: %v", err)
	}
	if err := store.AnnotateTicketResult(ctx, ticketID, 5, "500.00", true); !errors.Is(err, services.ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved on second annotation, got %v", err)
	}
	annotated, _ := store.GetTicket(ctx, ticketID)
	if annotated.MatchedCount != 3 || annotated.PrizeAmount != "25.00" {
		t.Errorf("First annotation must stand: %+v", annotated)
	}

	// Payout claim is first-writer-wins.
	first, err := store.ClaimPayout(ctx, ticketID)
	if err != nil {
		t.Fatalf("Failed to claim payout: %v", err)
	}
	if !first {
		t.Error("First payout claim should succeed")
	}
	second, err := store.ClaimPayout(ctx, ticketID)
	if err != nil {
		t.Fatalf("Failed on second claim: %v", err)
	}
	if second {
		t.Error("Second payout claim must be rejected")
	}
	if err := store.ReleasePayoutClaim(ctx, ticketID); err != nil {
		t.Errorf("Failed to release payout claim: %v", err)
	}
	reclaimed, _ := store.ClaimPayout(ctx, ticketID)
	if !reclaimed {
		t.Error("Released claim should be claimable again")
	}
	store.ReleasePayoutClaim(ctx, ticketID)
}

func TestRedisWalletCredit(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	store, err := services.NewRedisStore(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer store.Close()

	wallet := services.NewRedisWallet(store)
	ctx := context.Background()
	userID := fmt.Sprintf("test_user_%d", time.Now().UnixNano())

	balance, err := wallet.Credit(ctx, userID, decimal.RequireFromString("150.00"))
	if err != nil {
		t.Fatalf("Failed to credit wallet: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("Expected balance 150.00, got %s", balance)
	}

	balance, err = wallet.Credit(ctx, userID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("Failed on second credit: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("160.00")) {
		t.Errorf("Expected balance 160.00, got %s", balance)
	}

	stored, err := wallet.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}
	if !stored.Equal(balance) {
		t.Errorf("Stored balance %s does not match credited balance %s", stored, balance)
	}

	if _, err := wallet.Credit(ctx, userID, decimal.Zero); err == nil {
		t.Error("Zero credit should be rejected")
	}
	if _, err := wallet.Credit(ctx, userID, decimal.RequireFromString("-5.00")); err == nil {
		t.Error("Negative credit should be rejected")
	}

	tx := &models.Transaction{
		ID:        models.GenerateTransactionID(),
		UserID:    userID,
		Type:      models.TransactionTypeWin,
		Amount:    "160.00",
		CreatedAt: time.Now(),
	}
	if err := wallet.RecordTransaction(ctx, tx); err != nil {
		t.Errorf("Failed to record transaction: %v", err)
	}

	transactions, err := wallet.GetUserTransactions(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Failed to list transactions: %v", err)
	}
	if len(transactions) != 1 || transactions[0].ID != tx.ID {
		t.Errorf("Expected the recorded transaction, got %d entries", len(transactions))
	}
}
