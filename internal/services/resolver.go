package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"draw-engine-backend/internal/models"
)

// PayoutNotifier delivers "user X won amount Y" events. Fire and forget:
// notification failures never propagate into payout processing.
type PayoutNotifier interface {
	NotifyPayout(userID, message string) error
}

// LogNotifier is the fallback notifier when no delivery channel is wired.
type LogNotifier struct{}

func (LogNotifier) NotifyPayout(userID, message string) error {
	log.Printf("payout notification for %s: %s", userID, message)
	return nil
}

// WalletLedger credits user balances and logs the transactions. External
// collaborator; the resolver only relies on this contract.
type WalletLedger interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	RecordTransaction(ctx context.Context, tx *models.Transaction) error
}

// Resolver computes match counts and prizes for a draw's tickets and emits
// payout side effects. Resolution is deterministic over its inputs and safe
// to re-run: the payout claim per ticket makes credits idempotent and the
// result annotation is write-once.
type Resolver struct {
	store         LedgerStore
	ledger        *IntegrityLedger
	wallet        WalletLedger
	notifier      PayoutNotifier
	creditRetries int
}

func NewResolver(store LedgerStore, ledger *IntegrityLedger, wallet WalletLedger, notifier PayoutNotifier) *Resolver {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Resolver{
		store:         store,
		ledger:        ledger,
		wallet:        wallet,
		notifier:      notifier,
		creditRetries: 3,
	}
}

type ticketOutcome struct {
	ticketID     string
	matchedCount int
	prize        decimal.Decimal
	isWinner     bool
	err          error
}

// ResolveDraw resolves every ticket against the winning numbers and returns
// the aggregated summary. Tickets are processed concurrently, fanned out one
// worker per user so credits to the same account stay serialized, and fanned
// back in before aggregation. A wallet credit failure isolates that ticket;
// the rest of the batch continues.
func (r *Resolver) ResolveDraw(ctx context.Context, drawID string, winningNumbers []int, tickets []*models.Ticket) (*models.DrawSummary, error) {
	draw, err := r.store.GetDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	rules, ok := draw.Rules()
	if !ok {
		return nil, fmt.Errorf("unknown draw type: %s", draw.DrawType)
	}
	if err := models.ValidateWinningNumbers(winningNumbers, rules); err != nil {
		return nil, err
	}

	jackpot, err := decimal.NewFromString(draw.JackpotAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid jackpot amount %q: %v", draw.JackpotAmount, err)
	}

	// Integrity gate: if the draw's ticket batch was sealed, its root must
	// still recompute before any money moves.
	if batch, err := r.store.BatchForDraw(ctx, drawID); err == nil {
		if _, err := r.ledger.VerifyBatch(ctx, batch.ID); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	winning := make(map[int]bool, len(winningNumbers))
	for _, n := range winningNumbers {
		winning[n] = true
	}

	byUser := make(map[string][]*models.Ticket)
	for _, ticket := range tickets {
		byUser[ticket.UserID] = append(byUser[ticket.UserID], ticket)
	}

	outcomes := make(chan ticketOutcome, len(tickets))
	var wg sync.WaitGroup
	for _, userTickets := range byUser {
		wg.Add(1)
		go func(userTickets []*models.Ticket) {
			defer wg.Done()
			for _, ticket := range userTickets {
				outcomes <- r.resolveTicket(ctx, draw, ticket, winning, jackpot)
			}
		}(userTickets)
	}
	wg.Wait()
	close(outcomes)

	summary := &models.DrawSummary{
		DrawID:              drawID,
		WinnersByMatchCount: make(map[int]int),
	}
	total := decimal.Zero
	var failures []error

	for outcome := range outcomes {
		summary.ProcessedTicketCount++
		if outcome.err != nil {
			failures = append(failures, outcome.err)
			continue
		}
		if outcome.isWinner {
			summary.TotalWinners++
			summary.WinnersByMatchCount[outcome.matchedCount]++
			total = total.Add(outcome.prize)
		}
	}
	summary.TotalPrizeAmount = models.FormatAmount(total)

	draw.Status = models.DrawStatusResolved
	if err := r.store.SaveDraw(ctx, draw); err != nil {
		failures = append(failures, fmt.Errorf("failed to mark draw resolved: %v", err))
	}

	return summary, errors.Join(failures...)
}

// ResolveDrawByID loads the draw's winning numbers and ticket set from the
// store and resolves them.
func (r *Resolver) ResolveDrawByID(ctx context.Context, drawID string) (*models.DrawSummary, error) {
	draw, err := r.store.GetDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if len(draw.WinningNumbers) == 0 {
		return nil, fmt.Errorf("draw %s has no winning numbers yet", drawID)
	}

	tickets, err := r.store.ListTicketsByDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	return r.ResolveDraw(ctx, drawID, draw.WinningNumbers, tickets)
}

func (r *Resolver) resolveTicket(ctx context.Context, draw *models.Draw, ticket *models.Ticket, winning map[int]bool, jackpot decimal.Decimal) ticketOutcome {
	matched := 0
	for _, n := range ticket.SelectedNumbers {
		if winning[n] {
			matched++
		}
	}

	prize, isWinner := models.PrizeFor(draw.DrawType, matched, jackpot)
	prize = prize.Round(2)

	outcome := ticketOutcome{
		ticketID:     ticket.ID,
		matchedCount: matched,
		prize:        prize,
		isWinner:     isWinner,
	}

	if isWinner {
		if err := r.payOut(ctx, ticket, prize, matched); err != nil {
			outcome.err = err
			return outcome
		}
	}

	if err := r.annotate(ctx, ticket.ID, matched, prize, isWinner); err != nil {
		outcome.err = err
	}
	return outcome
}

// payOut runs the per-winner side effects in order: wallet credit, then
// transaction record. The payout claim keyed by ticket id makes replays
// no-ops; a claim is released again only when the credit never succeeded.
func (r *Resolver) payOut(ctx context.Context, ticket *models.Ticket, prize decimal.Decimal, matched int) error {
	first, err := r.store.ClaimPayout(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	newBalance, err := r.creditWithRetry(ctx, ticket.UserID, prize)
	if err != nil {
		if relErr := r.store.ReleasePayoutClaim(ctx, ticket.ID); relErr != nil {
			log.Printf("failed to release payout claim for %s: %v", ticket.ID, relErr)
		}
		return fmt.Errorf("ticket %s: %w: %v", ticket.ID, ErrTicketCreditFailure, err)
	}

	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        ticket.UserID,
		Type:          models.TransactionTypeWin,
		Amount:        models.FormatAmount(prize),
		BalanceBefore: models.FormatAmount(newBalance.Sub(prize)),
		BalanceAfter:  models.FormatAmount(newBalance),
		TicketID:      ticket.ID,
		Description:   fmt.Sprintf("Prize for %d matched numbers in draw %s", matched, ticket.DrawID),
		CreatedAt:     time.Now(),
	}
	if err := r.wallet.RecordTransaction(ctx, tx); err != nil {
		// The credit itself went through; the missing journal line is
		// recoverable from the ticket annotation.
		log.Printf("failed to record transaction for ticket %s: %v", ticket.ID, err)
	}

	r.notify(ticket.UserID, prize, matched)
	return nil
}

func (r *Resolver) creditWithRetry(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	backoff := 100 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt < r.creditRetries; attempt++ {
		balance, err := r.wallet.Credit(ctx, userID, amount)
		if err == nil {
			return balance, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return decimal.Zero, lastErr
}

func (r *Resolver) annotate(ctx context.Context, ticketID string, matched int, prize decimal.Decimal, isWinner bool) error {
	err := r.store.AnnotateTicketResult(ctx, ticketID, matched, models.FormatAmount(prize), isWinner)
	if errors.Is(err, ErrAlreadyResolved) {
		return nil
	}
	return err
}

func (r *Resolver) notify(userID string, prize decimal.Decimal, matched int) {
	message := fmt.Sprintf("Congratulations! You matched %d numbers and won %s.",
		matched, models.FormatAmount(prize))
	if err := r.notifier.NotifyPayout(userID, message); err != nil {
		log.Printf("payout notification failed for %s: %v", userID, err)
	}
}
