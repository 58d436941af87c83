package models

import "time"

type TransactionType string

const (
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeWin      TransactionType = "win"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
)

type Transaction struct {
	ID            string          `json:"id" redis:"id"`
	UserID        string          `json:"user_id" redis:"user_id"`
	Type          TransactionType `json:"type" redis:"type"`
	Amount        string          `json:"amount" redis:"amount"`
	BalanceBefore string          `json:"balance_before" redis:"balance_before"`
	BalanceAfter  string          `json:"balance_after" redis:"balance_after"`
	TicketID      string          `json:"ticket_id,omitempty" redis:"ticket_id"`
	Description   string          `json:"description" redis:"description"`
	CreatedAt     time.Time       `json:"created_at" redis:"created_at"`
}
