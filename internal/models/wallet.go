package models

// Wallet is the external wallet ledger's view of one user balance. Amounts
// are kept in cents so the Lua credit script works on integers only.
type Wallet struct {
	UserID        string `json:"user_id" redis:"user_id"`
	BalanceCents  int64  `json:"balance_cents" redis:"balance_cents"`
	TotalWonCents int64  `json:"total_won_cents" redis:"total_won_cents"`
}
