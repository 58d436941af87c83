package services

const (
	KeyDraw             = "draw:%s"
	KeyDrawTickets      = "draw:%s:tickets"
	KeyDrawRandomness   = "draw:%s:randomness"
	KeyDrawBatch        = "draw:%s:batch"
	KeyDrawOpenBatch    = "draw:%s:open_batch"
	KeyAuditEntry       = "randomness:%s"
	KeyTicket           = "ticket:%s"
	KeyHashRecord       = "ticket:%s:hash"
	KeyBatch            = "merkle:batch:%s"
	KeyUnanchoredSet    = "merkle:unanchored"
	KeyPayoutClaim      = "payout:%s"
	KeyWallet           = "wallet:%s"
	KeyTransaction      = "transaction:%s"
	KeyUserTransactions = "user:%s:transactions"
)
