package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"draw-engine-backend/internal/models"
)

var centsPerUnit = decimal.NewFromInt(100)

// creditScript applies a balance credit atomically. Balances live in cents
// so the script only ever does integer arithmetic.
var creditScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local user_id = ARGV[2]

	local data = redis.call("GET", key)
	local wallet
	if not data then
		wallet = {user_id = user_id, balance_cents = 0, total_won_cents = 0}
	else
		wallet = cjson.decode(data)
	end

	wallet.balance_cents = wallet.balance_cents + amount
	wallet.total_won_cents = wallet.total_won_cents + amount

	redis.call("SET", key, cjson.encode(wallet))

	return wallet.balance_cents
`)

// RedisWallet implements the external WalletLedger contract on the same
// Redis instance as the ledger store.
type RedisWallet struct {
	client *redis.Client
}

func NewRedisWallet(store *RedisStore) *RedisWallet {
	return &RedisWallet{client: store.client}
}

func (w *RedisWallet) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	cents := amount.Round(2).Mul(centsPerUnit).IntPart()
	if cents <= 0 {
		return decimal.Zero, fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	key := fmt.Sprintf(KeyWallet, userID)
	newCents, err := creditScript.Run(ctx, w.client, []string{key}, cents, userID).Int64()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit wallet %s: %v", userID, err)
	}
	return decimal.NewFromInt(newCents).Div(centsPerUnit), nil
}

func (w *RedisWallet) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	if err := w.client.Set(ctx, fmt.Sprintf(KeyTransaction, tx.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)
	if err := w.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.Unix()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index transaction: %v", err)
	}

	return nil
}

func (w *RedisWallet) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	data, err := w.client.Get(ctx, fmt.Sprintf(KeyWallet, userID)).Result()
	if err == redis.Nil {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get wallet %s: %v", userID, err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}
	return decimal.NewFromInt(wallet.BalanceCents).Div(centsPerUnit), nil
}

func (w *RedisWallet) GetUserTransactions(ctx context.Context, userID string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ids, err := w.client.ZRevRange(ctx, fmt.Sprintf(KeyUserTransactions, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %v", err)
	}

	transactions := make([]*models.Transaction, 0, len(ids))
	for _, id := range ids {
		data, err := w.client.Get(ctx, fmt.Sprintf(KeyTransaction, id)).Result()
		if err != nil {
			continue
		}
		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}
