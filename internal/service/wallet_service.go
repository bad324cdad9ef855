package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

const balanceCacheTTL = 24 * time.Hour

// WalletService serves per-account balances. The balance is never stored as
// ground truth: it is the replay sum of the account's transactions, with a
// redis cache in front that every posting invalidates.
type WalletService struct {
	ledgerRepo repository.LedgerRepository
	redis      *redis.Client
}

func NewWalletService(ledgerRepo repository.LedgerRepository, redisClient *redis.Client) *WalletService {
	return &WalletService{
		ledgerRepo: ledgerRepo,
		redis:      redisClient,
	}
}

func balanceKey(accountID uuid.UUID) string {
	return fmt.Sprintf("wallet:%s", accountID)
}

// BalanceOf returns the account balance. With live=false a cached value may
// be served, stale at most until the next posting; live=true always replays
// the ledger and refreshes the cache.
func (s *WalletService) BalanceOf(ctx context.Context, accountID uuid.UUID, live bool) (*domain.WalletBalance, error) {
	if !live && s.redis != nil {
		cached, err := s.redis.Get(ctx, balanceKey(accountID)).Result()
		if err == nil {
			if balance, perr := decimal.NewFromString(cached); perr == nil {
				return &domain.WalletBalance{AccountID: accountID, Balance: balance, Live: false}, nil
			}
		}
	}

	balance, err := s.ledgerRepo.SumTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		// best effort; a failed cache write only costs the next read a replay
		s.redis.Set(ctx, balanceKey(accountID), balance.String(), balanceCacheTTL)
	}

	return &domain.WalletBalance{AccountID: accountID, Balance: balance, Live: true}, nil
}

// Invalidate drops the cached balance after a posting touched the account.
func (s *WalletService) Invalidate(ctx context.Context, accountIDs ...uuid.UUID) {
	if s.redis == nil {
		return
	}
	for _, id := range accountIDs {
		s.redis.Del(ctx, balanceKey(id))
	}
}

// Transactions returns the account's full ledger history, oldest first.
func (s *WalletService) Transactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	return s.ledgerRepo.ListTransactions(ctx, accountID)
}

// Verify replays the ledger and compares it against the cached balance.
// A mismatch is an invariant violation: it is reported, never corrected.
func (s *WalletService) Verify(ctx context.Context, accountID uuid.UUID) error {
	if s.redis == nil {
		return nil
	}

	cached, err := s.redis.Get(ctx, balanceKey(accountID)).Result()
	if err != nil {
		// nothing cached, nothing to contradict
		return nil
	}

	cachedBalance, err := decimal.NewFromString(cached)
	if err != nil {
		return apperr.WrapInvariantViolation("cached wallet balance is not a decimal")
	}

	replayed, err := s.ledgerRepo.SumTransactions(ctx, accountID)
	if err != nil {
		return err
	}

	if !replayed.Equal(cachedBalance) {
		return apperr.WrapInvariantViolation(fmt.Sprintf(
			"wallet %s cache %s diverges from replay %s", accountID, cachedBalance, replayed,
		))
	}

	return nil
}
