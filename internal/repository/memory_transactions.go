package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"yankey-ledger/internal/domain"
)

// MemoryTransactionsRepo in-memory TransactionsRepository（单个商户分区）
type MemoryTransactionsRepo struct {
	mu  sync.RWMutex
	txs []domain.Transaction // append-only
}

func NewMemoryTransactionsRepo() *MemoryTransactionsRepo {
	return &MemoryTransactionsRepo{}
}

var _ TransactionsRepository = (*MemoryTransactionsRepo)(nil)

func (r *MemoryTransactionsRepo) InsertTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if tx == nil || tx.UserID == "" || tx.OperatorID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if tx.Type != domain.TxCheckIn && tx.Type != domain.TxCheckOut {
		return nil, domain.ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := domain.Transaction{
		TransactionID:     uuid.NewString(),
		Type:              tx.Type,
		Amount:            tx.Amount,
		CheckOutAmount:    tx.CheckOutAmount,
		LoyaltyPercentage: tx.LoyaltyPercentage,
		UserID:            tx.UserID,
		OperatorID:        tx.OperatorID,
		CreatedAt:         time.Now(),
	}
	r.txs = append(r.txs, t)
	return &t, nil
}

func (r *MemoryTransactionsRepo) ListByUser(_ context.Context, userID string) ([]*domain.Transaction, error) {
	if userID == "" {
		return nil, domain.ErrInvalidRequest
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Transaction{}
	for i := range r.txs {
		if r.txs[i].UserID == userID {
			t := r.txs[i]
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *MemoryTransactionsRepo) ListByUserPaged(_ context.Context, userID string, page, size int) ([]*domain.Transaction, int, error) {
	return r.listPaged(func(t *domain.Transaction) bool { return t.UserID == userID }, page, size)
}

func (r *MemoryTransactionsRepo) ListByOperatorPaged(_ context.Context, operatorID string, page, size int) ([]*domain.Transaction, int, error) {
	return r.listPaged(func(t *domain.Transaction) bool { return t.OperatorID == operatorID }, page, size)
}

func (r *MemoryTransactionsRepo) listPaged(match func(*domain.Transaction) bool, page, size int) ([]*domain.Transaction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []domain.Transaction{}
	for i := range r.txs {
		if match(&r.txs[i]) {
			all = append(all, r.txs[i])
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start, end := pageBounds(total, page, size)
	out := make([]*domain.Transaction, 0, end-start)
	for i := start; i < end; i++ {
		t := all[i]
		out = append(out, &t)
	}
	return out, total, nil
}

func (r *MemoryTransactionsRepo) Totals(_ context.Context) (*domain.LedgerTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := domain.LedgerTotals{TransactionCount: len(r.txs)}
	for i := range r.txs {
		t := &r.txs[i]
		switch t.Type {
		case domain.TxCheckIn:
			totals.CheckInVolume += t.Amount
			totals.CashbackAccrued += t.Amount * t.LoyaltyPercentage / 100.0
		case domain.TxCheckOut:
			totals.CheckOutVolume += t.CheckOutAmount
		}
	}
	return &totals, nil
}

func (r *MemoryTransactionsRepo) DeleteByUser(_ context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.txs[:0]
	for i := range r.txs {
		if r.txs[i].UserID != userID {
			kept = append(kept, r.txs[i])
		}
	}
	r.txs = kept
	return nil
}
