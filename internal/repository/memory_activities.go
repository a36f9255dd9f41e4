package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"yankey-ledger/internal/domain"
)

// MemoryActivitiesRepo in-memory ActivitiesRepository（单个商户分区）
type MemoryActivitiesRepo struct {
	mu         sync.RWMutex
	activities []domain.Activity // 时间正序 append
}

func NewMemoryActivitiesRepo() *MemoryActivitiesRepo {
	return &MemoryActivitiesRepo{}
}

var _ ActivitiesRepository = (*MemoryActivitiesRepo)(nil)

func (r *MemoryActivitiesRepo) CreateActivity(_ context.Context, title, description string) (*domain.Activity, error) {
	if title == "" {
		return nil, domain.ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a := domain.Activity{
		ActivityID:  uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
	}
	r.activities = append(r.activities, a)
	return &a, nil
}

func (r *MemoryActivitiesRepo) LatestActivities(_ context.Context, n int) ([]*domain.Activity, error) {
	if n <= 0 {
		n = 5
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Activity{}
	for i := len(r.activities) - 1; i >= 0 && len(out) < n; i-- {
		a := r.activities[i]
		out = append(out, &a)
	}
	return out, nil
}
