package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"yankey-ledger/internal/domain"
)

// MemoryMerchantsRepo supports merchant management when DB is disabled.
// NOTE: This is "platform-level" data (not per-partition).
type MemoryMerchantsRepo struct {
	mu        sync.RWMutex
	merchants map[string]domain.Merchant // merchantID -> Merchant
}

func NewMemoryMerchantsRepo() *MemoryMerchantsRepo {
	return &MemoryMerchantsRepo{
		merchants: map[string]domain.Merchant{},
	}
}

var _ MerchantsRepository = (*MemoryMerchantsRepo)(nil)

func (r *MemoryMerchantsRepo) GetMerchant(_ context.Context, merchantID string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.merchants[merchantID]
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return &m, nil
}

func (r *MemoryMerchantsRepo) GetMerchantByDomain(_ context.Context, domainName string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.merchants {
		if m.Domain == domainName {
			m := m
			return &m, nil
		}
	}
	return nil, domain.ErrMerchantNotFound
}

func (r *MemoryMerchantsRepo) ListMerchants(_ context.Context, filter MerchantFilters, page, size int) ([]*domain.Merchant, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Merchant, 0, len(r.merchants))
	for _, m := range r.merchants {
		if filter.Search != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})

	total := len(all)
	start, end := pageBounds(total, page, size)
	out := make([]*domain.Merchant, 0, end-start)
	for i := start; i < end; i++ {
		m := all[i]
		out = append(out, &m)
	}
	return out, total, nil
}

func (r *MemoryMerchantsRepo) CreateMerchant(_ context.Context, merchant *domain.Merchant) (string, error) {
	if merchant == nil || merchant.Name == "" || merchant.Domain == "" {
		return "", domain.ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.merchants {
		if m.Domain == merchant.Domain {
			return "", domain.ErrDomainTaken
		}
	}

	id := uuid.NewString()
	now := time.Now()
	m := domain.Merchant{
		MerchantID:        id,
		Name:              merchant.Name,
		Domain:            merchant.Domain,
		LoyaltyPercentage: merchant.LoyaltyPercentage,
		TelegramKey:       merchant.TelegramKey,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.merchants[id] = m
	return id, nil
}

func (r *MemoryMerchantsRepo) UpdateMerchant(_ context.Context, merchantID string, update domain.MerchantUpdate) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.merchants[merchantID]
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	if update.Name != nil {
		m.Name = *update.Name
	}
	if update.LoyaltyPercentage != nil {
		m.LoyaltyPercentage = *update.LoyaltyPercentage
	}
	if update.TelegramKey != nil {
		m.TelegramKey = *update.TelegramKey
	}
	m.UpdatedAt = time.Now()
	r.merchants[merchantID] = m
	return &m, nil
}

// pageBounds clamps a page/size window to [0,total].
func pageBounds(total, page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}
