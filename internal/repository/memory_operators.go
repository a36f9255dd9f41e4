package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"yankey-ledger/internal/domain"
)

// MemoryOperatorsRepo in-memory OperatorsRepository（单个商户分区）
type MemoryOperatorsRepo struct {
	mu        sync.RWMutex
	operators map[string]domain.Operator // operatorID -> Operator
}

func NewMemoryOperatorsRepo() *MemoryOperatorsRepo {
	return &MemoryOperatorsRepo{operators: map[string]domain.Operator{}}
}

var _ OperatorsRepository = (*MemoryOperatorsRepo)(nil)

func (r *MemoryOperatorsRepo) GetOperator(_ context.Context, operatorID string) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.operators[operatorID]
	if !ok {
		return nil, domain.ErrOperatorNotFound
	}
	return &o, nil
}

func (r *MemoryOperatorsRepo) GetOperatorByUsername(_ context.Context, username string) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.operators {
		if o.Username == username {
			o := o
			return &o, nil
		}
	}
	return nil, domain.ErrOperatorNotFound
}

func (r *MemoryOperatorsRepo) ListOperators(_ context.Context, page, size int) ([]*domain.Operator, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Operator, 0, len(r.operators))
	for _, o := range r.operators {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	start, end := pageBounds(total, page, size)
	out := make([]*domain.Operator, 0, end-start)
	for i := start; i < end; i++ {
		o := all[i]
		out = append(out, &o)
	}
	return out, total, nil
}

func (r *MemoryOperatorsRepo) CreateOperator(_ context.Context, operator *domain.Operator) (*domain.Operator, error) {
	if operator == nil || operator.Username == "" || operator.Password == "" {
		return nil, domain.ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.operators {
		if o.Username == operator.Username {
			return nil, domain.ErrUsernameTaken
		}
	}

	role := operator.Role
	if role == "" {
		role = domain.RoleOperator
	}
	o := domain.Operator{
		OperatorID:  uuid.NewString(),
		Username:    operator.Username,
		Password:    operator.Password,
		DisplayName: operator.DisplayName,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	r.operators[o.OperatorID] = o
	return &o, nil
}

func (r *MemoryOperatorsRepo) UpdateOperator(_ context.Context, operatorID string, update domain.OperatorUpdate) (*domain.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.operators[operatorID]
	if !ok {
		return nil, domain.ErrOperatorNotFound
	}
	if update.DisplayName != nil {
		o.DisplayName = *update.DisplayName
	}
	if update.Password != nil {
		o.Password = *update.Password
	}
	r.operators[operatorID] = o
	return &o, nil
}

func (r *MemoryOperatorsRepo) DeleteOperator(_ context.Context, operatorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.operators[operatorID]; !ok {
		return domain.ErrOperatorNotFound
	}
	delete(r.operators, operatorID)
	return nil
}
