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

// MemoryUsersRepo in-memory UsersRepository（单个商户分区）
type MemoryUsersRepo struct {
	mu    sync.RWMutex
	users map[string]domain.User // userID -> User
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{users: map[string]domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepo)(nil)

func (r *MemoryUsersRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUsersRepo) GetUserByPhone(_ context.Context, phoneNumber string) (*domain.User, error) {
	if phoneNumber == "" {
		return nil, domain.ErrInvalidRequest
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.PhoneNumber == phoneNumber {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *MemoryUsersRepo) ListUsers(_ context.Context, page, size int) ([]*domain.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start, end := pageBounds(total, page, size)
	out := make([]*domain.User, 0, end-start)
	for i := start; i < end; i++ {
		u := all[i]
		out = append(out, &u)
	}
	return out, total, nil
}

func (r *MemoryUsersRepo) CountUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *MemoryUsersRepo) SearchByPhoneLast4(_ context.Context, last4 string) ([]*domain.User, error) {
	if len(last4) != 4 {
		return nil, domain.ErrInvalidRequest
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.User{}
	for _, u := range r.users {
		if strings.HasSuffix(u.PhoneNumber, last4) {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateUser phone_number 幂等：已存在时返回已有记录
func (r *MemoryUsersRepo) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	if user == nil || user.DisplayName == "" || user.PhoneNumber == "" {
		return nil, domain.ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.PhoneNumber == user.PhoneNumber {
			u := u
			return &u, nil
		}
	}

	u := domain.User{
		UserID:      uuid.NewString(),
		DisplayName: user.DisplayName,
		PhoneNumber: user.PhoneNumber,
		Birthday:    user.Birthday,
		TelegramID:  user.TelegramID,
		CreatedAt:   time.Now(),
	}
	r.users[u.UserID] = u
	return &u, nil
}

func (r *MemoryUsersRepo) UpdateUser(_ context.Context, userID string, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.PhoneNumber != nil {
		u.PhoneNumber = *update.PhoneNumber
	}
	if update.Birthday != nil {
		u.Birthday = *update.Birthday
	}
	r.users[userID] = u
	return &u, nil
}

func (r *MemoryUsersRepo) DeleteUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, userID)
	return nil
}
