package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
)

// UserWithBalance 用户 + 折算余额（列表/搜索的返回形态）
type UserWithBalance struct {
	*domain.User
	Balance float64 `json:"balance"`
}

// UserDetail 用户详情：余额 + 交易历史（分页）
type UserDetail struct {
	User         *domain.User          `json:"user"`
	Balance      float64               `json:"balance"`
	Transactions []*domain.Transaction `json:"transactions"`
	Pagination   Pagination            `json:"pagination"`
}

// UserService 终端用户目录接口（按租户分区）
type UserService interface {
	// ListUsers 用户列表（带余额，分页）
	ListUsers(ctx context.Context, tenantID string, page, limit int) ([]*UserWithBalance, Pagination, error)

	// GetUser 用户详情（余额 + 交易历史分页）
	GetUser(ctx context.Context, tenantID, userID string, page, limit int) (*UserDetail, error)

	// LoginOrCreate 按手机号登录；不存在则创建（幂等）
	// 返回的 bool 表示本次是否新建
	LoginOrCreate(ctx context.Context, tenantID string, user *domain.User) (*domain.User, bool, error)

	// UpdateUser 更新用户资料
	UpdateUser(ctx context.Context, tenantID, userID string, update domain.UserUpdate) (*domain.User, error)

	// DeleteUser 删除用户并清理其交易历史
	DeleteUser(ctx context.Context, tenantID, userID string) error

	// SearchByPhoneLast4 按手机尾号 4 位检索（带余额，收银台用）
	SearchByPhoneLast4(ctx context.Context, tenantID, last4 string) ([]*UserWithBalance, error)
}

type userService struct {
	partitions repository.PartitionSource
	ledger     LedgerService
	logger     *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(partitions repository.PartitionSource, ledger LedgerService, logger *zap.Logger) UserService {
	return &userService{
		partitions: partitions,
		ledger:     ledger,
		logger:     logger,
	}
}

// withBalances 为一批用户折算余额
func (s *userService) withBalances(ctx context.Context, part *repository.Partition, users []*domain.User) ([]*UserWithBalance, error) {
	result := make([]*UserWithBalance, 0, len(users))
	for _, u := range users {
		txs, err := part.Transactions.ListByUser(ctx, u.UserID)
		if err != nil {
			return nil, err
		}
		result = append(result, &UserWithBalance{
			User:    u,
			Balance: Balance(txs),
		})
	}
	return result, nil
}

func (s *userService) ListUsers(ctx context.Context, tenantID string, page, limit int) ([]*UserWithBalance, Pagination, error) {
	page, limit = NormalizePage(page, limit)
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, Pagination{}, err
	}
	users, total, err := part.Users.ListUsers(ctx, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}
	withBalances, err := s.withBalances(ctx, part, users)
	if err != nil {
		return nil, Pagination{}, err
	}
	return withBalances, NewPagination(page, limit, total), nil
}

func (s *userService) GetUser(ctx context.Context, tenantID, userID string, page, limit int) (*UserDetail, error) {
	page, limit = NormalizePage(page, limit)
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	user, err := part.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := part.Transactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	paged, total, err := part.Transactions.ListByUserPaged(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	return &UserDetail{
		User:         user,
		Balance:      Balance(txs),
		Transactions: paged,
		Pagination:   NewPagination(page, limit, total),
	}, nil
}

func (s *userService) LoginOrCreate(ctx context.Context, tenantID string, user *domain.User) (*domain.User, bool, error) {
	if user == nil || user.PhoneNumber == "" {
		return nil, false, fmt.Errorf("%w: phone number is required", domain.ErrInvalidRequest)
	}
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}

	existing, err := part.Users.GetUserByPhone(ctx, user.PhoneNumber)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}

	created, err := part.Users.CreateUser(ctx, user)
	if err != nil {
		return nil, false, err
	}

	// 最近动态：best-effort
	title := "New user joined"
	desc := fmt.Sprintf("%s joined with %s phone number", created.DisplayName, created.PhoneNumber)
	if _, err := part.Activities.CreateActivity(ctx, title, desc); err != nil {
		s.logger.Warn("failed to record signup activity",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}

	return created, true, nil
}

func (s *userService) UpdateUser(ctx context.Context, tenantID, userID string, update domain.UserUpdate) (*domain.User, error) {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return part.Users.UpdateUser(ctx, userID, update)
}

func (s *userService) DeleteUser(ctx context.Context, tenantID, userID string) error {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := part.Users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	// 历史清理 best-effort：失败只记日志，留给带外清理
	if err := s.ledger.DeleteUserHistory(ctx, tenantID, userID); err != nil {
		s.logger.Warn("failed to purge transactions for deleted user",
			zap.String("tenant_id", tenantID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *userService) SearchByPhoneLast4(ctx context.Context, tenantID, last4 string) ([]*UserWithBalance, error) {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	users, err := part.Users.SearchByPhoneLast4(ctx, last4)
	if err != nil {
		return nil, err
	}
	return s.withBalances(ctx, part, users)
}
