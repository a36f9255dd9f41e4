package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
)

// LedgerService 账本引擎接口
// 余额不落库，完全由交易历史折算；check-out 的授权和落库在
// 同一把 (tenant,user) 锁内完成，并发 check-out 不会联合透支
type LedgerService interface {
	// BalanceOf 折算用户当前余额
	BalanceOf(ctx context.Context, tenantID, userID string) (float64, error)

	// RecordTransaction 校验并提交一笔交易
	RecordTransaction(ctx context.Context, req RecordTransactionRequest) (*RecordTransactionResponse, error)

	// UserHistory 用户交易历史（分页）
	UserHistory(ctx context.Context, tenantID, userID string, page, limit int) ([]*domain.Transaction, Pagination, error)

	// OperatorHistory 操作员经手的交易历史（分页）
	OperatorHistory(ctx context.Context, tenantID, operatorID string, page, limit int) ([]*domain.Transaction, Pagination, error)

	// DeleteUserHistory 批量删除用户交易（用户删除后调用；best-effort，
	// 与用户删除不在一个事务里，失败只记日志，孤儿交易靠带外清理）
	DeleteUserHistory(ctx context.Context, tenantID, userID string) error
}

// RecordTransactionRequest 记账请求
type RecordTransactionRequest struct {
	TenantID   string
	OperatorID string
	UserID     string

	Type           string  // check-in / check-out
	Amount         float64 // check-in 消费总额
	CheckOutAmount float64 // 仅 check-out，必须 > 0
}

// RecordTransactionResponse 记账响应
// NewBalance 是提交后重新折算的结果（与读路径一致），不是增量算术
type RecordTransactionResponse struct {
	Transaction *domain.Transaction
	Cashback    float64
	NewBalance  float64
}

// ledgerService 实现
type ledgerService struct {
	merchants  repository.MerchantsRepository
	partitions repository.PartitionSource
	notifier   Notifier
	logger     *zap.Logger

	// (tenantID, userID) 粒度的串行化锁：授权+提交必须是一个原子单元。
	// 锁表只增不减（用户删除也不回收条目）：条目是一个裸 mutex，
	// 用户基数小且长驻，简单性优先于回收，与分区句柄缓存同一取舍。
	// 回收需要区分"无人持有"和"有人在等"，不值得为几十字节引入该复杂度。
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewLedgerService 创建 LedgerService 实例
func NewLedgerService(
	merchants repository.MerchantsRepository,
	partitions repository.PartitionSource,
	notifier Notifier,
	logger *zap.Logger,
) LedgerService {
	return &ledgerService{
		merchants:  merchants,
		partitions: partitions,
		notifier:   notifier,
		logger:     logger,
		locks:      map[string]*sync.Mutex{},
	}
}

// Balance 纯折算函数：Σ check-in 的 amount×pct/100 − Σ check-out 的 checkOutAmount
// 加法可交换可结合，历史顺序不影响结果，重复折算幂等
func Balance(txs []*domain.Transaction) float64 {
	balance := 0.0
	for _, t := range txs {
		switch t.Type {
		case domain.TxCheckIn:
			balance += t.Amount * t.LoyaltyPercentage / 100.0
		case domain.TxCheckOut:
			balance -= t.CheckOutAmount
		}
	}
	return balance
}

func (s *ledgerService) userLock(tenantID, userID string) *sync.Mutex {
	key := tenantID + "/" + userID
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	return mu
}

func (s *ledgerService) BalanceOf(ctx context.Context, tenantID, userID string) (float64, error) {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if _, err := part.Users.GetUser(ctx, userID); err != nil {
		return 0, err
	}
	txs, err := part.Transactions.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Balance(txs), nil
}

func (s *ledgerService) RecordTransaction(ctx context.Context, req RecordTransactionRequest) (*RecordTransactionResponse, error) {
	// 1. 形状校验
	if req.Type != domain.TxCheckIn && req.Type != domain.TxCheckOut {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidRequest, req.Type)
	}
	if req.Type == domain.TxCheckIn && req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive for check-in", domain.ErrInvalidRequest)
	}
	if req.Type == domain.TxCheckOut && req.CheckOutAmount <= 0 {
		return nil, fmt.Errorf("%w: checkout amount is required for check-out operation", domain.ErrInvalidRequest)
	}

	// 2. 解析上下文：商户（取当前返现比例）、用户、操作员
	merchant, err := s.merchants.GetMerchant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	part, err := s.partitions.Partition(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	user, err := part.Users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	operator, err := part.Operators.GetOperator(ctx, req.OperatorID)
	if err != nil {
		return nil, err
	}

	// 3-5. 余额折算 + 授权 + 提交：同一把用户锁内完成
	// 没有这把锁，两个并发 check-out 会读到同一个提交前余额，
	// 各自通过校验后联合透支（check-then-act 竞态）
	mu := s.userLock(req.TenantID, req.UserID)
	mu.Lock()
	defer mu.Unlock()

	txs, err := part.Transactions.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	balance := Balance(txs)

	if req.Type == domain.TxCheckOut && req.CheckOutAmount > balance {
		return nil, fmt.Errorf("%w: requested %.2f, available %.2f",
			domain.ErrInsufficientBalance, req.CheckOutAmount, balance)
	}

	// check-out 不消费 amount（折算只看 checkOutAmount），清零而不是透传任意值
	amount := req.Amount
	if req.Type == domain.TxCheckOut {
		amount = 0
	}

	created, err := part.Transactions.InsertTransaction(ctx, &domain.Transaction{
		Type:              req.Type,
		Amount:            amount,
		CheckOutAmount:    req.CheckOutAmount,
		LoyaltyPercentage: merchant.LoyaltyPercentage, // 创建时快照
		UserID:            req.UserID,
		OperatorID:        req.OperatorID,
	})
	if err != nil {
		return nil, err
	}

	// 6. 提交后重新折算（与读路径一致）
	txs, err = part.Transactions.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	newBalance := Balance(txs)

	// 最近动态 + 通知：best-effort，不影响已提交的交易
	// check-out 的动态金额取 checkOutAmount
	effective := created.Amount
	if created.Type == domain.TxCheckOut {
		effective = created.CheckOutAmount
	}
	title := fmt.Sprintf("Transaction operated by %s", operator.DisplayName)
	desc := fmt.Sprintf("Transaction operated to %s user with %s type and %.2f amount",
		user.DisplayName, created.Type, effective)
	if _, err := part.Activities.CreateActivity(ctx, title, desc); err != nil {
		s.logger.Warn("failed to record transaction activity",
			zap.String("tenant_id", req.TenantID),
			zap.Error(err),
		)
	}
	s.notifier.Notify(ctx, title, desc)

	return &RecordTransactionResponse{
		Transaction: created,
		Cashback:    created.Cashback(),
		NewBalance:  newBalance,
	}, nil
}

func (s *ledgerService) UserHistory(ctx context.Context, tenantID, userID string, page, limit int) ([]*domain.Transaction, Pagination, error) {
	page, limit = NormalizePage(page, limit)
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, Pagination{}, err
	}
	txs, total, err := part.Transactions.ListByUserPaged(ctx, userID, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}
	return txs, NewPagination(page, limit, total), nil
}

func (s *ledgerService) OperatorHistory(ctx context.Context, tenantID, operatorID string, page, limit int) ([]*domain.Transaction, Pagination, error) {
	page, limit = NormalizePage(page, limit)
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, Pagination{}, err
	}
	txs, total, err := part.Transactions.ListByOperatorPaged(ctx, operatorID, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}
	return txs, NewPagination(page, limit, total), nil
}

func (s *ledgerService) DeleteUserHistory(ctx context.Context, tenantID, userID string) error {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return err
	}

	mu := s.userLock(tenantID, userID)
	mu.Lock()
	defer mu.Unlock()

	return part.Transactions.DeleteByUser(ctx, userID)
}
