package repository

import (
	"context"

	"yankey-ledger/internal/domain"
)

// TransactionsRepository 交易Repository接口（商户分区，append-only）
// 交易只插入、不更新；仅在用户删除时批量清理
type TransactionsRepository interface {
	// InsertTransaction 追加一条交易记录
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)

	// ListByUser 获取用户全部交易（余额折算用，不分页）
	ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error)

	// ListByUserPaged 按用户分页查询交易历史
	ListByUserPaged(ctx context.Context, userID string, page, size int) ([]*domain.Transaction, int, error)

	// ListByOperatorPaged 按操作员分页查询交易历史
	ListByOperatorPaged(ctx context.Context, operatorID string, page, size int) ([]*domain.Transaction, int, error)

	// DeleteByUser 批量删除用户的全部交易（用户删除时调用，best-effort）
	DeleteByUser(ctx context.Context, userID string) error

	// Totals 分区内全量交易聚合（仪表盘）
	Totals(ctx context.Context) (*domain.LedgerTotals, error)
}
