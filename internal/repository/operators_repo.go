package repository

import (
	"context"

	"yankey-ledger/internal/domain"
)

// OperatorsRepository 操作员Repository接口（商户分区）
type OperatorsRepository interface {
	// GetOperator 根据operator_id获取操作员
	GetOperator(ctx context.Context, operatorID string) (*domain.Operator, error)

	// GetOperatorByUsername 根据username获取操作员（登录路径）
	GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error)

	// ListOperators 查询操作员列表（分页）
	ListOperators(ctx context.Context, page, size int) ([]*domain.Operator, int, error)

	// CreateOperator 创建操作员
	// 注意：username唯一性约束由数据库保证，冲突映射为 domain.ErrUsernameTaken
	CreateOperator(ctx context.Context, operator *domain.Operator) (*domain.Operator, error)

	// UpdateOperator 部分更新操作员
	UpdateOperator(ctx context.Context, operatorID string, update domain.OperatorUpdate) (*domain.Operator, error)

	// DeleteOperator 删除操作员
	DeleteOperator(ctx context.Context, operatorID string) error
}
