package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
)

// OperatorService 操作员目录接口（按租户分区）
// 密码以哈希形态进出（客户端先哈希再传输，同认证层约定）
type OperatorService interface {
	// Login 用户名+密码哈希登录
	Login(ctx context.Context, tenantID, username, passwordHash string) (*domain.Operator, error)

	// ListOperators 操作员列表（分页）
	ListOperators(ctx context.Context, tenantID string, page, limit int) ([]*domain.Operator, Pagination, error)

	// GetOperator 操作员详情
	GetOperator(ctx context.Context, tenantID, operatorID string) (*domain.Operator, error)

	// CreateOperator 创建操作员（username 分区内唯一）
	CreateOperator(ctx context.Context, tenantID string, operator *domain.Operator) (*domain.Operator, error)

	// UpdateOperator 更新操作员
	UpdateOperator(ctx context.Context, tenantID, operatorID string, update domain.OperatorUpdate) (*domain.Operator, error)

	// DeleteOperator 删除操作员（交易记录保留，operator_id 成为悬挂引用）
	DeleteOperator(ctx context.Context, tenantID, operatorID string) error
}

type operatorService struct {
	partitions repository.PartitionSource
	logger     *zap.Logger
}

// NewOperatorService 创建 OperatorService 实例
func NewOperatorService(partitions repository.PartitionSource, logger *zap.Logger) OperatorService {
	return &operatorService{
		partitions: partitions,
		logger:     logger,
	}
}

func (s *operatorService) Login(ctx context.Context, tenantID, username, passwordHash string) (*domain.Operator, error) {
	if username == "" || passwordHash == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidRequest)
	}
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	op, err := part.Operators.GetOperatorByUsername(ctx, username)
	if err != nil {
		if domain.IsNotFound(err) {
			// 不区分"用户名不存在"和"密码错误"
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(op.Password), []byte(passwordHash)) != 1 {
		s.logger.Warn("operator login failed",
			zap.String("tenant_id", tenantID),
			zap.String("username", username),
		)
		return nil, domain.ErrInvalidCredentials
	}
	return op, nil
}

func (s *operatorService) ListOperators(ctx context.Context, tenantID string, page, limit int) ([]*domain.Operator, Pagination, error) {
	page, limit = NormalizePage(page, limit)
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, Pagination{}, err
	}
	ops, total, err := part.Operators.ListOperators(ctx, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}
	return ops, NewPagination(page, limit, total), nil
}

func (s *operatorService) GetOperator(ctx context.Context, tenantID, operatorID string) (*domain.Operator, error) {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return part.Operators.GetOperator(ctx, operatorID)
}

func (s *operatorService) CreateOperator(ctx context.Context, tenantID string, operator *domain.Operator) (*domain.Operator, error) {
	if operator == nil || operator.Username == "" || operator.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidRequest)
	}
	if operator.Role == "" {
		operator.Role = domain.RoleOperator
	}
	if operator.Role != domain.RoleOwner && operator.Role != domain.RoleOperator {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRequest, operator.Role)
	}
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return part.Operators.CreateOperator(ctx, operator)
}

func (s *operatorService) UpdateOperator(ctx context.Context, tenantID, operatorID string, update domain.OperatorUpdate) (*domain.Operator, error) {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return part.Operators.UpdateOperator(ctx, operatorID, update)
}

func (s *operatorService) DeleteOperator(ctx context.Context, tenantID, operatorID string) error {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return err
	}
	return part.Operators.DeleteOperator(ctx, operatorID)
}
