package service

import (
	"context"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
)

// Dashboard 商户后台首页汇总
type Dashboard struct {
	UserCount        int                 `json:"userCount"`
	Totals           domain.LedgerTotals `json:"totals"`
	RecentActivities []*domain.Activity  `json:"recentActivities"`
}

// DashboardService 商户后台汇总接口
type DashboardService interface {
	// Overview 仪表盘汇总：用户数 + 交易聚合 + 最近动态
	Overview(ctx context.Context, tenantID string) (*Dashboard, error)

	// RecentActivities 最近 n 条动态（n<=0 取默认 5 条）
	RecentActivities(ctx context.Context, tenantID string, n int) ([]*domain.Activity, error)
}

type dashboardService struct {
	partitions repository.PartitionSource
	logger     *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(partitions repository.PartitionSource, logger *zap.Logger) DashboardService {
	return &dashboardService{
		partitions: partitions,
		logger:     logger,
	}
}

func (s *dashboardService) Overview(ctx context.Context, tenantID string) (*Dashboard, error) {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	userCount, err := part.Users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := part.Transactions.Totals(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := part.Activities.LatestActivities(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		UserCount:        userCount,
		Totals:           *totals,
		RecentActivities: activities,
	}, nil
}

func (s *dashboardService) RecentActivities(ctx context.Context, tenantID string, n int) ([]*domain.Activity, error) {
	part, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return part.Activities.LatestActivities(ctx, n)
}
