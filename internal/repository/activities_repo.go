package repository

import (
	"context"

	"yankey-ledger/internal/domain"
)

// ActivitiesRepository 最近动态Repository接口（商户分区）
type ActivitiesRepository interface {
	// CreateActivity 写入一条动态
	CreateActivity(ctx context.Context, title, description string) (*domain.Activity, error)

	// LatestActivities 按创建时间倒序取最近 n 条
	LatestActivities(ctx context.Context, n int) ([]*domain.Activity, error)
}
