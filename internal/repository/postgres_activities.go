package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yankey-ledger/internal/domain"
)

// PostgresActivitiesRepository 最近动态Repository实现（商户分区）
type PostgresActivitiesRepository struct {
	db *sql.DB
}

// NewPostgresActivitiesRepository 创建动态Repository（绑定到一个分区句柄）
func NewPostgresActivitiesRepository(db *sql.DB) *PostgresActivitiesRepository {
	return &PostgresActivitiesRepository{db: db}
}

var _ ActivitiesRepository = (*PostgresActivitiesRepository)(nil)

// CreateActivity 写入一条动态
func (r *PostgresActivitiesRepository) CreateActivity(ctx context.Context, title, description string) (*domain.Activity, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest)
	}

	var a domain.Activity
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO activities (title, description)
		 VALUES ($1, NULLIF($2, ''))
		 RETURNING activity_id::text, title, COALESCE(description, ''), created_at`,
		title, description,
	).Scan(&a.ActivityID, &a.Title, &a.Description, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create activity: %v", domain.ErrStore, err)
	}
	return &a, nil
}

// LatestActivities 按创建时间倒序取最近 n 条
func (r *PostgresActivitiesRepository) LatestActivities(ctx context.Context, n int) ([]*domain.Activity, error) {
	if n <= 0 {
		n = 5
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT activity_id::text, title, COALESCE(description, ''), created_at
		 FROM activities
		 ORDER BY created_at DESC
		 LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list activities: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	activities := []*domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ActivityID, &a.Title, &a.Description, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan activity: %v", domain.ErrStore, err)
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate activities: %v", domain.ErrStore, err)
	}
	return activities, nil
}
