package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
)

// TenantRegistry 商户分区句柄注册表
//
// 把 tenantID 映射到该商户分区的 *sql.DB：首次访问时用 DSN 模板替换出分区
// 地址、打开句柄、执行分区建表，然后缓存到进程结束。句柄从不淘汰/关闭，
// 商户数量小且长驻，简单性优先于资源回收。
//
// 插入路径用互斥锁做 compare-and-insert：同一 tenantID 的并发首次访问
// 最多保留一个句柄（load-then-store 会产生重复句柄）。
type TenantRegistry struct {
	template string
	logger   *zap.Logger

	mu      sync.RWMutex
	handles map[string]*sql.DB

	// 测试注入点；默认 sql.Open("postgres", dsn)
	open func(dsn string) (*sql.DB, error)
}

// NewTenantRegistry 创建注册表
// template 必须包含一个 "{}" 替换点（替换为 merchant_id）
func NewTenantRegistry(template string, logger *zap.Logger) *TenantRegistry {
	return &TenantRegistry{
		template: template,
		logger:   logger,
		handles:  map[string]*sql.DB{},
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("postgres", dsn)
		},
	}
}

var _ PartitionSource = (*TenantRegistry)(nil)

// DSNFor 计算商户分区的 DSN（模板替换）
func (r *TenantRegistry) DSNFor(tenantID string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("%w: tenant id is required", domain.ErrRegistryConfig)
	}
	if r.template == "" {
		return "", fmt.Errorf("%w: partition DSN template is not set", domain.ErrRegistryConfig)
	}
	if !strings.Contains(r.template, "{}") {
		return "", fmt.Errorf("%w: partition DSN template has no {} placeholder", domain.ErrRegistryConfig)
	}
	return strings.Replace(r.template, "{}", tenantID, 1), nil
}

// Handle 返回商户分区句柄，必要时打开并缓存
func (r *TenantRegistry) Handle(ctx context.Context, tenantID string) (*sql.DB, error) {
	// 快路径：已缓存
	r.mu.RLock()
	db, ok := r.handles[tenantID]
	r.mu.RUnlock()
	if ok {
		return db, nil
	}

	dsn, err := r.DSNFor(tenantID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// double-check：锁内再查一次，输掉竞争的调用方复用已有句柄
	if db, ok := r.handles[tenantID]; ok {
		return db, nil
	}

	db, err = r.open(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open partition for tenant %s: %v", domain.ErrStore, tenantID, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	// 首次打开时建表（幂等），分区数据库按需初始化
	if err := EnsureSchema(ctx, db, PartitionSchema); err != nil {
		_ = db.Close()
		return nil, err
	}

	r.handles[tenantID] = db
	r.logger.Info("partition handle opened",
		zap.String("tenant_id", tenantID),
	)
	return db, nil
}

// Partition 实现 PartitionSource：返回绑定到该商户句柄的仓库集合
func (r *TenantRegistry) Partition(ctx context.Context, tenantID string) (*Partition, error) {
	db, err := r.Handle(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &Partition{
		Users:        NewPostgresUsersRepository(db),
		Operators:    NewPostgresOperatorsRepository(db),
		Transactions: NewPostgresTransactionsRepository(db),
		Activities:   NewPostgresActivitiesRepository(db),
	}, nil
}

// Close 关闭全部缓存句柄（仅进程退出时调用）
func (r *TenantRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, db := range r.handles {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close partition handle",
				zap.String("tenant_id", id),
				zap.Error(err),
			)
		}
	}
	r.handles = map[string]*sql.DB{}
}
