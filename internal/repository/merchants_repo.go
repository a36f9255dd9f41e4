package repository

import (
	"context"

	"yankey-ledger/internal/domain"
)

// MerchantsRepository 商户Repository接口（控制面数据库）
// 使用强类型领域模型，不使用map[string]any
// 设计原则：Repository层只负责数据访问，域名归一化等业务规则在service层
type MerchantsRepository interface {
	// ========== 查询（单个）==========
	// GetMerchant 根据merchant_id获取商户信息
	GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error)

	// GetMerchantByDomain 根据domain获取商户信息（用于域名路由）
	// 注意：domain有唯一索引，支持此查询；入参应当已归一化（小写、去端口）
	GetMerchantByDomain(ctx context.Context, domain string) (*domain.Merchant, error)

	// ========== 查询（列表）==========
	// ListMerchants 查询商户列表（支持分页、搜索）
	ListMerchants(ctx context.Context, filter MerchantFilters, page, size int) ([]*domain.Merchant, int, error)

	// ========== 创建 ==========
	// CreateMerchant 创建新商户
	// 注意：domain唯一性约束由数据库保证，冲突映射为 domain.ErrDomainTaken
	CreateMerchant(ctx context.Context, merchant *domain.Merchant) (string, error)

	// ========== 更新 ==========
	// UpdateMerchant 部分更新商户设置（nil 字段不更新）
	UpdateMerchant(ctx context.Context, merchantID string, update domain.MerchantUpdate) (*domain.Merchant, error)
}

// MerchantFilters 商户查询过滤器
type MerchantFilters struct {
	Search string // 可选，按name搜索（模糊匹配）
}
