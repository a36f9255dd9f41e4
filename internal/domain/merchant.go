package domain

import "time"

// Merchant 商户（租户）领域模型（对应控制面 merchants 表）
// 每个商户拥有独立的数据分区（users/operators/transactions）
type Merchant struct {
	// 主键
	MerchantID string `db:"merchant_id"` // UUID, PRIMARY KEY

	// 基本信息
	Name   string `db:"name"`   // VARCHAR(255), NOT NULL
	Domain string `db:"domain"` // VARCHAR(255), UNIQUE, NOT NULL（域名路由）

	// 返现比例（交易创建时快照到 transaction 上）
	LoyaltyPercentage float64 `db:"loyalty_percentage"` // NUMERIC, 0-100

	// 可选共享密钥（bot 渠道校验）
	TelegramKey string `db:"telegram_key"` // VARCHAR(255), nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// MerchantUpdate 商户设置的部分更新
// nil 表示不更新该字段
type MerchantUpdate struct {
	Name              *string
	LoyaltyPercentage *float64
	TelegramKey       *string
}
