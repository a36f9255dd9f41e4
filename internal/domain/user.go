package domain

import "time"

// User 用户领域模型（商户分区 users 表）
// 用户在首次认证时创建；phone_number 在分区内幂等（重复创建返回已有记录）
type User struct {
	UserID      string `db:"user_id"` // UUID, PRIMARY KEY
	DisplayName string `db:"display_name"`
	PhoneNumber string `db:"phone_number"` // VARCHAR(50), UNIQUE within partition

	// 可选资料字段
	Birthday   string `db:"birthday"`    // VARCHAR(20), nullable (ISO date)
	TelegramID string `db:"telegram_id"` // VARCHAR(64), nullable

	CreatedAt time.Time `db:"created_at"`
}

// UserUpdate 用户资料的部分更新
type UserUpdate struct {
	DisplayName *string
	PhoneNumber *string
	Birthday    *string
}
