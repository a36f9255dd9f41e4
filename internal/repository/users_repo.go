package repository

import (
	"context"

	"yankey-ledger/internal/domain"
)

// UsersRepository 用户Repository接口（商户分区）
// 实例绑定到单个商户分区的数据库句柄，不跨分区
type UsersRepository interface {
	// GetUser 根据user_id获取用户
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByPhone 按完整手机号精确查找
	GetUserByPhone(ctx context.Context, phoneNumber string) (*domain.User, error)

	// ListUsers 查询用户列表（分页）
	ListUsers(ctx context.Context, page, size int) ([]*domain.User, int, error)

	// CountUsers 分区内用户总数（仪表盘）
	CountUsers(ctx context.Context) (int, error)

	// SearchByPhoneLast4 按手机号后4位搜索（收银台查找用户）
	SearchByPhoneLast4(ctx context.Context, last4 string) ([]*domain.User, error)

	// CreateUser 创建用户
	// phone_number 在分区内幂等：已存在时返回已有记录而不是报错
	//（支持重复 check-in 不产生重复身份）
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// UpdateUser 部分更新用户资料
	UpdateUser(ctx context.Context, userID string, update domain.UserUpdate) (*domain.User, error)

	// DeleteUser 删除用户（交易历史由调用方另行清理，非事务性）
	DeleteUser(ctx context.Context, userID string) error
}
