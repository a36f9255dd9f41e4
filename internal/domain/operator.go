package domain

import "time"

// 操作员角色
const (
	RoleOwner    = "owner"    // 商户后台管理员（onboarding 时创建的第一个操作员）
	RoleOperator = "operator" // 收银台操作员
)

// Operator 操作员领域模型（商户分区 operators 表）
type Operator struct {
	OperatorID  string `db:"operator_id"` // UUID, PRIMARY KEY
	Username    string `db:"username"`    // VARCHAR(255), UNIQUE within partition
	Password    string `db:"password"`    // 密码哈希（哈希算法由上游认证层负责）
	DisplayName string `db:"display_name"`
	Role        string `db:"role"` // owner / operator

	CreatedAt time.Time `db:"created_at"`
}

// OperatorUpdate 操作员的部分更新
type OperatorUpdate struct {
	DisplayName *string
	Password    *string
}
