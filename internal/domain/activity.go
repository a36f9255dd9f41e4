package domain

import "time"

// Activity 最近动态（商户分区 activities 表）
// 仪表盘展示最近 N 条；登录和交易操作都会写入一条
type Activity struct {
	ActivityID  string    `db:"activity_id"` // UUID, PRIMARY KEY
	Title       string    `db:"title"`
	Description string    `db:"description"` // nullable
	CreatedAt   time.Time `db:"created_at"`
}
