package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yankey-ledger/internal/domain"
)

// AdminSchema 控制面数据库结构（merchants 表）
const AdminSchema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS merchants (
	merchant_id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name               VARCHAR(255) NOT NULL,
	domain             VARCHAR(255) NOT NULL UNIQUE,
	loyalty_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
	telegram_key       VARCHAR(255),
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PartitionSchema 商户分区数据库结构
// TenantRegistry 在首次打开分区句柄时执行（对应原注册 collection 的语义）
const PartitionSchema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS users (
	user_id      UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	display_name VARCHAR(255) NOT NULL,
	phone_number VARCHAR(50) NOT NULL UNIQUE,
	birthday     VARCHAR(20),
	telegram_id  VARCHAR(64),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS operators (
	operator_id  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	username     VARCHAR(255) NOT NULL UNIQUE,
	password     VARCHAR(255) NOT NULL,
	display_name VARCHAR(255) NOT NULL,
	role         VARCHAR(50) NOT NULL DEFAULT 'operator',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id     UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	type               VARCHAR(20) NOT NULL,
	amount             NUMERIC(14,2) NOT NULL,
	check_out_amount   NUMERIC(14,2) NOT NULL DEFAULT 0,
	loyalty_percentage NUMERIC(5,2) NOT NULL,
	user_id            UUID NOT NULL,
	operator_id        UUID NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS transactions_user_id_idx ON transactions (user_id);
CREATE INDEX IF NOT EXISTS transactions_operator_id_idx ON transactions (operator_id);

CREATE TABLE IF NOT EXISTS activities (
	activity_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title       VARCHAR(255) NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS activities_created_at_idx ON activities (created_at DESC);
`

// EnsureSchema 执行建表语句（幂等）
func EnsureSchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: failed to ensure schema: %v", domain.ErrStore, err)
	}
	return nil
}
