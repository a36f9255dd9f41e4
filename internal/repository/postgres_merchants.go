package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"yankey-ledger/internal/domain"
)

// PostgresMerchantsRepository 商户Repository实现（控制面数据库）
type PostgresMerchantsRepository struct {
	db *sql.DB
}

// NewPostgresMerchantsRepository 创建商户Repository
func NewPostgresMerchantsRepository(db *sql.DB) *PostgresMerchantsRepository {
	return &PostgresMerchantsRepository{db: db}
}

// 确保实现了接口
var _ MerchantsRepository = (*PostgresMerchantsRepository)(nil)

const merchantColumns = `
	merchant_id::text,
	name,
	domain,
	loyalty_percentage,
	COALESCE(telegram_key, '') as telegram_key,
	created_at,
	updated_at
`

func scanMerchant(row *sql.Row) (*domain.Merchant, error) {
	var m domain.Merchant
	err := row.Scan(
		&m.MerchantID,
		&m.Name,
		&m.Domain,
		&m.LoyaltyPercentage,
		&m.TelegramKey,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMerchant 根据merchant_id获取商户信息
func (r *PostgresMerchantsRepository) GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	if merchantID == "" {
		return nil, fmt.Errorf("%w: merchant_id is required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`SELECT %s FROM merchants WHERE merchant_id = $1::uuid`, merchantColumns)

	m, err := scanMerchant(r.db.QueryRowContext(ctx, query, merchantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMerchantNotFound
		}
		return nil, fmt.Errorf("%w: failed to get merchant: %v", domain.ErrStore, err)
	}
	return m, nil
}

// GetMerchantByDomain 根据domain获取商户信息（用于域名路由）
func (r *PostgresMerchantsRepository) GetMerchantByDomain(ctx context.Context, domainName string) (*domain.Merchant, error) {
	if domainName == "" {
		return nil, fmt.Errorf("%w: domain is required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`SELECT %s FROM merchants WHERE domain = $1`, merchantColumns)

	m, err := scanMerchant(r.db.QueryRowContext(ctx, query, domainName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMerchantNotFound
		}
		return nil, fmt.Errorf("%w: failed to get merchant by domain: %v", domain.ErrStore, err)
	}
	return m, nil
}

// ListMerchants 查询商户列表（支持分页、搜索）
func (r *PostgresMerchantsRepository) ListMerchants(ctx context.Context, filter MerchantFilters, page, size int) ([]*domain.Merchant, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	// 构建WHERE条件
	where := []string{}
	args := []any{}
	argIdx := 1

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	// 查询总数
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM merchants %s`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to count merchants: %v", domain.ErrStore, err)
	}

	// 查询列表（带分页）
	query := fmt.Sprintf(`
		SELECT %s
		FROM merchants
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, merchantColumns, whereClause, argIdx, argIdx+1)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to list merchants: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	merchants := []*domain.Merchant{}
	for rows.Next() {
		var m domain.Merchant
		err := rows.Scan(
			&m.MerchantID,
			&m.Name,
			&m.Domain,
			&m.LoyaltyPercentage,
			&m.TelegramKey,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: failed to scan merchant: %v", domain.ErrStore, err)
		}
		merchants = append(merchants, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to iterate merchants: %v", domain.ErrStore, err)
	}

	return merchants, total, nil
}

// CreateMerchant 创建新商户
func (r *PostgresMerchantsRepository) CreateMerchant(ctx context.Context, merchant *domain.Merchant) (string, error) {
	if merchant == nil {
		return "", fmt.Errorf("%w: merchant is required", domain.ErrInvalidRequest)
	}
	if merchant.Name == "" || merchant.Domain == "" {
		return "", fmt.Errorf("%w: name and domain are required", domain.ErrInvalidRequest)
	}

	var merchantID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO merchants (name, domain, loyalty_percentage, telegram_key)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING merchant_id::text`,
		merchant.Name,
		merchant.Domain,
		merchant.LoyaltyPercentage,
		merchant.TelegramKey,
	).Scan(&merchantID)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrDomainTaken
		}
		return "", fmt.Errorf("%w: failed to create merchant: %v", domain.ErrStore, err)
	}

	return merchantID, nil
}

// UpdateMerchant 部分更新商户设置（nil 字段不更新）
func (r *PostgresMerchantsRepository) UpdateMerchant(ctx context.Context, merchantID string, update domain.MerchantUpdate) (*domain.Merchant, error) {
	if merchantID == "" {
		return nil, fmt.Errorf("%w: merchant_id is required", domain.ErrInvalidRequest)
	}

	// 构建UPDATE语句
	updates := []string{"updated_at = NOW()"}
	args := []any{merchantID}
	argIdx := 2

	if update.Name != nil {
		updates = append(updates, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *update.Name)
		argIdx++
	}
	if update.LoyaltyPercentage != nil {
		updates = append(updates, fmt.Sprintf("loyalty_percentage = $%d", argIdx))
		args = append(args, *update.LoyaltyPercentage)
		argIdx++
	}
	if update.TelegramKey != nil {
		updates = append(updates, fmt.Sprintf("telegram_key = NULLIF($%d, '')", argIdx))
		args = append(args, *update.TelegramKey)
		argIdx++
	}

	query := fmt.Sprintf(`
		UPDATE merchants SET %s
		WHERE merchant_id = $1::uuid
		RETURNING %s
	`, strings.Join(updates, ", "), merchantColumns)

	m, err := scanMerchant(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMerchantNotFound
		}
		return nil, fmt.Errorf("%w: failed to update merchant: %v", domain.ErrStore, err)
	}
	return m, nil
}

// isUniqueViolation 识别唯一性约束冲突（SQLSTATE 23505）
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
