package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"yankey-ledger/internal/domain"
)

// PostgresUsersRepository 用户Repository实现（商户分区）
type PostgresUsersRepository struct {
	db *sql.DB
}

// NewPostgresUsersRepository 创建用户Repository（绑定到一个分区句柄）
func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id::text,
	display_name,
	phone_number,
	COALESCE(birthday, '') as birthday,
	COALESCE(telegram_id, '') as telegram_id,
	created_at
`

func scanUserRow(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.UserID,
		&u.DisplayName,
		&u.PhoneNumber,
		&u.Birthday,
		&u.TelegramID,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser 根据user_id获取用户
func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE user_id = $1::uuid`, userColumns)

	u, err := scanUserRow(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: failed to get user: %v", domain.ErrStore, err)
	}
	return u, nil
}

// GetUserByPhone 按完整手机号精确查找
func (r *PostgresUsersRepository) GetUserByPhone(ctx context.Context, phoneNumber string) (*domain.User, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: phone_number is required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE phone_number = $1`, userColumns)

	u, err := scanUserRow(r.db.QueryRowContext(ctx, query, phoneNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: failed to get user by phone: %v", domain.ErrStore, err)
	}
	return u, nil
}

// ListUsers 查询用户列表（分页）
func (r *PostgresUsersRepository) ListUsers(ctx context.Context, page, size int) ([]*domain.User, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to count users: %v", domain.ErrStore, err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to list users: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CountUsers 分区内用户总数
func (r *PostgresUsersRepository) CountUsers(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: failed to count users: %v", domain.ErrStore, err)
	}
	return total, nil
}

// SearchByPhoneLast4 按手机号后4位搜索（收银台查找用户）
func (r *PostgresUsersRepository) SearchByPhoneLast4(ctx context.Context, last4 string) ([]*domain.User, error) {
	if len(last4) != 4 {
		return nil, fmt.Errorf("%w: last4 must be 4 digits", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE phone_number LIKE $1
		ORDER BY created_at DESC
	`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, "%"+last4)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search users: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// CreateUser 创建用户
// phone_number 幂等：冲突时返回已有记录（ON CONFLICT DO UPDATE 以便 RETURNING 取回整行）
func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil || user.DisplayName == "" || user.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: display_name and phone_number are required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`
		INSERT INTO users (display_name, phone_number, birthday, telegram_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (phone_number)
		DO UPDATE SET phone_number = EXCLUDED.phone_number
		RETURNING %s
	`, userColumns)

	u, err := scanUserRow(r.db.QueryRowContext(ctx, query,
		user.DisplayName,
		user.PhoneNumber,
		user.Birthday,
		user.TelegramID,
	))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create user: %v", domain.ErrStore, err)
	}
	return u, nil
}

// UpdateUser 部分更新用户资料（nil 字段不更新）
func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, userID string, update domain.UserUpdate) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}

	updates := []string{}
	args := []any{userID}
	argIdx := 2

	if update.DisplayName != nil {
		updates = append(updates, fmt.Sprintf("display_name = $%d", argIdx))
		args = append(args, *update.DisplayName)
		argIdx++
	}
	if update.PhoneNumber != nil {
		updates = append(updates, fmt.Sprintf("phone_number = $%d", argIdx))
		args = append(args, *update.PhoneNumber)
		argIdx++
	}
	if update.Birthday != nil {
		updates = append(updates, fmt.Sprintf("birthday = NULLIF($%d, '')", argIdx))
		args = append(args, *update.Birthday)
		argIdx++
	}

	if len(updates) == 0 {
		return r.GetUser(ctx, userID)
	}

	query := fmt.Sprintf(`
		UPDATE users SET %s
		WHERE user_id = $1::uuid
		RETURNING %s
	`, strings.Join(updates, ", "), userColumns)

	u, err := scanUserRow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: failed to update user: %v", domain.ErrStore, err)
	}
	return u, nil
}

// DeleteUser 删除用户
func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1::uuid`, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete user: %v", domain.ErrStore, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to delete user: %v", domain.ErrStore, err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func collectUsers(rows *sql.Rows) ([]*domain.User, error) {
	users := []*domain.User{}
	for rows.Next() {
		var u domain.User
		err := rows.Scan(
			&u.UserID,
			&u.DisplayName,
			&u.PhoneNumber,
			&u.Birthday,
			&u.TelegramID,
			&u.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan user: %v", domain.ErrStore, err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate users: %v", domain.ErrStore, err)
	}
	return users, nil
}
