package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"yankey-ledger/internal/domain"
)

// PostgresOperatorsRepository 操作员Repository实现（商户分区）
type PostgresOperatorsRepository struct {
	db *sql.DB
}

// NewPostgresOperatorsRepository 创建操作员Repository（绑定到一个分区句柄）
func NewPostgresOperatorsRepository(db *sql.DB) *PostgresOperatorsRepository {
	return &PostgresOperatorsRepository{db: db}
}

var _ OperatorsRepository = (*PostgresOperatorsRepository)(nil)

const operatorColumns = `
	operator_id::text,
	username,
	password,
	display_name,
	COALESCE(role, 'operator') as role,
	created_at
`

func scanOperatorRow(row *sql.Row) (*domain.Operator, error) {
	var o domain.Operator
	err := row.Scan(
		&o.OperatorID,
		&o.Username,
		&o.Password,
		&o.DisplayName,
		&o.Role,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOperator 根据operator_id获取操作员
func (r *PostgresOperatorsRepository) GetOperator(ctx context.Context, operatorID string) (*domain.Operator, error) {
	if operatorID == "" {
		return nil, fmt.Errorf("%w: operator_id is required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`SELECT %s FROM operators WHERE operator_id = $1::uuid`, operatorColumns)

	o, err := scanOperatorRow(r.db.QueryRowContext(ctx, query, operatorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOperatorNotFound
		}
		return nil, fmt.Errorf("%w: failed to get operator: %v", domain.ErrStore, err)
	}
	return o, nil
}

// GetOperatorByUsername 根据username获取操作员（登录路径）
func (r *PostgresOperatorsRepository) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`SELECT %s FROM operators WHERE username = $1`, operatorColumns)

	o, err := scanOperatorRow(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOperatorNotFound
		}
		return nil, fmt.Errorf("%w: failed to get operator by username: %v", domain.ErrStore, err)
	}
	return o, nil
}

// ListOperators 查询操作员列表（分页）
func (r *PostgresOperatorsRepository) ListOperators(ctx context.Context, page, size int) ([]*domain.Operator, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operators`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to count operators: %v", domain.ErrStore, err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM operators
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, operatorColumns)

	rows, err := r.db.QueryContext(ctx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to list operators: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	operators := []*domain.Operator{}
	for rows.Next() {
		var o domain.Operator
		err := rows.Scan(
			&o.OperatorID,
			&o.Username,
			&o.Password,
			&o.DisplayName,
			&o.Role,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: failed to scan operator: %v", domain.ErrStore, err)
		}
		operators = append(operators, &o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to iterate operators: %v", domain.ErrStore, err)
	}

	return operators, total, nil
}

// CreateOperator 创建操作员
func (r *PostgresOperatorsRepository) CreateOperator(ctx context.Context, operator *domain.Operator) (*domain.Operator, error) {
	if operator == nil || operator.Username == "" || operator.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidRequest)
	}
	role := operator.Role
	if role == "" {
		role = domain.RoleOperator
	}

	query := fmt.Sprintf(`
		INSERT INTO operators (username, password, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, operatorColumns)

	o, err := scanOperatorRow(r.db.QueryRowContext(ctx, query,
		operator.Username,
		operator.Password,
		operator.DisplayName,
		role,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: failed to create operator: %v", domain.ErrStore, err)
	}
	return o, nil
}

// UpdateOperator 部分更新操作员（nil 字段不更新）
func (r *PostgresOperatorsRepository) UpdateOperator(ctx context.Context, operatorID string, update domain.OperatorUpdate) (*domain.Operator, error) {
	if operatorID == "" {
		return nil, fmt.Errorf("%w: operator_id is required", domain.ErrInvalidRequest)
	}

	updates := []string{}
	args := []any{operatorID}
	argIdx := 2

	if update.DisplayName != nil {
		updates = append(updates, fmt.Sprintf("display_name = $%d", argIdx))
		args = append(args, *update.DisplayName)
		argIdx++
	}
	if update.Password != nil {
		updates = append(updates, fmt.Sprintf("password = $%d", argIdx))
		args = append(args, *update.Password)
		argIdx++
	}

	if len(updates) == 0 {
		return r.GetOperator(ctx, operatorID)
	}

	query := fmt.Sprintf(`
		UPDATE operators SET %s
		WHERE operator_id = $1::uuid
		RETURNING %s
	`, strings.Join(updates, ", "), operatorColumns)

	o, err := scanOperatorRow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOperatorNotFound
		}
		return nil, fmt.Errorf("%w: failed to update operator: %v", domain.ErrStore, err)
	}
	return o, nil
}

// DeleteOperator 删除操作员
func (r *PostgresOperatorsRepository) DeleteOperator(ctx context.Context, operatorID string) error {
	if operatorID == "" {
		return fmt.Errorf("%w: operator_id is required", domain.ErrInvalidRequest)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM operators WHERE operator_id = $1::uuid`, operatorID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete operator: %v", domain.ErrStore, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to delete operator: %v", domain.ErrStore, err)
	}
	if affected == 0 {
		return domain.ErrOperatorNotFound
	}
	return nil
}
