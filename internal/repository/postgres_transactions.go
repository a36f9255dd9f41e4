package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yankey-ledger/internal/domain"
)

// PostgresTransactionsRepository 交易Repository实现（商户分区，append-only）
type PostgresTransactionsRepository struct {
	db *sql.DB
}

// NewPostgresTransactionsRepository 创建交易Repository（绑定到一个分区句柄）
func NewPostgresTransactionsRepository(db *sql.DB) *PostgresTransactionsRepository {
	return &PostgresTransactionsRepository{db: db}
}

var _ TransactionsRepository = (*PostgresTransactionsRepository)(nil)

const transactionColumns = `
	transaction_id::text,
	type,
	amount,
	check_out_amount,
	loyalty_percentage,
	user_id::text,
	operator_id::text,
	created_at
`

// InsertTransaction 追加一条交易记录
// 只有 INSERT，没有 UPDATE：账本是 append-only 的
func (r *PostgresTransactionsRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if tx == nil || tx.UserID == "" || tx.OperatorID == "" {
		return nil, fmt.Errorf("%w: user_id and operator_id are required", domain.ErrInvalidRequest)
	}
	if tx.Type != domain.TxCheckIn && tx.Type != domain.TxCheckOut {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidRequest, tx.Type)
	}

	query := fmt.Sprintf(`
		INSERT INTO transactions (type, amount, check_out_amount, loyalty_percentage, user_id, operator_id)
		VALUES ($1, $2, $3, $4, $5::uuid, $6::uuid)
		RETURNING %s
	`, transactionColumns)

	var out domain.Transaction
	err := r.db.QueryRowContext(ctx, query,
		tx.Type,
		tx.Amount,
		tx.CheckOutAmount,
		tx.LoyaltyPercentage,
		tx.UserID,
		tx.OperatorID,
	).Scan(
		&out.TransactionID,
		&out.Type,
		&out.Amount,
		&out.CheckOutAmount,
		&out.LoyaltyPercentage,
		&out.UserID,
		&out.OperatorID,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert transaction: %v", domain.ErrStore, err)
	}
	return &out, nil
}

// ListByUser 获取用户全部交易（余额折算用，不分页）
func (r *PostgresTransactionsRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions
		WHERE user_id = $1::uuid
	`, transactionColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list user transactions: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByUserPaged 按用户分页查询交易历史
func (r *PostgresTransactionsRepository) ListByUserPaged(ctx context.Context, userID string, page, size int) ([]*domain.Transaction, int, error) {
	return r.listPaged(ctx, "user_id", userID, page, size)
}

// ListByOperatorPaged 按操作员分页查询交易历史
func (r *PostgresTransactionsRepository) ListByOperatorPaged(ctx context.Context, operatorID string, page, size int) ([]*domain.Transaction, int, error) {
	return r.listPaged(ctx, "operator_id", operatorID, page, size)
}

func (r *PostgresTransactionsRepository) listPaged(ctx context.Context, column, id string, page, size int) ([]*domain.Transaction, int, error) {
	if id == "" {
		return nil, 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, column)
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM transactions WHERE %s = $1::uuid`, column)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to count transactions: %v", domain.ErrStore, err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions
		WHERE %s = $1::uuid
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, transactionColumns, column)

	rows, err := r.db.QueryContext(ctx, query, id, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to list transactions: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	txs, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// DeleteByUser 批量删除用户的全部交易（用户删除时调用）
func (r *PostgresTransactionsRepository) DeleteByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = $1::uuid`, userID); err != nil {
		return fmt.Errorf("%w: failed to delete user transactions: %v", domain.ErrStore, err)
	}
	return nil
}

// Totals 分区内全量交易聚合（仪表盘）
func (r *PostgresTransactionsRepository) Totals(ctx context.Context) (*domain.LedgerTotals, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(amount) FILTER (WHERE type = 'check-in'), 0),
			COALESCE(SUM(amount * loyalty_percentage / 100) FILTER (WHERE type = 'check-in'), 0),
			COALESCE(SUM(check_out_amount) FILTER (WHERE type = 'check-out'), 0)
		FROM transactions
	`

	var totals domain.LedgerTotals
	err := r.db.QueryRowContext(ctx, query).Scan(
		&totals.TransactionCount,
		&totals.CheckInVolume,
		&totals.CashbackAccrued,
		&totals.CheckOutVolume,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to aggregate transactions: %v", domain.ErrStore, err)
	}
	return &totals, nil
}

func collectTransactions(rows *sql.Rows) ([]*domain.Transaction, error) {
	txs := []*domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.TransactionID,
			&t.Type,
			&t.Amount,
			&t.CheckOutAmount,
			&t.LoyaltyPercentage,
			&t.UserID,
			&t.OperatorID,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan transaction: %v", domain.ErrStore, err)
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate transactions: %v", domain.ErrStore, err)
	}
	return txs, nil
}
