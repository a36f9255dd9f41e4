package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"yankey-ledger/internal/domain"
)

var userRowColumns = []string{
	"user_id", "display_name", "phone_number", "birthday", "telegram_id", "created_at",
}

func TestCreateUser_IdempotentOnPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresUsersRepository(db)

	// 冲突路径也走同一条 ON CONFLICT ... RETURNING，拿回已有行
	mock.ExpectQuery("INSERT INTO users (.+) ON CONFLICT \\(phone_number\\)").
		WithArgs("Bobby", "+15551230002", "", "").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "Bob", "+15551230002", "", "", time.Now()))

	u, err := repo.CreateUser(context.Background(), &domain.User{
		DisplayName: "Bobby",
		PhoneNumber: "+15551230002",
	})
	require.NoError(t, err)
	require.Equal(t, "u-1", u.UserID)
	require.Equal(t, "Bob", u.DisplayName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchByPhoneLast4_SQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users\\s+WHERE phone_number LIKE \\$1").
		WithArgs("%0001").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "Alice", "+15551230001", "", "", time.Now()))

	users, err := repo.SearchByPhoneLast4(context.Background(), "0001")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.SearchByPhoneLast4(context.Background(), "001")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestDeleteUser_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresUsersRepository(db)

	mock.ExpectExec("DELETE FROM users WHERE user_id").
		WithArgs("u-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.DeleteUser(context.Background(), "u-404"), domain.ErrUserNotFound)
}

func TestGetUserByPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE phone_number = \\$1").
		WithArgs("+15551230001").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err = repo.GetUserByPhone(context.Background(), "+15551230001")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
