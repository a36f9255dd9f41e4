package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"yankey-ledger/internal/domain"
)

var merchantRowColumns = []string{
	"merchant_id", "name", "domain", "loyalty_percentage", "telegram_key", "created_at", "updated_at",
}

func merchantRow(id, name, domainName string, pct float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(merchantRowColumns).
		AddRow(id, name, domainName, pct, "", now, now)
}

func TestGetMerchantByDomain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresMerchantsRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM merchants WHERE domain = \\$1").
		WithArgs("coffee.example.com").
		WillReturnRows(merchantRow("m-1", "Coffee Corner", "coffee.example.com", 5))

	m, err := repo.GetMerchantByDomain(context.Background(), "coffee.example.com")
	require.NoError(t, err)
	require.Equal(t, "m-1", m.MerchantID)
	require.InDelta(t, 5, m.LoyaltyPercentage, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMerchantByDomain_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresMerchantsRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM merchants WHERE domain = \\$1").
		WithArgs("unknown.example.com").
		WillReturnRows(sqlmock.NewRows(merchantRowColumns))

	_, err = repo.GetMerchantByDomain(context.Background(), "unknown.example.com")
	require.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestCreateMerchant_DomainTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresMerchantsRepository(db)

	mock.ExpectQuery("INSERT INTO merchants").
		WithArgs("Copycat", "coffee.example.com", 5.0, "").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = repo.CreateMerchant(context.Background(), &domain.Merchant{
		Name:              "Copycat",
		Domain:            "coffee.example.com",
		LoyaltyPercentage: 5,
	})
	require.ErrorIs(t, err, domain.ErrDomainTaken)
}

func TestCreateMerchant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresMerchantsRepository(db)

	mock.ExpectQuery("INSERT INTO merchants").
		WithArgs("Coffee Corner", "coffee.example.com", 5.0, "").
		WillReturnRows(sqlmock.NewRows([]string{"merchant_id"}).AddRow("m-1"))

	id, err := repo.CreateMerchant(context.Background(), &domain.Merchant{
		Name:              "Coffee Corner",
		Domain:            "coffee.example.com",
		LoyaltyPercentage: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "m-1", id)
}

func TestUpdateMerchant_PartialFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresMerchantsRepository(db)

	// 只更新比例：SET 只包含 updated_at 和 loyalty_percentage
	mock.ExpectQuery("UPDATE merchants SET updated_at = NOW\\(\\), loyalty_percentage = \\$2").
		WithArgs("m-1", 7.5).
		WillReturnRows(merchantRow("m-1", "Coffee Corner", "coffee.example.com", 7.5))

	pct := 7.5
	m, err := repo.UpdateMerchant(context.Background(), "m-1", domain.MerchantUpdate{LoyaltyPercentage: &pct})
	require.NoError(t, err)
	require.InDelta(t, 7.5, m.LoyaltyPercentage, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMerchant_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresMerchantsRepository(db)

	mock.ExpectQuery("UPDATE merchants SET").
		WillReturnRows(sqlmock.NewRows(merchantRowColumns))

	name := "Ghost"
	_, err = repo.UpdateMerchant(context.Background(), "m-404", domain.MerchantUpdate{Name: &name})
	require.ErrorIs(t, err, domain.ErrMerchantNotFound)
}
