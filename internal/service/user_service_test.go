package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
)

type userFixture struct {
	partitions *repository.MemoryPartitions
	ledger     *ledgerFixture
	svc        UserService
}

func setupUsers(t *testing.T) *userFixture {
	t.Helper()
	lf := setupLedger(t, 10)
	svc := NewUserService(lf.partitions, lf.svc, zap.NewNop())
	return &userFixture{
		partitions: lf.partitions,
		ledger:     lf,
		svc:        svc,
	}
}

func TestLoginOrCreate_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := setupUsers(t)
	tenantID := f.ledger.merchantID

	u1, created, err := f.svc.LoginOrCreate(ctx, tenantID, &domain.User{
		DisplayName: "Bob",
		PhoneNumber: "+15551230002",
	})
	require.NoError(t, err)
	require.True(t, created)

	// 同一手机号再登录：返回已有身份，不产生新用户
	u2, created, err := f.svc.LoginOrCreate(ctx, tenantID, &domain.User{
		DisplayName: "Bobby",
		PhoneNumber: "+15551230002",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, u1.UserID, u2.UserID)
	require.Equal(t, "Bob", u2.DisplayName)

	_, _, err = f.svc.LoginOrCreate(ctx, tenantID, &domain.User{DisplayName: "NoPhone"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestListUsers_WithBalances(t *testing.T) {
	ctx := context.Background()
	f := setupUsers(t)
	tenantID := f.ledger.merchantID

	f.ledger.checkIn(t, 100) // Alice 余额 10

	users, pagination, err := f.svc.ListUsers(ctx, tenantID, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, pagination.Total)
	require.Len(t, users, 1)
	require.Equal(t, "Alice", users[0].DisplayName)
	require.InDelta(t, 10, users[0].Balance, 1e-9)
}

func TestGetUser_Detail(t *testing.T) {
	ctx := context.Background()
	f := setupUsers(t)
	tenantID := f.ledger.merchantID

	f.ledger.checkIn(t, 100)
	f.ledger.checkIn(t, 50)

	detail, err := f.svc.GetUser(ctx, tenantID, f.ledger.userID, 1, 1)
	require.NoError(t, err)
	require.InDelta(t, 15, detail.Balance, 1e-9) // 余额折算不受分页影响
	require.Len(t, detail.Transactions, 1)
	require.Equal(t, 2, detail.Pagination.Total)

	_, err = f.svc.GetUser(ctx, tenantID, "00000000-0000-0000-0000-00000000dead", 1, 20)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeleteUser_PurgesHistory(t *testing.T) {
	ctx := context.Background()
	f := setupUsers(t)
	tenantID := f.ledger.merchantID

	f.ledger.checkIn(t, 100)

	require.NoError(t, f.svc.DeleteUser(ctx, tenantID, f.ledger.userID))

	part, err := f.partitions.Partition(ctx, tenantID)
	require.NoError(t, err)
	_, err = part.Users.GetUser(ctx, f.ledger.userID)
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	txs, err := part.Transactions.ListByUser(ctx, f.ledger.userID)
	require.NoError(t, err)
	require.Empty(t, txs)

	require.ErrorIs(t, f.svc.DeleteUser(ctx, tenantID, f.ledger.userID), domain.ErrUserNotFound)
}

func TestSearchByPhoneLast4(t *testing.T) {
	ctx := context.Background()
	f := setupUsers(t)
	tenantID := f.ledger.merchantID

	f.ledger.checkIn(t, 100) // Alice (+15551230001) 余额 10

	_, _, err := f.svc.LoginOrCreate(ctx, tenantID, &domain.User{
		DisplayName: "Carol",
		PhoneNumber: "+15559990001", // 同尾号
	})
	require.NoError(t, err)

	matches, err := f.svc.SearchByPhoneLast4(ctx, tenantID, "0001")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	byName := map[string]float64{}
	for _, m := range matches {
		byName[m.DisplayName] = m.Balance
	}
	require.InDelta(t, 10, byName["Alice"], 1e-9)
	require.InDelta(t, 0, byName["Carol"], 1e-9)

	matches, err = f.svc.SearchByPhoneLast4(ctx, tenantID, "7777")
	require.NoError(t, err)
	require.Empty(t, matches)

	_, err = f.svc.SearchByPhoneLast4(ctx, tenantID, "42")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

// 不同商户分区互不可见
func TestUserPartitionIsolation(t *testing.T) {
	ctx := context.Background()
	f := setupUsers(t)

	otherID, err := f.ledger.merchants.CreateMerchant(ctx, &domain.Merchant{
		Name:              "Bakery",
		Domain:            "bakery.example.com",
		LoyaltyPercentage: 5,
	})
	require.NoError(t, err)

	users, pagination, err := f.svc.ListUsers(ctx, otherID, 1, 20)
	require.NoError(t, err)
	require.Empty(t, users)
	require.Zero(t, pagination.Total)

	_, err = f.svc.GetUser(ctx, otherID, f.ledger.userID, 1, 20)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
