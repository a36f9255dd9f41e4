package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
)

// ledgerFixture 账本测试夹具：内存仓库 + 一个商户 + 一个用户 + 一个操作员
type ledgerFixture struct {
	merchants  *repository.MemoryMerchantsRepo
	partitions *repository.MemoryPartitions
	svc        LedgerService

	merchantID string
	userID     string
	operatorID string
}

func setupLedger(t *testing.T, loyaltyPercentage float64) *ledgerFixture {
	t.Helper()
	ctx := context.Background()

	merchants := repository.NewMemoryMerchantsRepo()
	partitions := repository.NewMemoryPartitions()

	merchantID, err := merchants.CreateMerchant(ctx, &domain.Merchant{
		Name:              "Coffee Corner",
		Domain:            "coffee.example.com",
		LoyaltyPercentage: loyaltyPercentage,
	})
	require.NoError(t, err)

	part, err := partitions.Partition(ctx, merchantID)
	require.NoError(t, err)

	user, err := part.Users.CreateUser(ctx, &domain.User{
		DisplayName: "Alice",
		PhoneNumber: "+15551230001",
	})
	require.NoError(t, err)

	operator, err := part.Operators.CreateOperator(ctx, &domain.Operator{
		Username:    "cashier1",
		Password:    "hash",
		DisplayName: "Cashier One",
	})
	require.NoError(t, err)

	svc := NewLedgerService(merchants, partitions, NopNotifier{}, zap.NewNop())
	return &ledgerFixture{
		merchants:  merchants,
		partitions: partitions,
		svc:        svc,
		merchantID: merchantID,
		userID:     user.UserID,
		operatorID: operator.OperatorID,
	}
}

func (f *ledgerFixture) checkIn(t *testing.T, amount float64) *RecordTransactionResponse {
	t.Helper()
	resp, err := f.svc.RecordTransaction(context.Background(), RecordTransactionRequest{
		TenantID:   f.merchantID,
		OperatorID: f.operatorID,
		UserID:     f.userID,
		Type:       domain.TxCheckIn,
		Amount:     amount,
	})
	require.NoError(t, err)
	return resp
}

func TestBalanceFold(t *testing.T) {
	txs := []*domain.Transaction{
		{Type: domain.TxCheckIn, Amount: 100, LoyaltyPercentage: 2.5},
		{Type: domain.TxCheckIn, Amount: 40, LoyaltyPercentage: 10},
		{Type: domain.TxCheckOut, CheckOutAmount: 2},
	}
	// 100×2.5% + 40×10% − 2 = 4.5
	require.InDelta(t, 4.5, Balance(txs), 1e-9)

	// 顺序无关
	reversed := []*domain.Transaction{txs[2], txs[1], txs[0]}
	require.InDelta(t, Balance(txs), Balance(reversed), 1e-9)

	// 重复折算幂等
	require.InDelta(t, Balance(txs), Balance(txs), 1e-9)

	require.Zero(t, Balance(nil))
}

func TestRecordTransaction_CashbackLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 2.5)

	// 无历史 → 余额 0
	balance, err := f.svc.BalanceOf(ctx, f.merchantID, f.userID)
	require.NoError(t, err)
	require.Zero(t, balance)

	// check-in 100 @ 2.5% → 余额 2.5
	resp := f.checkIn(t, 100)
	require.InDelta(t, 2.5, resp.NewBalance, 1e-9)

	// check-out 2 → 余额 0.5
	resp, err = f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:       f.merchantID,
		OperatorID:     f.operatorID,
		UserID:         f.userID,
		Type:           domain.TxCheckOut,
		CheckOutAmount: 2,
	})
	require.NoError(t, err)
	require.InDelta(t, 0.5, resp.NewBalance, 1e-9)

	// check-out 10 超额 → 拒绝，余额不变
	_, err = f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:       f.merchantID,
		OperatorID:     f.operatorID,
		UserID:         f.userID,
		Type:           domain.TxCheckOut,
		CheckOutAmount: 10,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	balance, err = f.svc.BalanceOf(ctx, f.merchantID, f.userID)
	require.NoError(t, err)
	require.InDelta(t, 0.5, balance, 1e-9)
}

func TestRecordTransaction_CheckOutAmountNormalized(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)
	f.checkIn(t, 100) // 余额 10

	// check-out 不消费 amount：透传的值不入账，动态金额取 checkOutAmount
	resp, err := f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:       f.merchantID,
		OperatorID:     f.operatorID,
		UserID:         f.userID,
		Type:           domain.TxCheckOut,
		Amount:         9999,
		CheckOutAmount: 4,
	})
	require.NoError(t, err)
	require.Zero(t, resp.Transaction.Amount)
	require.InDelta(t, 6, resp.NewBalance, 1e-9)

	part, err := f.partitions.Partition(ctx, f.merchantID)
	require.NoError(t, err)
	acts, err := part.Activities.LatestActivities(ctx, 1)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.Contains(t, acts[0].Description, "4.00 amount")
}

func TestRecordTransaction_CheckInAccrues(t *testing.T) {
	f := setupLedger(t, 10)

	resp := f.checkIn(t, 100)
	require.Equal(t, domain.TxCheckIn, resp.Transaction.Type)
	require.InDelta(t, 10, resp.Cashback, 1e-9)
	require.InDelta(t, 10, resp.NewBalance, 1e-9)

	balance, err := f.svc.BalanceOf(context.Background(), f.merchantID, f.userID)
	require.NoError(t, err)
	require.InDelta(t, 10, balance, 1e-9)
}

func TestRecordTransaction_RateSnapshot(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)

	f.checkIn(t, 100) // 快照 10%

	// 商户调整比例不影响已有交易的折算
	pct := 20.0
	_, err := f.merchants.UpdateMerchant(ctx, f.merchantID, domain.MerchantUpdate{LoyaltyPercentage: &pct})
	require.NoError(t, err)

	balance, err := f.svc.BalanceOf(ctx, f.merchantID, f.userID)
	require.NoError(t, err)
	require.InDelta(t, 10, balance, 1e-9)

	// 新交易按新比例快照
	resp := f.checkIn(t, 100)
	require.InDelta(t, 20, resp.Cashback, 1e-9)
	require.InDelta(t, 30, resp.NewBalance, 1e-9)
}

func TestRecordTransaction_CheckOut(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)
	f.checkIn(t, 100) // 余额 10

	resp, err := f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:       f.merchantID,
		OperatorID:     f.operatorID,
		UserID:         f.userID,
		Type:           domain.TxCheckOut,
		CheckOutAmount: 4,
	})
	require.NoError(t, err)
	require.InDelta(t, 6, resp.NewBalance, 1e-9)
	require.Zero(t, resp.Cashback)

	// 允许刚好清零
	resp, err = f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:       f.merchantID,
		OperatorID:     f.operatorID,
		UserID:         f.userID,
		Type:           domain.TxCheckOut,
		CheckOutAmount: 6,
	})
	require.NoError(t, err)
	require.InDelta(t, 0, resp.NewBalance, 1e-9)
}

func TestRecordTransaction_Overdraw(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)
	f.checkIn(t, 100) // 余额 10

	_, err := f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:       f.merchantID,
		OperatorID:     f.operatorID,
		UserID:         f.userID,
		Type:           domain.TxCheckOut,
		CheckOutAmount: 25,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// 被拒绝的请求不留痕
	txs, _, err := f.svc.UserHistory(ctx, f.merchantID, f.userID, 1, 20)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	balance, err := f.svc.BalanceOf(ctx, f.merchantID, f.userID)
	require.NoError(t, err)
	require.InDelta(t, 10, balance, 1e-9)
}

func TestRecordTransaction_Validation(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)

	cases := []RecordTransactionRequest{
		{Type: "refund", Amount: 10},
		{Type: domain.TxCheckIn, Amount: 0},
		{Type: domain.TxCheckIn, Amount: -5},
		{Type: domain.TxCheckOut, CheckOutAmount: 0},
		{Type: domain.TxCheckOut, CheckOutAmount: -1},
	}
	for _, req := range cases {
		req.TenantID = f.merchantID
		req.OperatorID = f.operatorID
		req.UserID = f.userID
		_, err := f.svc.RecordTransaction(ctx, req)
		require.ErrorIs(t, err, domain.ErrInvalidRequest, "type=%s amount=%v checkout=%v", req.Type, req.Amount, req.CheckOutAmount)
	}
}

func TestRecordTransaction_UnknownEntities(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)

	_, err := f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:   f.merchantID,
		OperatorID: f.operatorID,
		UserID:     "00000000-0000-0000-0000-00000000dead",
		Type:       domain.TxCheckIn,
		Amount:     10,
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:   "00000000-0000-0000-0000-00000000dead",
		OperatorID: f.operatorID,
		UserID:     f.userID,
		Type:       domain.TxCheckIn,
		Amount:     10,
	})
	require.ErrorIs(t, err, domain.ErrMerchantNotFound)

	_, err = f.svc.RecordTransaction(ctx, RecordTransactionRequest{
		TenantID:   f.merchantID,
		OperatorID: "00000000-0000-0000-0000-00000000dead",
		UserID:     f.userID,
		Type:       domain.TxCheckIn,
		Amount:     10,
	})
	require.ErrorIs(t, err, domain.ErrOperatorNotFound)
}

// 两个并发 check-out 同时读到余额 10 也只能成功一个
func TestRecordTransaction_ConcurrentCheckOut(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)
	f.checkIn(t, 100) // 余额 10

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.RecordTransaction(ctx, RecordTransactionRequest{
				TenantID:       f.merchantID,
				OperatorID:     f.operatorID,
				UserID:         f.userID,
				Type:           domain.TxCheckOut,
				CheckOutAmount: 10,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, domain.ErrInsufficientBalance), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)

	balance, err := f.svc.BalanceOf(ctx, f.merchantID, f.userID)
	require.NoError(t, err)
	require.InDelta(t, 0, balance, 1e-9)
}

func TestDeleteUserHistory(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, 10)
	f.checkIn(t, 100)
	f.checkIn(t, 50)

	require.NoError(t, f.svc.DeleteUserHistory(ctx, f.merchantID, f.userID))

	txs, pagination, err := f.svc.UserHistory(ctx, f.merchantID, f.userID, 1, 20)
	require.NoError(t, err)
	require.Empty(t, txs)
	require.Zero(t, pagination.Total)
}

func TestBalanceOf_UnknownUser(t *testing.T) {
	f := setupLedger(t, 10)
	_, err := f.svc.BalanceOf(context.Background(), f.merchantID, "00000000-0000-0000-0000-00000000dead")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
