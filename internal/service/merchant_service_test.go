package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/repository"
	"yankey-ledger/internal/store"
)

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"shop.example.com":          "shop.example.com",
		"Shop.Example.COM":          "shop.example.com",
		"shop.example.com:3000":     "shop.example.com",
		"  shop.example.com:8080 ":  "shop.example.com",
		"localhost:8080":            "localhost",
		"shop.example.com:notaport": "shop.example.com:notaport",
		"":                          "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeDomain(in), "input %q", in)
	}
}

func newMerchantService(t *testing.T, cache store.KV) (MerchantService, *repository.MemoryMerchantsRepo) {
	t.Helper()
	merchants := repository.NewMemoryMerchantsRepo()
	partitions := repository.NewMemoryPartitions()
	return NewMerchantService(merchants, partitions, cache, zap.NewNop()), merchants
}

func onboardReq() OnboardMerchantRequest {
	return OnboardMerchantRequest{
		Name:              "Coffee Corner",
		Domain:            "coffee.example.com",
		LoyaltyPercentage: 5,
		AdminUsername:     "owner",
		AdminPassword:     "hash",
		AdminDisplayName:  "The Owner",
	}
}

func TestOnboard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMerchantService(t, nil)

	resp, err := svc.Onboard(ctx, onboardReq())
	require.NoError(t, err)
	require.NotEmpty(t, resp.Merchant.MerchantID)
	require.Equal(t, "coffee.example.com", resp.Merchant.Domain)
	require.Equal(t, domain.RoleOwner, resp.Owner.Role)

	// 域名全局唯一
	req := onboardReq()
	req.Name = "Copycat"
	_, err = svc.Onboard(ctx, req)
	require.ErrorIs(t, err, domain.ErrDomainTaken)
}

func TestOnboard_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMerchantService(t, nil)

	req := onboardReq()
	req.LoyaltyPercentage = 101
	_, err := svc.Onboard(ctx, req)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	req = onboardReq()
	req.AdminUsername = ""
	_, err = svc.Onboard(ctx, req)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	req = onboardReq()
	req.Domain = ""
	_, err = svc.Onboard(ctx, req)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestResolveByDomain(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMerchantService(t, nil)

	resp, err := svc.Onboard(ctx, onboardReq())
	require.NoError(t, err)

	// Host 带端口、大小写混合都解析到同一商户
	for _, host := range []string{"coffee.example.com", "Coffee.Example.Com:3000"} {
		m, err := svc.ResolveByDomain(ctx, host)
		require.NoError(t, err)
		require.Equal(t, resp.Merchant.MerchantID, m.MerchantID)
	}

	_, err = svc.ResolveByDomain(ctx, "unknown.example.com")
	require.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestResolveByDomain_Cache(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	kv := store.NewRedisKV(client)

	svc, merchants := newMerchantService(t, kv)
	resp, err := svc.Onboard(ctx, onboardReq())
	require.NoError(t, err)
	merchantID := resp.Merchant.MerchantID

	// 第一次解析落库并写缓存
	_, err = svc.ResolveByDomain(ctx, "coffee.example.com")
	require.NoError(t, err)
	require.True(t, mr.Exists("yankey:merchant:domain:coffee.example.com"))

	// 绕过服务直接改库：缓存命中返回旧快照
	name := "Renamed Behind Cache"
	_, err = merchants.UpdateMerchant(ctx, merchantID, domain.MerchantUpdate{Name: &name})
	require.NoError(t, err)
	m, err := svc.ResolveByDomain(ctx, "coffee.example.com")
	require.NoError(t, err)
	require.Equal(t, "Coffee Corner", m.Name)

	// 走服务更新会失效缓存
	name = "Fresh Name"
	_, err = svc.UpdateSettings(ctx, merchantID, UpdateMerchantSettingsRequest{Name: &name})
	require.NoError(t, err)
	require.False(t, mr.Exists("yankey:merchant:domain:coffee.example.com"))

	m, err = svc.ResolveByDomain(ctx, "coffee.example.com")
	require.NoError(t, err)
	require.Equal(t, "Fresh Name", m.Name)
}

func TestUpdateSettings_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMerchantService(t, nil)

	resp, err := svc.Onboard(ctx, onboardReq())
	require.NoError(t, err)

	pct := 150.0
	_, err = svc.UpdateSettings(ctx, resp.Merchant.MerchantID, UpdateMerchantSettingsRequest{LoyaltyPercentage: &pct})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	pct = 7.5
	settings, err := svc.UpdateSettings(ctx, resp.Merchant.MerchantID, UpdateMerchantSettingsRequest{LoyaltyPercentage: &pct})
	require.NoError(t, err)
	require.InDelta(t, 7.5, settings.LoyaltyPercentage, 1e-9)
}
