package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yankey-ledger/internal/repository"
	"yankey-ledger/internal/service"
)

// testStack 内存仓库上的完整 HTTP 栈
type testStack struct {
	router *Router
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zap.NewNop()
	merchants := repository.NewMemoryMerchantsRepo()
	partitions := repository.NewMemoryPartitions()

	merchantService := service.NewMerchantService(merchants, partitions, nil, logger)
	ledgerService := service.NewLedgerService(merchants, partitions, service.NopNotifier{}, logger)
	userService := service.NewUserService(partitions, ledgerService, logger)
	operatorService := service.NewOperatorService(partitions, logger)
	dashboardService := service.NewDashboardService(partitions, logger)

	router := NewRouter(logger)
	router.RegisterOfficeRoutes(NewOfficeHandler(
		merchantService, operatorService, userService, ledgerService, dashboardService, logger))
	router.RegisterOperatorRoutes(NewOperatorHandler(
		merchantService, operatorService, userService, ledgerService, logger))
	router.RegisterUserRoutes(NewUserHandler(merchantService, userService, logger))

	return &testStack{router: router}
}

// do 发请求；host 为空表示不设置商户域名
func (s *testStack) do(t *testing.T, method, path, host string, headers map[string]string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if host != "" {
		req.Host = host
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func onboardBody() map[string]any {
	return map[string]any{
		"name":              "Coffee Corner",
		"domain":            "coffee.example.com",
		"loyaltyPercentage": 10,
		"adminUsername":     "owner",
		"adminPassword":     "ownerhash",
		"adminDisplayName":  "The Owner",
	}
}

func TestOfficeOnboardAndSettings(t *testing.T) {
	s := newTestStack(t)

	rec, resp := s.do(t, http.MethodPost, "/office/api/v1/merchants", "", nil, onboardBody())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), resp["code"])

	result := resp["result"].(map[string]any)
	owner := result["owner"].(map[string]any)
	require.Equal(t, "owner", owner["role"])
	require.NotContains(t, owner, "password")
	ownerHeaders := map[string]string{"X-Operator-Id": owner["operatorId"].(string)}

	// 域名冲突
	rec, _ = s.do(t, http.MethodPost, "/office/api/v1/merchants", "", nil, onboardBody())
	require.Equal(t, http.StatusConflict, rec.Code)

	// 商户域名路由到设置
	rec, resp = s.do(t, http.MethodGet, "/office/api/v1/settings", "coffee.example.com", ownerHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := resp["result"].(map[string]any)
	require.Equal(t, 10.0, settings["loyaltyPercentage"])

	// 未知域名 404
	rec, _ = s.do(t, http.MethodGet, "/office/api/v1/settings", "ghost.example.com", ownerHeaders, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// 更新设置
	rec, resp = s.do(t, http.MethodPut, "/office/api/v1/settings", "coffee.example.com", ownerHeaders, map[string]any{
		"loyaltyPercentage": 2.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	settings = resp["result"].(map[string]any)
	require.Equal(t, 2.5, settings["loyaltyPercentage"])
}

func TestOfficeOwnerGuard(t *testing.T) {
	s := newTestStack(t)
	host := "coffee.example.com"

	rec, resp := s.do(t, http.MethodPost, "/office/api/v1/merchants", "", nil, onboardBody())
	require.Equal(t, http.StatusOK, rec.Code)
	ownerID := resp["result"].(map[string]any)["owner"].(map[string]any)["operatorId"].(string)
	ownerHeaders := map[string]string{"X-Operator-Id": ownerID}

	rec, resp = s.do(t, http.MethodPost, "/user/api/v1/login", host, nil, map[string]any{
		"displayName": "Alice",
		"phoneNumber": "+15551230001",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	userID := resp["result"].(map[string]any)["userId"].(string)

	// 不带操作员头：后台路由一律 401
	rec, _ = s.do(t, http.MethodPut, "/office/api/v1/settings", host, nil, map[string]any{
		"loyaltyPercentage": 99,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/office/api/v1/operators", host, nil, map[string]any{
		"username": "intruder",
		"password": "hash",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/office/api/v1/users/"+userID, host, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// 未知操作员 ID 也是 401
	rec, _ = s.do(t, http.MethodGet, "/office/api/v1/dashboard", host,
		map[string]string{"X-Operator-Id": "no-such-operator"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// 普通操作员（非 owner）：403
	rec, resp = s.do(t, http.MethodPost, "/office/api/v1/operators", host, ownerHeaders, map[string]any{
		"username":    "cashier1",
		"password":    "cashierhash",
		"displayName": "Cashier One",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cashierID := resp["result"].(map[string]any)["operatorId"].(string)

	rec, _ = s.do(t, http.MethodPut, "/office/api/v1/settings", host,
		map[string]string{"X-Operator-Id": cashierID}, map[string]any{
			"loyaltyPercentage": 99,
		})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// 被拒的更新没有生效
	rec, resp = s.do(t, http.MethodGet, "/office/api/v1/settings", host, ownerHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10.0, resp["result"].(map[string]any)["loyaltyPercentage"])

	// owner 本人正常通过
	rec, _ = s.do(t, http.MethodDelete, "/office/api/v1/users/"+userID, host, ownerHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCashierFlow(t *testing.T) {
	s := newTestStack(t)
	host := "coffee.example.com"

	rec, resp := s.do(t, http.MethodPost, "/office/api/v1/merchants", "", nil, onboardBody())
	require.Equal(t, http.StatusOK, rec.Code)
	ownerID := resp["result"].(map[string]any)["owner"].(map[string]any)["operatorId"].(string)

	// 终端用户手机号登录（首次创建）
	rec, resp = s.do(t, http.MethodPost, "/user/api/v1/login", host, nil, map[string]any{
		"displayName": "Alice",
		"phoneNumber": "+15551230001",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	userResult := resp["result"].(map[string]any)
	require.Equal(t, true, userResult["created"])
	userID := userResult["userId"].(string)

	// 再次登录复用身份
	rec, resp = s.do(t, http.MethodPost, "/user/api/v1/login", host, nil, map[string]any{
		"displayName": "Someone Else",
		"phoneNumber": "+15551230001",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, resp["result"].(map[string]any)["created"])
	require.Equal(t, userID, resp["result"].(map[string]any)["userId"])

	// 收银台登录
	rec, _ = s.do(t, http.MethodPost, "/operator/api/v1/login", host, nil, map[string]any{
		"username": "owner",
		"password": "ownerhash",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/operator/api/v1/login", host, nil, map[string]any{
		"username": "owner",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	opHeaders := map[string]string{"X-Operator-Id": ownerID}

	// check-in 100 @10% → 余额 10
	rec, resp = s.do(t, http.MethodPost, "/operator/api/v1/transactions", host, opHeaders, map[string]any{
		"userId": userID,
		"type":   "check-in",
		"amount": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	txResult := resp["result"].(map[string]any)
	require.Equal(t, 10.0, txResult["cashback"])
	require.Equal(t, 10.0, txResult["newBalance"])

	// 超扣 422
	rec, _ = s.do(t, http.MethodPost, "/operator/api/v1/transactions", host, opHeaders, map[string]any{
		"userId":         userID,
		"type":           "check-out",
		"checkOutAmount": 25,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// 缺操作员头 401
	rec, _ = s.do(t, http.MethodPost, "/operator/api/v1/transactions", host, nil, map[string]any{
		"userId": userID,
		"type":   "check-in",
		"amount": 10,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// 尾号搜索
	rec, resp = s.do(t, http.MethodGet, "/operator/api/v1/users/search?last4=0001", host, opHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	matches := resp["result"].([]any)
	require.Len(t, matches, 1)
	require.Equal(t, 10.0, matches[0].(map[string]any)["balance"])

	// 仪表盘
	rec, resp = s.do(t, http.MethodGet, "/office/api/v1/dashboard", host, opHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := resp["result"].(map[string]any)
	require.Equal(t, 1.0, dash["userCount"])
	require.Equal(t, 1.0, dash["transactionCount"])
	require.Equal(t, 100.0, dash["checkInVolume"])
	// 登录 + 交易都会产生动态
	require.NotEmpty(t, dash["recentActivities"])

	// 用户侧查看自己的余额和历史
	rec, resp = s.do(t, http.MethodGet, "/user/api/v1/me", host, map[string]string{"X-User-Id": userID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := resp["result"].(map[string]any)
	require.Equal(t, 10.0, me["user"].(map[string]any)["balance"])
	require.Len(t, me["transactions"].([]any), 1)
}

func TestUsersExport(t *testing.T) {
	s := newTestStack(t)
	host := "coffee.example.com"

	rec, resp := s.do(t, http.MethodPost, "/office/api/v1/merchants", "", nil, onboardBody())
	require.Equal(t, http.StatusOK, rec.Code)
	ownerID := resp["result"].(map[string]any)["owner"].(map[string]any)["operatorId"].(string)

	rec, _ = s.do(t, http.MethodPost, "/user/api/v1/login", host, nil, map[string]any{
		"displayName": "Alice",
		"phoneNumber": "+15551230001",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/office/api/v1/users/export", nil)
	req.Host = host
	req.Header.Set("X-Operator-Id", ownerID)
	out := httptest.NewRecorder()
	s.router.ServeHTTP(out, req)

	require.Equal(t, http.StatusOK, out.Code)
	require.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		out.Header().Get("Content-Type"))
	require.NotZero(t, out.Body.Len())
}
