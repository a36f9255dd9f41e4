package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/service"
)

// OfficeHandler 商户后台 Handler（owner 侧）
// 入驻、设置、仪表盘、操作员管理、用户管理、导出
type OfficeHandler struct {
	merchants service.MerchantService
	operators service.OperatorService
	users     service.UserService
	ledger    service.LedgerService
	dashboard service.DashboardService
	tenants   *tenantResolver
	logger    *zap.Logger
}

// NewOfficeHandler 创建商户后台 Handler
func NewOfficeHandler(
	merchants service.MerchantService,
	operators service.OperatorService,
	users service.UserService,
	ledger service.LedgerService,
	dashboard service.DashboardService,
	logger *zap.Logger,
) *OfficeHandler {
	return &OfficeHandler{
		merchants: merchants,
		operators: operators,
		users:     users,
		ledger:    ledger,
		dashboard: dashboard,
		tenants:   &tenantResolver{merchants: merchants},
		logger:    logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *OfficeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	// Onboard 商户入驻（不经过域名路由：此时商户还不存在）
	case path == "/office/api/v1/merchants" && r.Method == http.MethodPost:
		h.Onboard(w, r)
	// Login
	case path == "/office/api/v1/login" && r.Method == http.MethodPost:
		h.Login(w, r)
	// Dashboard
	case path == "/office/api/v1/dashboard" && r.Method == http.MethodGet:
		h.Dashboard(w, r)
	// Activities
	case path == "/office/api/v1/activities" && r.Method == http.MethodGet:
		h.Activities(w, r)
	// Settings
	case path == "/office/api/v1/settings" && r.Method == http.MethodGet:
		h.GetSettings(w, r)
	case path == "/office/api/v1/settings" && r.Method == http.MethodPut:
		h.UpdateSettings(w, r)
	// Operators
	case path == "/office/api/v1/operators" && r.Method == http.MethodGet:
		h.ListOperators(w, r)
	case path == "/office/api/v1/operators" && r.Method == http.MethodPost:
		h.CreateOperator(w, r)
	case strings.HasSuffix(path, "/transactions") && strings.HasPrefix(path, "/office/api/v1/operators/") && r.Method == http.MethodGet:
		operatorID := strings.TrimSuffix(strings.TrimPrefix(path, "/office/api/v1/operators/"), "/transactions")
		if operatorID != "" && !strings.Contains(operatorID, "/") {
			h.OperatorTransactions(w, r, operatorID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/office/api/v1/operators/"):
		operatorID := strings.TrimPrefix(path, "/office/api/v1/operators/")
		if operatorID == "" || strings.Contains(operatorID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetOperator(w, r, operatorID)
		case http.MethodPut:
			h.UpdateOperator(w, r, operatorID)
		case http.MethodDelete:
			h.DeleteOperator(w, r, operatorID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	// Users
	case path == "/office/api/v1/users" && r.Method == http.MethodGet:
		h.ListUsers(w, r)
	case path == "/office/api/v1/users/export" && r.Method == http.MethodGet:
		h.ExportUsers(w, r)
	case strings.HasSuffix(path, "/transactions") && strings.HasPrefix(path, "/office/api/v1/users/") && r.Method == http.MethodGet:
		userID := strings.TrimSuffix(strings.TrimPrefix(path, "/office/api/v1/users/"), "/transactions")
		if userID != "" && !strings.Contains(userID, "/") {
			h.UserTransactions(w, r, userID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/office/api/v1/users/"):
		userID := strings.TrimPrefix(path, "/office/api/v1/users/")
		if userID == "" || strings.Contains(userID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetUser(w, r, userID)
		case http.MethodPut:
			h.UpdateUser(w, r, userID)
		case http.MethodDelete:
			h.DeleteUser(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// requireOwner 商户后台鉴权：解析商户 + 校验 X-Operator-Id 对应操作员的 owner 角色
// 入驻和登录之外的所有后台路由都要先过这里
func (h *OfficeHandler) requireOwner(w http.ResponseWriter, r *http.Request) (*domain.Merchant, bool) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return nil, false
	}
	operatorID, ok := operatorIDFromReq(w, r)
	if !ok {
		return nil, false
	}
	op, err := h.operators.GetOperator(r.Context(), merchant.MerchantID, operatorID)
	if err != nil {
		if domain.IsNotFound(err) {
			writeJSON(w, http.StatusUnauthorized, Fail("unknown operator"))
			return nil, false
		}
		writeDomainError(w, h.logger, err)
		return nil, false
	}
	if op.Role != domain.RoleOwner {
		writeJSON(w, http.StatusForbidden, Fail("owner role required"))
		return nil, false
	}
	return merchant, true
}

// ============================================
// Onboard 商户入驻
// ============================================

func (h *OfficeHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name              string  `json:"name"`
		Domain            string  `json:"domain"`
		LoyaltyPercentage float64 `json:"loyaltyPercentage"`
		TelegramKey       string  `json:"telegramKey"`
		AdminUsername     string  `json:"adminUsername"`
		AdminPassword     string  `json:"adminPassword"`
		AdminDisplayName  string  `json:"adminDisplayName"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	resp, err := h.merchants.Onboard(r.Context(), service.OnboardMerchantRequest{
		Name:              body.Name,
		Domain:            body.Domain,
		LoyaltyPercentage: body.LoyaltyPercentage,
		TelegramKey:       body.TelegramKey,
		AdminUsername:     body.AdminUsername,
		AdminPassword:     body.AdminPassword,
		AdminDisplayName:  body.AdminDisplayName,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"merchant": merchantView(resp.Merchant),
		"owner":    operatorView(resp.Owner),
	}))
}

// ============================================
// Login 后台登录
// ============================================

func (h *OfficeHandler) Login(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"` // 客户端已哈希
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	op, err := h.operators.Login(r.Context(), merchant.MerchantID, body.Username, body.Password)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if op.Role != domain.RoleOwner {
		writeJSON(w, http.StatusForbidden, Fail("owner role required"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(operatorView(op)))
}

// ============================================
// Dashboard 仪表盘
// ============================================

func (h *OfficeHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	dash, err := h.dashboard.Overview(r.Context(), merchant.MerchantID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	activities := make([]map[string]any, 0, len(dash.RecentActivities))
	for _, a := range dash.RecentActivities {
		activities = append(activities, activityView(a))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"userCount":        dash.UserCount,
		"transactionCount": dash.Totals.TransactionCount,
		"checkInVolume":    dash.Totals.CheckInVolume,
		"cashbackAccrued":  dash.Totals.CashbackAccrued,
		"checkOutVolume":   dash.Totals.CheckOutVolume,
		"recentActivities": activities,
	}))
}

func (h *OfficeHandler) Activities(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 5)
	items, err := h.dashboard.RecentActivities(r.Context(), merchant.MerchantID, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	views := make([]map[string]any, 0, len(items))
	for _, a := range items {
		views = append(views, activityView(a))
	}
	writeJSON(w, http.StatusOK, Ok(views))
}

// ============================================
// Settings 商户设置
// ============================================

func (h *OfficeHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	settings, err := h.merchants.GetSettings(r.Context(), merchant.MerchantID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(settings))
}

func (h *OfficeHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var body struct {
		Name              *string  `json:"name"`
		LoyaltyPercentage *float64 `json:"loyaltyPercentage"`
		TelegramKey       *string  `json:"telegramKey"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	settings, err := h.merchants.UpdateSettings(r.Context(), merchant.MerchantID, service.UpdateMerchantSettingsRequest{
		Name:              body.Name,
		LoyaltyPercentage: body.LoyaltyPercentage,
		TelegramKey:       body.TelegramKey,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(settings))
}

// ============================================
// Operators 操作员管理
// ============================================

func (h *OfficeHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	ops, pagination, err := h.operators.ListOperators(r.Context(), merchant.MerchantID, page, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		items = append(items, operatorView(op))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items":      items,
		"pagination": pagination,
	}))
}

func (h *OfficeHandler) GetOperator(w http.ResponseWriter, r *http.Request, operatorID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	op, err := h.operators.GetOperator(r.Context(), merchant.MerchantID, operatorID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(operatorView(op)))
}

func (h *OfficeHandler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var body struct {
		Username    string `json:"username"`
		Password    string `json:"password"` // 客户端已哈希
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	op, err := h.operators.CreateOperator(r.Context(), merchant.MerchantID, &domain.Operator{
		Username:    body.Username,
		Password:    body.Password,
		DisplayName: body.DisplayName,
		Role:        body.Role,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(operatorView(op)))
}

func (h *OfficeHandler) UpdateOperator(w http.ResponseWriter, r *http.Request, operatorID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var body struct {
		DisplayName *string `json:"displayName"`
		Password    *string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	op, err := h.operators.UpdateOperator(r.Context(), merchant.MerchantID, operatorID, domain.OperatorUpdate{
		DisplayName: body.DisplayName,
		Password:    body.Password,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(operatorView(op)))
}

func (h *OfficeHandler) DeleteOperator(w http.ResponseWriter, r *http.Request, operatorID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.operators.DeleteOperator(r.Context(), merchant.MerchantID, operatorID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": operatorID}))
}

func (h *OfficeHandler) OperatorTransactions(w http.ResponseWriter, r *http.Request, operatorID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	txs, pagination, err := h.ledger.OperatorHistory(r.Context(), merchant.MerchantID, operatorID, page, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items":      transactionViews(txs),
		"pagination": pagination,
	}))
}

// ============================================
// Users 用户管理
// ============================================

func (h *OfficeHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	users, pagination, err := h.users.ListUsers(r.Context(), merchant.MerchantID, page, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(users))
	for _, u := range users {
		view := userView(u.User)
		view["balance"] = u.Balance
		items = append(items, view)
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items":      items,
		"pagination": pagination,
	}))
}

func (h *OfficeHandler) GetUser(w http.ResponseWriter, r *http.Request, userID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	detail, err := h.users.GetUser(r.Context(), merchant.MerchantID, userID, page, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	view := userView(detail.User)
	view["balance"] = detail.Balance
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"user":         view,
		"transactions": transactionViews(detail.Transactions),
		"pagination":   detail.Pagination,
	}))
}

func (h *OfficeHandler) UpdateUser(w http.ResponseWriter, r *http.Request, userID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var body struct {
		DisplayName *string `json:"displayName"`
		PhoneNumber *string `json:"phoneNumber"`
		Birthday    *string `json:"birthday"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	u, err := h.users.UpdateUser(r.Context(), merchant.MerchantID, userID, domain.UserUpdate{
		DisplayName: body.DisplayName,
		PhoneNumber: body.PhoneNumber,
		Birthday:    body.Birthday,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(userView(u)))
}

func (h *OfficeHandler) DeleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), merchant.MerchantID, userID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": userID}))
}

func (h *OfficeHandler) UserTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	txs, pagination, err := h.ledger.UserHistory(r.Context(), merchant.MerchantID, userID, page, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items":      transactionViews(txs),
		"pagination": pagination,
	}))
}

// ExportUsers 导出全部用户（Excel）
func (h *OfficeHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	// 分页拉全量
	all := []*service.UserWithBalance{}
	page := 1
	for {
		users, pagination, err := h.users.ListUsers(r.Context(), merchant.MerchantID, page, 100)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		all = append(all, users...)
		if page >= pagination.TotalPages {
			break
		}
		page++
	}

	data, err := GenerateUsersExport(all)
	if err != nil {
		h.logger.Error("users export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="users-%s.xlsx"`, merchant.Domain))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
