package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/service"
)

// UserHandler 终端用户 Handler（user 侧）
// 手机号登录（不存在则创建）、查自己的余额和历史、改资料
type UserHandler struct {
	merchants service.MerchantService
	users     service.UserService
	tenants   *tenantResolver
	logger    *zap.Logger
}

// NewUserHandler 创建终端用户 Handler
func NewUserHandler(merchants service.MerchantService, users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		merchants: merchants,
		users:     users,
		tenants:   &tenantResolver{merchants: merchants},
		logger:    logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/user/api/v1/login" && r.Method == http.MethodPost:
		h.Login(w, r)
	case path == "/user/api/v1/me" && r.Method == http.MethodGet:
		h.Me(w, r)
	case path == "/user/api/v1/me" && r.Method == http.MethodPut:
		h.UpdateMe(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Login 手机号登录；首次登录即注册
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		DisplayName string `json:"displayName"`
		PhoneNumber string `json:"phoneNumber"`
		Birthday    string `json:"birthday"`
		TelegramID  string `json:"telegramId"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	u, created, err := h.users.LoginOrCreate(r.Context(), merchant.MerchantID, &domain.User{
		DisplayName: body.DisplayName,
		PhoneNumber: body.PhoneNumber,
		Birthday:    body.Birthday,
		TelegramID:  body.TelegramID,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	view := userView(u)
	view["created"] = created
	writeJSON(w, http.StatusOK, Ok(view))
}

// Me 自己的资料 + 余额 + 交易历史
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := userIDFromReq(w, r)
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

// UpdateMe 更新自己的资料
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := userIDFromReq(w, r)
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
