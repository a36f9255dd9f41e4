package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"yankey-ledger/internal/service"
)

// OperatorHandler 收银台 Handler（operator 侧）
// 登录、按尾号找用户、记账、自己的经手记录
type OperatorHandler struct {
	merchants service.MerchantService
	operators service.OperatorService
	users     service.UserService
	ledger    service.LedgerService
	tenants   *tenantResolver
	logger    *zap.Logger
}

// NewOperatorHandler 创建收银台 Handler
func NewOperatorHandler(
	merchants service.MerchantService,
	operators service.OperatorService,
	users service.UserService,
	ledger service.LedgerService,
	logger *zap.Logger,
) *OperatorHandler {
	return &OperatorHandler{
		merchants: merchants,
		operators: operators,
		users:     users,
		ledger:    ledger,
		tenants:   &tenantResolver{merchants: merchants},
		logger:    logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *OperatorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/operator/api/v1/login" && r.Method == http.MethodPost:
		h.Login(w, r)
	case path == "/operator/api/v1/users/search" && r.Method == http.MethodGet:
		h.SearchUsers(w, r)
	case path == "/operator/api/v1/transactions" && r.Method == http.MethodPost:
		h.RecordTransaction(w, r)
	case path == "/operator/api/v1/transactions" && r.Method == http.MethodGet:
		h.MyTransactions(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Login 收银台登录
func (h *OperatorHandler) Login(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, Ok(operatorView(op)))
}

// SearchUsers 按手机尾号 4 位找用户（带余额）
func (h *OperatorHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return
	}
	if _, ok := operatorIDFromReq(w, r); !ok {
		return
	}

	last4 := r.URL.Query().Get("last4")
	users, err := h.users.SearchByPhoneLast4(r.Context(), merchant.MerchantID, last4)
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
	writeJSON(w, http.StatusOK, Ok(items))
}

// RecordTransaction 记一笔 check-in / check-out
func (h *OperatorHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return
	}
	operatorID, ok := operatorIDFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		UserID         string  `json:"userId"`
		Type           string  `json:"type"`
		Amount         float64 `json:"amount"`
		CheckOutAmount float64 `json:"checkOutAmount"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	resp, err := h.ledger.RecordTransaction(r.Context(), service.RecordTransactionRequest{
		TenantID:       merchant.MerchantID,
		OperatorID:     operatorID,
		UserID:         body.UserID,
		Type:           body.Type,
		Amount:         body.Amount,
		CheckOutAmount: body.CheckOutAmount,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"transaction": transactionView(resp.Transaction),
		"cashback":    resp.Cashback,
		"newBalance":  resp.NewBalance,
	}))
}

// MyTransactions 当前操作员经手的交易
func (h *OperatorHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	merchant, ok := h.tenants.merchantFromReq(w, r)
	if !ok {
		return
	}
	operatorID, ok := operatorIDFromReq(w, r)
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
