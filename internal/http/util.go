package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"yankey-ledger/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeDomainError 把领域错误映射到 HTTP 状态码
// 存储层错误只回"internal error"，原始原因进日志
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, Fail(err.Error()))
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case domain.IsConflict(err):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, Fail(err.Error()))
	default:
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

// ============================================
// JSON 视图（领域模型 -> 前端字段）
// ============================================

func merchantView(m *domain.Merchant) map[string]any {
	return map[string]any{
		"merchantId":        m.MerchantID,
		"name":              m.Name,
		"domain":            m.Domain,
		"loyaltyPercentage": m.LoyaltyPercentage,
		"createdAt":         m.CreatedAt.Format(time.RFC3339),
	}
}

func userView(u *domain.User) map[string]any {
	view := map[string]any{
		"userId":      u.UserID,
		"displayName": u.DisplayName,
		"phoneNumber": u.PhoneNumber,
		"createdAt":   u.CreatedAt.Format(time.RFC3339),
	}
	if u.Birthday != "" {
		view["birthday"] = u.Birthday
	}
	if u.TelegramID != "" {
		view["telegramId"] = u.TelegramID
	}
	return view
}

func operatorView(op *domain.Operator) map[string]any {
	// 密码哈希不进响应
	return map[string]any{
		"operatorId":  op.OperatorID,
		"username":    op.Username,
		"displayName": op.DisplayName,
		"role":        op.Role,
		"createdAt":   op.CreatedAt.Format(time.RFC3339),
	}
}

func transactionView(t *domain.Transaction) map[string]any {
	return map[string]any{
		"transactionId":     t.TransactionID,
		"type":              t.Type,
		"amount":            t.Amount,
		"checkOutAmount":    t.CheckOutAmount,
		"loyaltyPercentage": t.LoyaltyPercentage,
		"cashback":          t.Cashback(),
		"userId":            t.UserID,
		"operatorId":        t.OperatorID,
		"createdAt":         t.CreatedAt.Format(time.RFC3339),
	}
}

func transactionViews(txs []*domain.Transaction) []map[string]any {
	out := make([]map[string]any, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionView(t))
	}
	return out
}

func activityView(a *domain.Activity) map[string]any {
	return map[string]any{
		"activityId":  a.ActivityID,
		"title":       a.Title,
		"description": a.Description,
		"createdAt":   a.CreatedAt.Format(time.RFC3339),
	}
}
