package httpapi

import (
	"net/http"

	"yankey-ledger/internal/domain"
	"yankey-ledger/internal/service"
)

// tenantResolver 从请求解析出当前商户（域名路由）
// 优先取 X-Merchant-Domain 头（反向代理改写过 Host 时使用），否则取 Host
type tenantResolver struct {
	merchants service.MerchantService
}

func (t *tenantResolver) merchantFromReq(w http.ResponseWriter, r *http.Request) (*domain.Merchant, bool) {
	host := r.Header.Get("X-Merchant-Domain")
	if host == "" {
		host = r.Host
	}

	m, err := t.merchants.ResolveByDomain(r.Context(), host)
	if err != nil {
		if domain.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, Fail("unknown merchant domain"))
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return nil, false
	}
	return m, true
}

// operatorIDFromReq 操作员身份：认证层校验后通过头部传入
func operatorIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	operatorID := r.Header.Get("X-Operator-Id")
	if operatorID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("operator ID is required"))
		return "", false
	}
	return operatorID, true
}

// userIDFromReq 终端用户身份：认证层校验后通过头部传入
func userIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("user ID is required"))
		return "", false
	}
	return userID, true
}
