package domain

import "errors"

// Sentinel errors for common failure scenarios.
// 调用方使用 errors.Is 分支；存储层错误统一包装到 ErrStore 上，
// 原始原因只进日志，不暴露给客户端。
var (
	// Not found
	ErrMerchantNotFound    = errors.New("merchant not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrOperatorNotFound    = errors.New("operator not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Conflict（唯一性冲突）
	ErrDomainTaken   = errors.New("domain already registered")
	ErrUsernameTaken = errors.New("username already taken")

	// Invalid request（请求形状错误）
	ErrInvalidRequest = errors.New("invalid request")

	// 登录凭证不匹配
	ErrInvalidCredentials = errors.New("invalid credentials")

	// check-out 超过当前余额
	ErrInsufficientBalance = errors.New("insufficient balance")

	// 存储层失败（包装原始错误）
	ErrStore = errors.New("store error")

	// TenantRegistry 配置缺失（tenantID 为空或模板未设置）
	ErrRegistryConfig = errors.New("tenant registry misconfigured")
)

// IsNotFound 判断是否为"实体不存在"类错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMerchantNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrOperatorNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsConflict 判断是否为唯一性冲突
func IsConflict(err error) bool {
	return errors.Is(err, ErrDomainTaken) || errors.Is(err, ErrUsernameTaken)
}
