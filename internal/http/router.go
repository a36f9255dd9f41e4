package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterOfficeRoutes 商户后台路由（owner 侧）
func (r *Router) RegisterOfficeRoutes(h *OfficeHandler) {
	r.HandleHandler("/office/api/v1/", h)
}

// RegisterOperatorRoutes 收银台路由（operator 侧）
func (r *Router) RegisterOperatorRoutes(h *OperatorHandler) {
	r.HandleHandler("/operator/api/v1/", h)
}

// RegisterUserRoutes 终端用户路由
func (r *Router) RegisterUserRoutes(h *UserHandler) {
	r.HandleHandler("/user/api/v1/", h)
}

// RegisterDoctorRoutes 诊断路由
func (r *Router) RegisterDoctorRoutes(d *DoctorHandler) {
	r.Handle("/healthz", d.HealthCheck)
}
