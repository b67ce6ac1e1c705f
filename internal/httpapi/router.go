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

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handlers 路由注册需要的全部 handler
type Handlers struct {
	Auth        *AuthHandler
	Contacts    *ContactHandler
	Customers   *CustomerHandler
	Properties  *PropertyHandler
	Owners      *OwnerHandler
	BuyRequests *BuyRequestHandler
}

// RegisterRoutes 注册全部路由；认证接口之外的机构侧接口都挂 auth 中间件
func (r *Router) RegisterRoutes(h Handlers, auth *AuthMiddleware) {
	// 认证
	r.Handle("/auth/api/v1/register", methodOnly(http.MethodPost, h.Auth.Register))
	r.Handle("/auth/api/v1/login", methodOnly(http.MethodPost, h.Auth.Login))
	r.Handle("/auth/api/v1/refresh", methodOnly(http.MethodPost, h.Auth.Refresh))
	r.Handle("/auth/api/v1/logout", auth.Require(methodOnly(http.MethodPost, h.Auth.Logout)))

	// 联系人
	r.Handle("/api/v1/contacts", auth.Require(h.Contacts.Collection))
	r.Handle("/api/v1/contacts/export", auth.Require(h.Contacts.Export))
	r.Handle("/api/v1/contacts/", auth.Require(h.Contacts.Item))

	// 客户
	r.Handle("/api/v1/customers", auth.Require(h.Customers.Collection))
	r.Handle("/api/v1/customers/", auth.Require(h.Customers.Item))

	// 房产（业主/照片是子资源）
	r.Handle("/api/v1/properties", auth.Require(h.Properties.Collection))
	r.Handle("/api/v1/properties/", auth.Require(h.Properties.Item))
	r.Handle("/api/v1/owners/", auth.Require(h.Owners.Item))

	// 购房申请：机构侧
	r.Handle("/api/v1/buy-requests", auth.Require(h.BuyRequests.Collection))
	r.Handle("/api/v1/buy-requests/", auth.Require(h.BuyRequests.Item))

	// 购房申请：游客公开路径（不要求认证）
	r.Handle("/public/api/v1/agencies/", h.BuyRequests.PublicSubmit)

	// 健康检查
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

func methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
