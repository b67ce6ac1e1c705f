package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// TenantContext 认证后的请求上下文：谁在哪个机构里以什么角色操作
type TenantContext struct {
	UserID   string
	AgencyID string
	Role     string
}

type tenantCtxKey struct{}

// WithTenant 把 TenantContext 挂到请求上下文（测试用）
func WithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tc)
}

// TenantFrom 取认证上下文；没有认证返回 false
func TenantFrom(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(tenantCtxKey{}).(TenantContext)
	return tc, ok
}

// AuthMiddleware Bearer 访问令牌校验
type AuthMiddleware struct {
	tokens *service.TokenManager
}

func NewAuthMiddleware(tokens *service.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Require 令牌无效直接 401；有效时把 TenantContext 注入请求上下文
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, Result[any]{
				Code: ResultTokenExpired, Type: "error", Message: "missing access token",
			})
			return
		}

		claims, err := m.tokens.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Result[any]{
				Code: ResultTokenExpired, Type: "error", Message: "access token is not valid",
			})
			return
		}

		ctx := WithTenant(r.Context(), TenantContext{
			UserID:   claims.UserID,
			AgencyID: claims.AgencyID,
			Role:     claims.Role,
		})
		next(w, r.WithContext(ctx))
	}
}

// requireTenant 取认证上下文并要求当前机构非空
func requireTenant(w http.ResponseWriter, r *http.Request) (TenantContext, bool) {
	tc, ok := TenantFrom(r.Context())
	if !ok || tc.UserID == "" {
		writeJSON(w, http.StatusUnauthorized, Result[any]{
			Code: ResultTokenExpired, Type: "error", Message: "authentication required",
		})
		return TenantContext{}, false
	}
	if tc.AgencyID == "" {
		writeJSON(w, http.StatusForbidden, Fail("user has no agency"))
		return TenantContext{}, false
	}
	return tc, true
}
