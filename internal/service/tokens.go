package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// AccessClaims 访问令牌负载：用户 + 当前机构 + 角色
type AccessClaims struct {
	UserID   string `json:"uid"`
	AgencyID string `json:"agency_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager HS256 访问令牌签发/校验 + 刷新令牌生成
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager 创建 TokenManager
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// RefreshTTL 刷新令牌有效期（KV 存储的 TTL 用）
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccessToken 签发访问令牌
func (m *TokenManager) IssueAccessToken(userID, agencyID, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.accessTTL)

	claims := AccessClaims{
		UserID:   userID,
		AgencyID: agencyID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseAccessToken 校验并解出负载；无效/过期返回 domain.ErrForbidden
func (m *TokenManager) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", domain.ErrForbidden)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid access token: %w", domain.ErrForbidden)
	}
	return claims, nil
}

// NewRefreshToken 生成不透明刷新令牌（服务端存储，客户端只回传）
func (m *TokenManager) NewRefreshToken() string {
	return uuid.NewString()
}
