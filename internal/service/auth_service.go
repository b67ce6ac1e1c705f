package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/phone"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/store"
)

// AuthService 认证授权服务接口
type AuthService interface {
	// Register 注册用户；可同时创建其机构（注册者成为 owner）
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)

	// Login 邮箱+密码登录
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)

	// Refresh 刷新令牌轮换：旧 refresh 作废，签发新的一对
	Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error)

	// Logout 注销：作废用户的全部刷新令牌
	Logout(ctx context.Context, userID string) error
}

type authService struct {
	usersRepo    repository.UsersRepository
	personsRepo  repository.PersonsRepository
	agenciesRepo repository.AgenciesRepository
	tokens       *TokenManager
	kv           store.KV
	logger       *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(repos *repository.Repositories, tokens *TokenManager, kv store.KV, logger *zap.Logger) AuthService {
	return &authService{
		usersRepo:    repos.Users,
		personsRepo:  repos.Persons,
		agenciesRepo: repos.Agencies,
		tokens:       tokens,
		kv:           kv,
		logger:       logger,
	}
}

// minPasswordLen 密码最小长度
const minPasswordLen = 8

// RegisterRequest 注册请求
type RegisterRequest struct {
	Phone     string // 原始电话（成为用户的全局身份），必填
	Email     string // 必填
	Password  string // 明文，必填
	FirstName string // 必填
	LastName  string
	MiddleName string

	// 同时创建机构（可选）
	AgencyTitle string
	AgencySlug  string
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	AgencyID string `json:"agency_id,omitempty"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string
	Password string
	IP       string // 客户端 IP（用于日志）
}

// LoginResponse 登录/刷新响应
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	AgencyID     string    `json:"agency_id,omitempty"`
	Role         string    `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
}

// RefreshRequest 刷新请求
type RefreshRequest struct {
	UserID       string
	RefreshToken string
}

// Register 注册用户
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	v := domain.NewValidationError()

	normalized := phone.Normalize(req.Phone)
	if normalized == "" {
		v.Add("phone", "cannot be normalized to a valid phone number")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !validEmail(email) {
		v.Add("email", "is not a valid email address")
	}
	if len(req.Password) < minPasswordLen {
		v.Add("password", fmt.Sprintf("is shorter than %d characters", minPasswordLen))
	}
	if strings.TrimSpace(req.FirstName) == "" {
		v.Add("first_name", "cannot be blank")
	}
	if (req.AgencyTitle == "") != (req.AgencySlug == "") {
		v.Add("agency", "title and slug must be provided together")
	}
	if err := v.ErrOrNil(); err != nil {
		return nil, err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 电话即身份：用户也挂在全局 Person 上
	person, err := s.personsRepo.EnsurePerson(ctx, normalized)
	if err != nil {
		return nil, err
	}

	userID, err := s.usersRepo.CreateUser(ctx, &domain.User{
		PersonID:       person.PersonID,
		Email:          email,
		PasswordDigest: string(digest),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		MiddleName:     strings.TrimSpace(req.MiddleName),
		Role:           domain.UserRoleAgent,
	})
	if err != nil {
		return nil, err
	}

	resp := &RegisterResponse{UserID: userID}

	if req.AgencyTitle != "" {
		agencyID, err := s.agenciesRepo.CreateAgency(ctx, &domain.Agency{
			Title:       strings.TrimSpace(req.AgencyTitle),
			Slug:        strings.TrimSpace(req.AgencySlug),
			CreatedByID: userID,
		})
		if err != nil {
			return nil, err
		}
		if err := s.usersRepo.AddUserToAgency(ctx, userID, agencyID, true); err != nil {
			return nil, err
		}
		resp.AgencyID = agencyID
	}

	s.logger.Info("User registered",
		zap.String("user_id", userID),
		zap.String("agency_id", resp.AgencyID),
	)
	return resp, nil
}

// Login 邮箱+密码登录
func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.InvalidArgumentf("email and password are required")
	}

	user, err := s.usersRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Login failed: unknown email",
				zap.String("ip_address", req.IP),
			)
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrForbidden)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(req.Password)); err != nil {
		s.logger.Warn("Login failed: wrong password",
			zap.String("user_id", user.UserID),
			zap.String("ip_address", req.IP),
		)
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrForbidden)
	}

	agencyID, err := s.usersRepo.GetDefaultAgencyID(ctx, user.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	resp, err := s.issuePair(ctx, user, agencyID)
	if err != nil {
		return nil, err
	}

	if err := s.usersRepo.UpdateLastSignIn(ctx, user.UserID); err != nil {
		// 登录已成功，记录失败不影响结果
		s.logger.Warn("Failed to update last_sign_in_at",
			zap.String("user_id", user.UserID),
			zap.Error(err),
		)
	}

	s.logger.Info("User login successful",
		zap.String("user_id", user.UserID),
		zap.String("agency_id", agencyID),
		zap.String("role", string(user.Role)),
		zap.String("ip_address", req.IP),
	)
	return resp, nil
}

// Refresh 刷新令牌轮换
func (s *authService) Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error) {
	if req.UserID == "" || req.RefreshToken == "" {
		return nil, domain.InvalidArgumentf("user_id and refresh_token are required")
	}

	key := refreshKey(req.UserID, req.RefreshToken)
	agencyID, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, fmt.Errorf("refresh token is not valid: %w", domain.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	// 旧令牌立即作废（轮换）
	if err := s.kv.Del(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	user, err := s.usersRepo.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user, agencyID)
}

// Logout 作废用户的全部刷新令牌
func (s *authService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.InvalidArgumentf("user_id is required")
	}

	keys, err := s.kv.ScanKeys(ctx, refreshKey(userID, "*"))
	if err != nil {
		return fmt.Errorf("failed to scan refresh tokens: %w", err)
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	s.logger.Info("User logged out",
		zap.String("user_id", userID),
		zap.Int("revoked_tokens", len(keys)),
	)
	return nil
}

// issuePair 签发访问令牌+刷新令牌，刷新令牌落 KV（值为当前机构）
func (s *authService) issuePair(ctx context.Context, user *domain.User, agencyID string) (*LoginResponse, error) {
	access, expiresAt, err := s.tokens.IssueAccessToken(user.UserID, agencyID, string(user.Role))
	if err != nil {
		return nil, err
	}

	refresh := s.tokens.NewRefreshToken()
	if err := s.kv.Set(ctx, refreshKey(user.UserID, refresh), agencyID, s.tokens.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		UserID:       user.UserID,
		AgencyID:     agencyID,
		Role:         string(user.Role),
		FirstName:    user.FirstName,
		LastName:     user.LastName,
	}, nil
}

func refreshKey(userID, token string) string {
	return fmt.Sprintf("auth:refresh:%s:%s", userID, token)
}
