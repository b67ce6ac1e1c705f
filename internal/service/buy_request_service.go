package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// BuyRequestService 购房申请服务接口。
// 游客和注册用户都按电话提交；提交路径用 IdentityService.ResolveCustomer
// 保证 Person→Contact→Customer 链存在，再落申请记录。
type BuyRequestService interface {
	// SubmitBuyRequest 提交申请（游客或认证用户）
	SubmitBuyRequest(ctx context.Context, req SubmitBuyRequestRequest) (*repository.BuyRequestView, error)

	// GetBuyRequest 获取单条申请
	GetBuyRequest(ctx context.Context, tenantID, requestID string) (*repository.BuyRequestView, error)

	// ListBuyRequests 列表（过滤/分页）
	ListBuyRequests(ctx context.Context, req ListBuyRequestsRequest) (*ListBuyRequestsResponse, error)

	// UpdateBuyRequest 状态流转/回复
	UpdateBuyRequest(ctx context.Context, req UpdateBuyRequestRequest) (*repository.BuyRequestView, error)

	// DeleteBuyRequest 软删除
	DeleteBuyRequest(ctx context.Context, tenantID, requestID string) error
}

type buyRequestService struct {
	identity        IdentityService
	buyRequestsRepo repository.BuyRequestsRepository
	limits          *LimitChecker
	logger          *zap.Logger
}

// NewBuyRequestService 创建 BuyRequestService 实例
func NewBuyRequestService(identity IdentityService, buyRequestsRepo repository.BuyRequestsRepository, limits *LimitChecker, logger *zap.Logger) BuyRequestService {
	return &buyRequestService{
		identity:        identity,
		buyRequestsRepo: buyRequestsRepo,
		limits:          limits,
		logger:          logger,
	}
}

// SubmitBuyRequestRequest 提交申请请求
type SubmitBuyRequestRequest struct {
	AgencyID   string
	PropertyID string

	Phone     string // 原始电话，必填
	FirstName *string
	LastName  *string
	Email     *string

	Comment string // 申请备注，≤1000 字符

	UserID *string // 认证提交者（游客为 nil）
}

// ListBuyRequestsRequest 申请列表请求
type ListBuyRequestsRequest struct {
	AgencyID       string
	PropertyID     string // 空 = 全部房产
	Status         string // 枚举成员或空
	IncludeDeleted bool
	Page           int
	Size           int
}

// ListBuyRequestsResponse 申请列表响应
type ListBuyRequestsResponse struct {
	Requests []*repository.BuyRequestView `json:"requests"`
	Total    int                          `json:"total"`
	Page     int                          `json:"page"`
	Size     int                          `json:"size"`
}

// UpdateBuyRequestRequest 申请更新请求（nil = 该键未提供）
type UpdateBuyRequestRequest struct {
	AgencyID  string
	RequestID string

	Status          *string // 枚举成员；只做成员检查，不限制流转路径
	ResponseMessage *string
}

// SubmitBuyRequest 提交购房申请
func (s *buyRequestService) SubmitBuyRequest(ctx context.Context, req SubmitBuyRequestRequest) (*repository.BuyRequestView, error) {
	if req.AgencyID == "" || req.PropertyID == "" {
		return nil, domain.InvalidArgumentf("agency_id and property_id are required")
	}

	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > domain.MaxBuyRequestTextLen {
		v := domain.NewValidationError()
		v.Add("comment", fmt.Sprintf("is longer than %d characters", domain.MaxBuyRequestTextLen))
		return nil, v
	}

	// 1. 套餐限额
	if err := s.limits.EnsureBuyRequestQuota(ctx, req.AgencyID); err != nil {
		return nil, err
	}

	// 2. 电话即身份：保证 Person→Contact→Customer 链存在
	resolved, err := s.identity.ResolveCustomer(ctx, ResolveCustomerRequest{
		AgencyID:           req.AgencyID,
		Phone:              req.Phone,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		UserID:             req.UserID,
		DefaultServiceType: domain.ServiceTypeBuy,
	})
	if err != nil {
		return nil, err
	}

	// 3. 落申请记录（property 归属校验在 Repository 的 INSERT...SELECT 里完成）
	record := &domain.PropertyBuyRequest{
		PropertyID: req.PropertyID,
		AgencyID:   req.AgencyID,
		ContactID:  resolved.Contact.ContactID,
		CustomerID: resolved.Customer.CustomerID,
		Status:     domain.BuyRequestPending,
		Comment:    comment,
	}
	if req.UserID != nil {
		record.UserID = *req.UserID
	}

	requestID, err := s.buyRequestsRepo.CreateBuyRequest(ctx, req.AgencyID, record)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Buy request submitted",
		zap.String("agency_id", req.AgencyID),
		zap.String("property_id", req.PropertyID),
		zap.String("request_id", requestID),
		zap.String("contact_id", resolved.Contact.ContactID),
		zap.Bool("authenticated", req.UserID != nil),
	)

	return s.buyRequestsRepo.GetBuyRequest(ctx, req.AgencyID, requestID)
}

// GetBuyRequest 获取单条申请
func (s *buyRequestService) GetBuyRequest(ctx context.Context, tenantID, requestID string) (*repository.BuyRequestView, error) {
	if tenantID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}
	return s.buyRequestsRepo.GetBuyRequest(ctx, tenantID, requestID)
}

// ListBuyRequests 申请列表
func (s *buyRequestService) ListBuyRequests(ctx context.Context, req ListBuyRequestsRequest) (*ListBuyRequestsResponse, error) {
	if req.AgencyID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}

	if req.Status != "" && !domain.BuyRequestStatus(req.Status).Valid() {
		v := domain.NewValidationError()
		v.Add("status", "is not a valid buy request status")
		return nil, v
	}

	page, size := normalizePage(req.Page, req.Size)

	requests, total, err := s.buyRequestsRepo.ListBuyRequests(ctx, req.AgencyID, repository.BuyRequestFilters{
		PropertyID:     req.PropertyID,
		Status:         req.Status,
		IncludeDeleted: req.IncludeDeleted,
	}, page, size)
	if err != nil {
		return nil, err
	}

	return &ListBuyRequestsResponse{
		Requests: requests,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// UpdateBuyRequest 状态流转/回复。
// 状态只做枚举成员检查：任意成员之间都允许切换（没有状态机）。
func (s *buyRequestService) UpdateBuyRequest(ctx context.Context, req UpdateBuyRequestRequest) (*repository.BuyRequestView, error) {
	if req.AgencyID == "" || req.RequestID == "" {
		return nil, domain.InvalidArgumentf("agency_id and request_id are required")
	}

	v := domain.NewValidationError()
	patch := repository.BuyRequestPatch{}

	if req.Status != nil {
		st := domain.BuyRequestStatus(strings.TrimSpace(*req.Status))
		if !st.Valid() {
			v.Add("status", "is not a valid buy request status")
		}
		patch.Status = &st
	}
	if req.ResponseMessage != nil {
		msg := strings.TrimSpace(*req.ResponseMessage)
		if utf8.RuneCountInString(msg) > domain.MaxBuyRequestTextLen {
			v.Add("response_message", fmt.Sprintf("is longer than %d characters", domain.MaxBuyRequestTextLen))
		}
		patch.ResponseMessage = &msg
	}

	if err := v.ErrOrNil(); err != nil {
		return nil, err
	}

	if err := s.buyRequestsRepo.UpdateBuyRequest(ctx, req.AgencyID, req.RequestID, patch); err != nil {
		return nil, err
	}
	return s.buyRequestsRepo.GetBuyRequest(ctx, req.AgencyID, req.RequestID)
}

// DeleteBuyRequest 软删除
func (s *buyRequestService) DeleteBuyRequest(ctx context.Context, tenantID, requestID string) error {
	if tenantID == "" || requestID == "" {
		return domain.InvalidArgumentf("agency_id and request_id are required")
	}
	if err := s.buyRequestsRepo.SoftDeleteBuyRequest(ctx, tenantID, requestID); err != nil {
		return err
	}
	s.logger.Info("Buy request soft deleted",
		zap.String("agency_id", tenantID),
		zap.String("request_id", requestID),
	)
	return nil
}
