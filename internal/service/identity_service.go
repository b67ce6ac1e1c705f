package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/phone"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// IdentityService 身份解析服务接口。
// 所有按电话入库的路径（客户接待、业主录入、购房申请）都走这里：
// 规范化电话 → 校验 → 事务化三步 upsert → 冲突时一次有界重试。
type IdentityService interface {
	// ResolveCustomer 解析/创建 Person→Contact→Customer 链
	ResolveCustomer(ctx context.Context, req ResolveCustomerRequest) (*ResolveCustomerResponse, error)

	// ResolveContact 解析/创建 Person→Contact 链（不带角色记录）
	ResolveContact(ctx context.Context, req ResolveContactRequest) (*ResolveContactResponse, error)
}

type identityService struct {
	identityRepo repository.IdentityRepository
	logger       *zap.Logger
}

// NewIdentityService 创建 IdentityService 实例
func NewIdentityService(identityRepo repository.IdentityRepository, logger *zap.Logger) IdentityService {
	return &identityService{
		identityRepo: identityRepo,
		logger:       logger,
	}
}

// ResolveCustomerRequest 客户解析请求
type ResolveCustomerRequest struct {
	AgencyID string // 租户，必填
	Phone    string // 原始电话（任意书写形式），必填

	// Contact 属性包（nil = 该键未提供）
	FirstName   *string
	LastName    *string
	MiddleName  *string
	Email       *string
	ExtraPhones []string // 原始形式，服务内规范化
	Notes       *string

	// Customer 属性包
	ServiceType *string // 枚举成员；缺省用 DefaultServiceType
	UserID      *string // 关联的注册用户（可选）

	// DefaultServiceType 新建 Customer 时的业务类型缺省值
	DefaultServiceType domain.ServiceType
}

// ResolveCustomerResponse 客户解析响应
type ResolveCustomerResponse struct {
	Customer *domain.Customer `json:"customer"`
	Contact  *domain.Contact  `json:"contact"`
	Person   *domain.Person   `json:"person"`
}

// ResolveContactRequest 联系人解析请求（业主/购房申请路径）
type ResolveContactRequest struct {
	AgencyID string
	Phone    string

	FirstName   *string
	LastName    *string
	MiddleName  *string
	Email       *string
	ExtraPhones []string
	Notes       *string
}

// ResolveContactResponse 联系人解析响应
type ResolveContactResponse struct {
	Contact *domain.Contact `json:"contact"`
	Person  *domain.Person  `json:"person"`
}

// ResolveCustomer 解析/创建客户
func (s *identityService) ResolveCustomer(ctx context.Context, req ResolveCustomerRequest) (*ResolveCustomerResponse, error) {
	// 1. 规范化与校验
	normalized, contactPatch, err := s.prepare(req.AgencyID, req.Phone, req.FirstName, req.LastName, req.MiddleName, req.Email, req.ExtraPhones, req.Notes)
	if err != nil {
		return nil, err
	}

	defaultServiceType := req.DefaultServiceType
	if defaultServiceType == "" {
		defaultServiceType = domain.ServiceTypeBuy
	}
	if !defaultServiceType.Valid() {
		return nil, domain.InvalidArgumentf("invalid default service_type %q", defaultServiceType)
	}

	// Notes 只落在 Contact 上
	customerPatch := domain.CustomerPatch{
		UserID: req.UserID,
	}
	if req.ServiceType != nil {
		st := domain.ServiceType(strings.TrimSpace(*req.ServiceType))
		if !st.Valid() {
			v := domain.NewValidationError()
			v.Add("service_type", "is not a valid service type")
			return nil, v
		}
		customerPatch.ServiceType = &st
	}

	// 2. 事务化 upsert + 冲突时一次有界重试
	customer, err := s.identityRepo.ResolveCustomer(ctx, req.AgencyID, normalized, contactPatch, customerPatch, defaultServiceType)
	if errors.Is(err, domain.ErrUniquenessConflict) {
		s.logger.Warn("Customer resolution lost uniqueness race, retrying once",
			zap.String("agency_id", req.AgencyID),
			zap.String("normalized_phone", normalized),
		)
		customer, err = s.identityRepo.ResolveCustomer(ctx, req.AgencyID, normalized, contactPatch, customerPatch, defaultServiceType)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Customer resolved",
		zap.String("agency_id", req.AgencyID),
		zap.String("customer_id", customer.CustomerID),
		zap.String("contact_id", customer.ContactID),
		zap.String("service_type", string(customer.ServiceType)),
	)

	return &ResolveCustomerResponse{
		Customer: customer,
		Contact:  customer.Contact,
		Person:   customer.Person,
	}, nil
}

// ResolveContact 解析/创建联系人
func (s *identityService) ResolveContact(ctx context.Context, req ResolveContactRequest) (*ResolveContactResponse, error) {
	normalized, contactPatch, err := s.prepare(req.AgencyID, req.Phone, req.FirstName, req.LastName, req.MiddleName, req.Email, req.ExtraPhones, req.Notes)
	if err != nil {
		return nil, err
	}

	contact, person, err := s.identityRepo.ResolveContact(ctx, req.AgencyID, normalized, contactPatch)
	if errors.Is(err, domain.ErrUniquenessConflict) {
		s.logger.Warn("Contact resolution lost uniqueness race, retrying once",
			zap.String("agency_id", req.AgencyID),
			zap.String("normalized_phone", normalized),
		)
		contact, person, err = s.identityRepo.ResolveContact(ctx, req.AgencyID, normalized, contactPatch)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Contact resolved",
		zap.String("agency_id", req.AgencyID),
		zap.String("contact_id", contact.ContactID),
		zap.String("person_id", person.PersonID),
	)

	return &ResolveContactResponse{Contact: contact, Person: person}, nil
}

// prepare 公共的规范化与校验：租户、主电话、附加电话、邮箱
func (s *identityService) prepare(agencyID, rawPhone string, firstName, lastName, middleName, email *string, extraPhones []string, notes *string) (string, domain.ContactPatch, error) {
	if strings.TrimSpace(agencyID) == "" {
		return "", domain.ContactPatch{}, domain.InvalidArgumentf("agency_id is required")
	}

	// 主电话无法规范化 -> ErrInvalidArgument，不进字段级 ValidationError
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return "", domain.ContactPatch{}, domain.InvalidArgumentf("phone cannot be normalized")
	}

	v := domain.NewValidationError()

	if email != nil && strings.TrimSpace(*email) != "" && !validEmail(*email) {
		v.Add("email", "is not a valid email address")
	}

	patch := domain.ContactPatch{
		FirstName:  trimmed(firstName),
		LastName:   trimmed(lastName),
		MiddleName: trimmed(middleName),
		Email:      trimmed(email),
		Notes:      notes,
	}

	if extraPhones != nil {
		cleaned := phone.NormalizeList(extraPhones)
		// 主电话不重复进附加电话
		filtered := make([]string, 0, len(cleaned))
		for _, p := range cleaned {
			if p != normalized {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > domain.MaxExtraPhones {
			v.Add("extra_phones", "has too many entries")
		}
		patch.ExtraPhones = filtered
	}

	if v.HasErrors() {
		return "", domain.ContactPatch{}, v
	}
	return normalized, patch, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// validEmail 宽松的结构检查：正文@域名，域名带点
func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	dom := s[at+1:]
	if strings.HasPrefix(dom, ".") || strings.HasSuffix(dom, ".") {
		return false
	}
	return strings.Contains(dom, ".") && !strings.ContainsAny(s, " \t")
}
