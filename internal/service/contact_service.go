package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/phone"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// ContactService 联系人服务接口
type ContactService interface {
	// GetContact 获取单个联系人
	GetContact(ctx context.Context, tenantID, contactID string) (*repository.ContactView, error)

	// ListContacts 列表（搜索/电话过滤/分页）
	ListContacts(ctx context.Context, req ListContactsRequest) (*ListContactsResponse, error)

	// UpdateContact 更新可编辑字段；Phone 变更会改写全局 Person 的主电话
	UpdateContact(ctx context.Context, req UpdateContactRequest) (*repository.ContactView, error)

	// DeleteContact 软删除（仍被活跃角色记录引用时拒绝）
	DeleteContact(ctx context.Context, tenantID, contactID string) error

	// RestoreContact 撤销软删除
	RestoreContact(ctx context.Context, tenantID, contactID string) error

	// ExportContacts 导出为 XLSX
	ExportContacts(ctx context.Context, tenantID string) ([]byte, error)
}

type contactService struct {
	contactsRepo repository.ContactsRepository
	logger       *zap.Logger
}

// NewContactService 创建 ContactService 实例
func NewContactService(contactsRepo repository.ContactsRepository, logger *zap.Logger) ContactService {
	return &contactService{
		contactsRepo: contactsRepo,
		logger:       logger,
	}
}

// ListContactsRequest 联系人列表请求
type ListContactsRequest struct {
	AgencyID       string
	Search         string // 姓名/邮箱/电话模糊搜索
	Phone          string // 原始电话，服务内规范化后精确匹配
	IncludeDeleted bool
	Page           int
	Size           int
}

// ListContactsResponse 联系人列表响应
type ListContactsResponse struct {
	Contacts []*repository.ContactView `json:"contacts"`
	Total    int                       `json:"total"`
	Page     int                       `json:"page"`
	Size     int                       `json:"size"`
}

// UpdateContactRequest 联系人更新请求（nil = 该键未提供）
type UpdateContactRequest struct {
	AgencyID  string
	ContactID string

	Phone       *string // 主电话变更（改写全局 Person）
	FirstName   *string
	LastName    *string
	MiddleName  *string
	Email       *string
	ExtraPhones []string // 提供时与现有列表合并（并集去重）
	Notes       *string
}

// GetContact 获取单个联系人
func (s *contactService) GetContact(ctx context.Context, tenantID, contactID string) (*repository.ContactView, error) {
	if tenantID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}
	return s.contactsRepo.GetContact(ctx, tenantID, contactID)
}

// ListContacts 联系人列表
func (s *contactService) ListContacts(ctx context.Context, req ListContactsRequest) (*ListContactsResponse, error) {
	if req.AgencyID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}

	page, size := normalizePage(req.Page, req.Size)

	filters := repository.ContactFilters{
		Search:         strings.TrimSpace(req.Search),
		IncludeDeleted: req.IncludeDeleted,
	}
	if req.Phone != "" {
		normalized := phone.Normalize(req.Phone)
		if normalized == "" {
			// 电话无法规范化时按空结果处理，不报错
			return &ListContactsResponse{Contacts: []*repository.ContactView{}, Page: page, Size: size}, nil
		}
		filters.Phone = normalized
	}

	contacts, total, err := s.contactsRepo.ListContacts(ctx, req.AgencyID, filters, page, size)
	if err != nil {
		return nil, err
	}

	return &ListContactsResponse{
		Contacts: contacts,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// UpdateContact 更新联系人
func (s *contactService) UpdateContact(ctx context.Context, req UpdateContactRequest) (*repository.ContactView, error) {
	if req.AgencyID == "" || req.ContactID == "" {
		return nil, domain.InvalidArgumentf("agency_id and contact_id are required")
	}

	current, err := s.contactsRepo.GetContact(ctx, req.AgencyID, req.ContactID)
	if err != nil {
		return nil, err
	}

	v := domain.NewValidationError()

	// 主电话变更：改写全局 Person（撞上已有电话返回 ErrUniquenessConflict）
	var newPhone string
	if req.Phone != nil {
		newPhone = phone.Normalize(*req.Phone)
		if newPhone == "" {
			v.Add("phone", "cannot be normalized to a valid phone number")
		}
	}

	if req.Email != nil && strings.TrimSpace(*req.Email) != "" && !validEmail(*req.Email) {
		v.Add("email", "is not a valid email address")
	}

	patch := domain.ContactPatch{
		FirstName:  trimmed(req.FirstName),
		LastName:   trimmed(req.LastName),
		MiddleName: trimmed(req.MiddleName),
		Email:      trimmed(req.Email),
		Notes:      req.Notes,
	}

	if req.ExtraPhones != nil {
		primary := current.NormalizedPhone
		if newPhone != "" {
			primary = newPhone
		}
		merged := mergePhoneLists(current.ExtraPhones, phone.NormalizeList(req.ExtraPhones), primary)
		if len(merged) > domain.MaxExtraPhones {
			v.Add("extra_phones", "has too many entries")
		}
		patch.ExtraPhones = merged
	}

	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		v.Add("first_name", "cannot be blank")
	}

	if err := v.ErrOrNil(); err != nil {
		return nil, err
	}

	if newPhone != "" && newPhone != current.NormalizedPhone {
		// 电话改写与字段更新必须一起提交或一起回滚
		if err := s.contactsRepo.UpdateContactWithPhone(ctx, req.AgencyID, req.ContactID, current.PersonID, newPhone, patch); err != nil {
			return nil, err
		}
		s.logger.Info("Contact primary phone changed",
			zap.String("agency_id", req.AgencyID),
			zap.String("contact_id", req.ContactID),
			zap.String("person_id", current.PersonID),
		)
	} else if err := s.contactsRepo.UpdateContact(ctx, req.AgencyID, req.ContactID, patch); err != nil {
		return nil, err
	}

	return s.contactsRepo.GetContact(ctx, req.AgencyID, req.ContactID)
}

// DeleteContact 软删除联系人
func (s *contactService) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	if tenantID == "" || contactID == "" {
		return domain.InvalidArgumentf("agency_id and contact_id are required")
	}
	if err := s.contactsRepo.SoftDeleteContact(ctx, tenantID, contactID); err != nil {
		return err
	}
	s.logger.Info("Contact soft deleted",
		zap.String("agency_id", tenantID),
		zap.String("contact_id", contactID),
	)
	return nil
}

// RestoreContact 撤销软删除
func (s *contactService) RestoreContact(ctx context.Context, tenantID, contactID string) error {
	if tenantID == "" || contactID == "" {
		return domain.InvalidArgumentf("agency_id and contact_id are required")
	}
	return s.contactsRepo.RestoreContact(ctx, tenantID, contactID)
}

// exportPageSize 导出时每次取数的页大小
const exportPageSize = 500

// ExportContacts 导出租户全部活跃联系人为 XLSX
func (s *contactService) ExportContacts(ctx context.Context, tenantID string) ([]byte, error) {
	if tenantID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Contacts"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"Phone", "First name", "Last name", "Middle name", "Email", "Extra phones", "Notes", "Created at"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := 2
	for page := 1; ; page++ {
		contacts, _, err := s.contactsRepo.ListContacts(ctx, tenantID, repository.ContactFilters{}, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		if len(contacts) == 0 {
			break
		}

		for _, c := range contacts {
			values := []any{
				c.NormalizedPhone,
				c.FirstName,
				c.LastName,
				c.MiddleName,
				c.Email,
				strings.Join(c.ExtraPhones, ", "),
				c.Notes,
				c.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			for i, val := range values {
				cell, err := excelize.CoordinatesToCellName(i+1, row)
				if err != nil {
					return nil, fmt.Errorf("failed to build cell: %w", err)
				}
				if err := f.SetCellValue(sheet, cell, val); err != nil {
					return nil, fmt.Errorf("failed to write row: %w", err)
				}
			}
			row++
		}

		if len(contacts) < exportPageSize {
			break
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}

	s.logger.Info("Contacts exported",
		zap.String("agency_id", tenantID),
		zap.Int("rows", row-2),
	)
	return buf.Bytes(), nil
}

// mergePhoneLists 并集合并（保序、去重、排除主电话）
func mergePhoneLists(existing, incoming []string, primary string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, p := range list {
			if p == "" || p == primary {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

// normalizePage 分页参数兜底
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return page, size
}
