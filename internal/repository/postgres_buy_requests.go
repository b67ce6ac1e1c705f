package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresBuyRequestsRepository 购房申请Repository实现
type PostgresBuyRequestsRepository struct {
	db *sql.DB
}

// NewPostgresBuyRequestsRepository 创建购房申请Repository
func NewPostgresBuyRequestsRepository(db *sql.DB) *PostgresBuyRequestsRepository {
	return &PostgresBuyRequestsRepository{db: db}
}

// 确保实现了接口
var _ BuyRequestsRepository = (*PostgresBuyRequestsRepository)(nil)

const buyRequestViewColumns = `
	r.request_id::text,
	r.property_id::text,
	r.agency_id::text,
	r.contact_id::text,
	COALESCE(r.customer_id::text, '') as customer_id,
	COALESCE(r.user_id::text, '') as user_id,
	r.status,
	COALESCE(r.comment, '') as comment,
	COALESCE(r.response_message, '') as response_message,
	r.deleted_at,
	r.created_at,
	r.updated_at,
	c.first_name,
	COALESCE(c.last_name, '') as last_name,
	p.normalized_phone
`

func scanBuyRequestView(row rowScanner) (*BuyRequestView, error) {
	var v BuyRequestView
	var deletedAt sql.NullTime
	var status string
	err := row.Scan(
		&v.RequestID,
		&v.PropertyID,
		&v.AgencyID,
		&v.ContactID,
		&v.CustomerID,
		&v.UserID,
		&status,
		&v.Comment,
		&v.ResponseMessage,
		&deletedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.FirstName,
		&v.LastName,
		&v.NormalizedPhone,
	)
	if err != nil {
		return nil, err
	}
	v.Status = domain.BuyRequestStatus(status)
	if deletedAt.Valid {
		t := deletedAt.Time
		v.PropertyBuyRequest.DeletedAt = &t
	}
	return &v, nil
}

// GetBuyRequest 获取单条申请
func (r *PostgresBuyRequestsRepository) GetBuyRequest(ctx context.Context, tenantID, requestID string) (*BuyRequestView, error) {
	if tenantID == "" || requestID == "" {
		return nil, fmt.Errorf("tenant_id and request_id are required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM property_buy_requests r
		JOIN contacts c ON c.contact_id = r.contact_id
		JOIN persons p ON p.person_id = c.person_id
		WHERE r.agency_id = $1::uuid AND r.request_id = $2::uuid AND r.deleted_at IS NULL
	`, buyRequestViewColumns)

	v, err := scanBuyRequestView(r.db.QueryRowContext(ctx, query, tenantID, requestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("buy request not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get buy request: %w", err)
	}
	return v, nil
}

// ListBuyRequests 查询申请列表（支持过滤、分页）
func (r *PostgresBuyRequestsRepository) ListBuyRequests(ctx context.Context, tenantID string, filters BuyRequestFilters, page, size int) ([]*BuyRequestView, int, error) {
	if tenantID == "" {
		return nil, 0, fmt.Errorf("tenant_id is required: %w", domain.ErrInvalidArgument)
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	where := []string{"r.agency_id = $1::uuid"}
	args := []any{tenantID}
	argIdx := 2

	if !filters.IncludeDeleted {
		where = append(where, "r.deleted_at IS NULL")
	}
	if filters.PropertyID != "" {
		where = append(where, fmt.Sprintf("r.property_id = $%d::uuid", argIdx))
		args = append(args, filters.PropertyID)
		argIdx++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("r.status = $%d", argIdx))
		args = append(args, filters.Status)
		argIdx++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM property_buy_requests r
		JOIN contacts c ON c.contact_id = r.contact_id
		JOIN persons p ON p.person_id = c.person_id
		%s
	`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count buy requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM property_buy_requests r
		JOIN contacts c ON c.contact_id = r.contact_id
		JOIN persons p ON p.person_id = c.person_id
		%s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d
	`, buyRequestViewColumns, whereClause, argIdx, argIdx+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list buy requests: %w", err)
	}
	defer rows.Close()

	requests := []*BuyRequestView{}
	for rows.Next() {
		v, err := scanBuyRequestView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan buy request: %w", err)
		}
		requests = append(requests, v)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate buy requests: %w", err)
	}

	return requests, total, nil
}

// CreateBuyRequest 创建申请
// 不变量：agency_id 必须等于 property.agency_id —— 这里在 INSERT 时
// 通过子查询强制（property 不在该租户内则插入 0 行）。
func (r *PostgresBuyRequestsRepository) CreateBuyRequest(ctx context.Context, tenantID string, req *domain.PropertyBuyRequest) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required: %w", domain.ErrInvalidArgument)
	}
	if req == nil || req.PropertyID == "" || req.ContactID == "" {
		return "", fmt.Errorf("property_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}

	status := req.Status
	if status == "" {
		status = domain.BuyRequestPending
	}

	var requestID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO property_buy_requests
			(property_id, agency_id, contact_id, customer_id, user_id, status, comment)
		 SELECT p.property_id, p.agency_id, $3::uuid, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6, NULLIF($7, '')
		 FROM properties p
		 WHERE p.property_id = $1::uuid AND p.agency_id = $2::uuid AND p.deleted_at IS NULL
		 RETURNING request_id::text`,
		req.PropertyID, tenantID, req.ContactID, req.CustomerID, req.UserID, string(status), req.Comment,
	).Scan(&requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("property not found in agency: %w", domain.ErrInvalidArgument)
		}
		if isForeignKeyViolation(err) {
			return "", fmt.Errorf("contact or customer does not exist: %w", domain.ErrInvalidArgument)
		}
		return "", fmt.Errorf("failed to create buy request: %w", err)
	}
	return requestID, nil
}

// UpdateBuyRequest 状态流转/回复/关联客户
func (r *PostgresBuyRequestsRepository) UpdateBuyRequest(ctx context.Context, tenantID, requestID string, patch BuyRequestPatch) error {
	if tenantID == "" || requestID == "" {
		return fmt.Errorf("tenant_id and request_id are required: %w", domain.ErrInvalidArgument)
	}

	updates := []string{}
	args := []any{tenantID, requestID}
	argIdx := 3

	if patch.Status != nil {
		updates = append(updates, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*patch.Status))
		argIdx++
	}
	if patch.ResponseMessage != nil {
		updates = append(updates, fmt.Sprintf("response_message = NULLIF($%d, '')", argIdx))
		args = append(args, *patch.ResponseMessage)
		argIdx++
	}
	if patch.CustomerID != nil {
		updates = append(updates, fmt.Sprintf("customer_id = NULLIF($%d, '')::uuid", argIdx))
		args = append(args, *patch.CustomerID)
		argIdx++
	}

	if len(updates) == 0 {
		return fmt.Errorf("no fields to update: %w", domain.ErrInvalidArgument)
	}
	updates = append(updates, "updated_at = now()")

	query := fmt.Sprintf(`
		UPDATE property_buy_requests
		SET %s
		WHERE agency_id = $1::uuid AND request_id = $2::uuid AND deleted_at IS NULL
	`, strings.Join(updates, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update buy request: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("buy request not found: %w", domain.ErrNotFound)
	}
	return nil
}

// SoftDeleteBuyRequest 软删除
func (r *PostgresBuyRequestsRepository) SoftDeleteBuyRequest(ctx context.Context, tenantID, requestID string) error {
	if tenantID == "" || requestID == "" {
		return fmt.Errorf("tenant_id and request_id are required: %w", domain.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE property_buy_requests SET deleted_at = now(), updated_at = now()
		 WHERE agency_id = $1::uuid AND request_id = $2::uuid AND deleted_at IS NULL`,
		tenantID, requestID,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete buy request: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("buy request not found: %w", domain.ErrNotFound)
	}
	return nil
}

// CountActiveForAgency 机构活跃申请总数
func (r *PostgresBuyRequestsRepository) CountActiveForAgency(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenant_id is required: %w", domain.ErrInvalidArgument)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM property_buy_requests
		 WHERE agency_id = $1::uuid AND deleted_at IS NULL`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count buy requests: %w", err)
	}
	return count, nil
}
