package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresCustomersRepository 客户Repository实现（强类型版本）
type PostgresCustomersRepository struct {
	db *sql.DB
}

// NewPostgresCustomersRepository 创建客户Repository
func NewPostgresCustomersRepository(db *sql.DB) *PostgresCustomersRepository {
	return &PostgresCustomersRepository{db: db}
}

// 确保实现了接口
var _ CustomersRepository = (*PostgresCustomersRepository)(nil)

const customerViewColumns = `
	cu.customer_id::text,
	cu.agency_id::text,
	cu.contact_id::text,
	COALESCE(cu.user_id::text, '') as user_id,
	cu.service_type,
	COALESCE(cu.notes, '') as notes,
	cu.deleted_at,
	cu.created_at,
	cu.updated_at,
	c.first_name,
	COALESCE(c.last_name, '') as last_name,
	COALESCE(c.middle_name, '') as middle_name,
	p.normalized_phone
`

func scanCustomerView(row rowScanner) (*CustomerView, error) {
	var v CustomerView
	var deletedAt sql.NullTime
	var serviceType string
	err := row.Scan(
		&v.CustomerID,
		&v.AgencyID,
		&v.ContactID,
		&v.UserID,
		&serviceType,
		&v.Notes,
		&deletedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.FirstName,
		&v.LastName,
		&v.MiddleName,
		&v.NormalizedPhone,
	)
	if err != nil {
		return nil, err
	}
	v.ServiceType = domain.ServiceType(serviceType)
	if deletedAt.Valid {
		t := deletedAt.Time
		v.Customer.DeletedAt = &t
	}
	return &v, nil
}

// GetCustomer 获取单个客户（默认排除软删除）
func (r *PostgresCustomersRepository) GetCustomer(ctx context.Context, tenantID, customerID string) (*CustomerView, error) {
	if tenantID == "" || customerID == "" {
		return nil, fmt.Errorf("tenant_id and customer_id are required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM customers cu
		JOIN contacts c ON c.contact_id = cu.contact_id
		JOIN persons p ON p.person_id = c.person_id
		WHERE cu.agency_id = $1::uuid AND cu.customer_id = $2::uuid AND cu.deleted_at IS NULL
	`, customerViewColumns)

	v, err := scanCustomerView(r.db.QueryRowContext(ctx, query, tenantID, customerID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("customer not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return v, nil
}

// FindByContact 按 (agency_id, contact_id) 查找，包含软删除
func (r *PostgresCustomersRepository) FindByContact(ctx context.Context, tenantID, contactID string) (*domain.Customer, error) {
	if tenantID == "" || contactID == "" {
		return nil, fmt.Errorf("tenant_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}
	return findCustomerByContact(ctx, r.db, tenantID, contactID)
}

// findCustomerByContact 事务内外共用的 (agency_id, contact_id) 查询
func findCustomerByContact(ctx context.Context, q queryer, tenantID, contactID string) (*domain.Customer, error) {
	query := `
		SELECT
			customer_id::text,
			agency_id::text,
			contact_id::text,
			COALESCE(user_id::text, '') as user_id,
			service_type,
			COALESCE(notes, '') as notes,
			deleted_at,
			created_at,
			updated_at
		FROM customers
		WHERE agency_id = $1::uuid AND contact_id = $2::uuid
	`

	var cu domain.Customer
	var deletedAt sql.NullTime
	var serviceType string
	err := q.QueryRowContext(ctx, query, tenantID, contactID).Scan(
		&cu.CustomerID,
		&cu.AgencyID,
		&cu.ContactID,
		&cu.UserID,
		&serviceType,
		&cu.Notes,
		&deletedAt,
		&cu.CreatedAt,
		&cu.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("customer not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find customer by contact: %w", err)
	}
	cu.ServiceType = domain.ServiceType(serviceType)
	if deletedAt.Valid {
		t := deletedAt.Time
		cu.DeletedAt = &t
	}
	return &cu, nil
}

// ListCustomers 查询客户列表（支持过滤、分页）
func (r *PostgresCustomersRepository) ListCustomers(ctx context.Context, tenantID string, filters CustomerFilters, page, size int) ([]*CustomerView, int, error) {
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

	where := []string{"cu.agency_id = $1::uuid"}
	args := []any{tenantID}
	argIdx := 2

	if !filters.IncludeDeleted {
		where = append(where, "cu.deleted_at IS NULL")
	}
	if filters.ServiceType != "" {
		where = append(where, fmt.Sprintf("cu.service_type = $%d", argIdx))
		args = append(args, filters.ServiceType)
		argIdx++
	}
	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		digits := "%" + stripNonDigits(filters.Search) + "%"
		where = append(where, fmt.Sprintf(
			"(c.first_name ILIKE $%d OR c.last_name ILIKE $%d OR p.normalized_phone LIKE $%d)",
			argIdx, argIdx, argIdx+1))
		args = append(args, search, digits)
		argIdx += 2
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM customers cu
		JOIN contacts c ON c.contact_id = cu.contact_id
		JOIN persons p ON p.person_id = c.person_id
		%s
	`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM customers cu
		JOIN contacts c ON c.contact_id = cu.contact_id
		JOIN persons p ON p.person_id = c.person_id
		%s
		ORDER BY cu.created_at DESC
		LIMIT $%d OFFSET $%d
	`, customerViewColumns, whereClause, argIdx, argIdx+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*CustomerView{}
	for rows.Next() {
		v, err := scanCustomerView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, v)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate customers: %w", err)
	}

	return customers, total, nil
}

// UpdateCustomer 按补丁更新
func (r *PostgresCustomersRepository) UpdateCustomer(ctx context.Context, tenantID, customerID string, patch domain.CustomerPatch) error {
	if tenantID == "" || customerID == "" {
		return fmt.Errorf("tenant_id and customer_id are required: %w", domain.ErrInvalidArgument)
	}

	updates := []string{}
	args := []any{tenantID, customerID}
	argIdx := 3

	if patch.ServiceType != nil {
		updates = append(updates, fmt.Sprintf("service_type = $%d", argIdx))
		args = append(args, string(*patch.ServiceType))
		argIdx++
	}
	if patch.UserID != nil {
		updates = append(updates, fmt.Sprintf("user_id = NULLIF($%d, '')::uuid", argIdx))
		args = append(args, *patch.UserID)
		argIdx++
	}
	if patch.Notes != nil {
		updates = append(updates, fmt.Sprintf("notes = NULLIF($%d, '')", argIdx))
		args = append(args, *patch.Notes)
		argIdx++
	}

	if len(updates) == 0 {
		return fmt.Errorf("no fields to update: %w", domain.ErrInvalidArgument)
	}
	updates = append(updates, "updated_at = now()")

	query := fmt.Sprintf(`
		UPDATE customers
		SET %s
		WHERE agency_id = $1::uuid AND customer_id = $2::uuid AND deleted_at IS NULL
	`, strings.Join(updates, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("customer not found: %w", domain.ErrNotFound)
	}
	return nil
}

// SoftDeleteCustomer 软删除
func (r *PostgresCustomersRepository) SoftDeleteCustomer(ctx context.Context, tenantID, customerID string) error {
	if tenantID == "" || customerID == "" {
		return fmt.Errorf("tenant_id and customer_id are required: %w", domain.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE customers SET deleted_at = now(), updated_at = now()
		 WHERE agency_id = $1::uuid AND customer_id = $2::uuid AND deleted_at IS NULL`,
		tenantID, customerID,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("customer not found: %w", domain.ErrNotFound)
	}
	return nil
}
