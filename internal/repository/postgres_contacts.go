package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresContactsRepository 联系人Repository实现（强类型版本）
type PostgresContactsRepository struct {
	db *sql.DB
}

// NewPostgresContactsRepository 创建联系人Repository
func NewPostgresContactsRepository(db *sql.DB) *PostgresContactsRepository {
	return &PostgresContactsRepository{db: db}
}

// 确保实现了接口
var _ ContactsRepository = (*PostgresContactsRepository)(nil)

const contactViewColumns = `
	c.contact_id::text,
	c.agency_id::text,
	c.person_id::text,
	c.first_name,
	COALESCE(c.last_name, '') as last_name,
	COALESCE(c.middle_name, '') as middle_name,
	COALESCE(c.email, '') as email,
	c.extra_phones,
	COALESCE(c.notes, '') as notes,
	c.deleted_at,
	c.created_at,
	c.updated_at,
	p.normalized_phone
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContactView(row rowScanner) (*ContactView, error) {
	var v ContactView
	var deletedAt sql.NullTime
	err := row.Scan(
		&v.ContactID,
		&v.AgencyID,
		&v.PersonID,
		&v.FirstName,
		&v.LastName,
		&v.MiddleName,
		&v.Email,
		pq.Array(&v.ExtraPhones),
		&v.Notes,
		&deletedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.NormalizedPhone,
	)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		v.DeletedAt = &t
	}
	return &v, nil
}

func (r *PostgresContactsRepository) getContact(ctx context.Context, tenantID, contactID string, includeDeleted bool) (*ContactView, error) {
	if tenantID == "" || contactID == "" {
		return nil, fmt.Errorf("tenant_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM contacts c
		JOIN persons p ON p.person_id = c.person_id
		WHERE c.agency_id = $1::uuid AND c.contact_id = $2::uuid
	`, contactViewColumns)
	if !includeDeleted {
		query += ` AND c.deleted_at IS NULL`
	}

	v, err := scanContactView(r.db.QueryRowContext(ctx, query, tenantID, contactID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("contact not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return v, nil
}

// GetContact 获取单个联系人（默认排除软删除）
func (r *PostgresContactsRepository) GetContact(ctx context.Context, tenantID, contactID string) (*ContactView, error) {
	return r.getContact(ctx, tenantID, contactID, false)
}

// GetContactAny 审计用：包含软删除记录
func (r *PostgresContactsRepository) GetContactAny(ctx context.Context, tenantID, contactID string) (*ContactView, error) {
	return r.getContact(ctx, tenantID, contactID, true)
}

// FindByPerson 按 (agency_id, person_id) 查找，包含软删除
func (r *PostgresContactsRepository) FindByPerson(ctx context.Context, tenantID, personID string) (*domain.Contact, error) {
	if tenantID == "" || personID == "" {
		return nil, fmt.Errorf("tenant_id and person_id are required: %w", domain.ErrInvalidArgument)
	}
	return findContactByPerson(ctx, r.db, tenantID, personID)
}

// findContactByPerson 事务内外共用的 (agency_id, person_id) 查询
func findContactByPerson(ctx context.Context, q queryer, tenantID, personID string) (*domain.Contact, error) {
	query := `
		SELECT
			contact_id::text,
			agency_id::text,
			person_id::text,
			first_name,
			COALESCE(last_name, '') as last_name,
			COALESCE(middle_name, '') as middle_name,
			COALESCE(email, '') as email,
			extra_phones,
			COALESCE(notes, '') as notes,
			deleted_at,
			created_at,
			updated_at
		FROM contacts
		WHERE agency_id = $1::uuid AND person_id = $2::uuid
	`

	var c domain.Contact
	var deletedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, tenantID, personID).Scan(
		&c.ContactID,
		&c.AgencyID,
		&c.PersonID,
		&c.FirstName,
		&c.LastName,
		&c.MiddleName,
		&c.Email,
		pq.Array(&c.ExtraPhones),
		&c.Notes,
		&deletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("contact not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find contact by person: %w", err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

// ListContacts 查询联系人列表（支持搜索、电话过滤、分页）
func (r *PostgresContactsRepository) ListContacts(ctx context.Context, tenantID string, filters ContactFilters, page, size int) ([]*ContactView, int, error) {
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

	// 构建WHERE条件（agency_id 永远是第一个条件）
	where := []string{"c.agency_id = $1::uuid"}
	args := []any{tenantID}
	argIdx := 2

	if !filters.IncludeDeleted {
		where = append(where, "c.deleted_at IS NULL")
	}

	if filters.Phone != "" {
		where = append(where, fmt.Sprintf("p.normalized_phone = $%d", argIdx))
		args = append(args, filters.Phone)
		argIdx++
	}

	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		digits := "%" + stripNonDigits(filters.Search) + "%"
		where = append(where, fmt.Sprintf(
			"(c.first_name ILIKE $%d OR c.last_name ILIKE $%d OR c.middle_name ILIKE $%d OR c.email ILIKE $%d OR p.normalized_phone LIKE $%d)",
			argIdx, argIdx, argIdx, argIdx, argIdx+1))
		args = append(args, search, digits)
		argIdx += 2
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM contacts c
		JOIN persons p ON p.person_id = c.person_id
		%s
	`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM contacts c
		JOIN persons p ON p.person_id = c.person_id
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d
	`, contactViewColumns, whereClause, argIdx, argIdx+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*ContactView{}
	for rows.Next() {
		v, err := scanContactView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, v)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, total, nil
}

// UpdateContact 按补丁更新可编辑字段
func (r *PostgresContactsRepository) UpdateContact(ctx context.Context, tenantID, contactID string, patch domain.ContactPatch) error {
	if tenantID == "" || contactID == "" {
		return fmt.Errorf("tenant_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}
	if patch.IsEmpty() {
		return fmt.Errorf("no fields to update: %w", domain.ErrInvalidArgument)
	}
	return updateContactFields(ctx, r.db, tenantID, contactID, patch)
}

// UpdateContactWithPhone 主电话改写与字段更新在同一事务内落库：
// 任何一步失败都回滚，全局 Person 的电话不会在联系人更新失败后独自残留。
// 补丁可以为空（纯改电话的请求），此时仅刷新联系人的 updated_at。
func (r *PostgresContactsRepository) UpdateContactWithPhone(ctx context.Context, tenantID, contactID, personID, normalizedPhone string, patch domain.ContactPatch) error {
	if tenantID == "" || contactID == "" {
		return fmt.Errorf("tenant_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updatePersonPhone(ctx, tx, personID, normalizedPhone); err != nil {
		return err
	}
	if err := updateContactFields(ctx, tx, tenantID, contactID, patch); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapConflict(err, "failed to commit contact phone update")
	}
	return nil
}

// updateContactFields 事务内外共用的补丁式 UPDATE；空补丁只刷新 updated_at
func updateContactFields(ctx context.Context, q queryer, tenantID, contactID string, patch domain.ContactPatch) error {
	updates := []string{}
	args := []any{tenantID, contactID}
	argIdx := 3

	if patch.FirstName != nil {
		updates = append(updates, fmt.Sprintf("first_name = $%d", argIdx))
		args = append(args, *patch.FirstName)
		argIdx++
	}
	// last_name/middle_name/email/notes 使用 NULLIF 把空字符串转为 NULL
	if patch.LastName != nil {
		updates = append(updates, fmt.Sprintf("last_name = NULLIF($%d, '')", argIdx))
		args = append(args, *patch.LastName)
		argIdx++
	}
	if patch.MiddleName != nil {
		updates = append(updates, fmt.Sprintf("middle_name = NULLIF($%d, '')", argIdx))
		args = append(args, *patch.MiddleName)
		argIdx++
	}
	if patch.Email != nil {
		updates = append(updates, fmt.Sprintf("email = NULLIF($%d, '')", argIdx))
		args = append(args, *patch.Email)
		argIdx++
	}
	if patch.HasExtraPhones() {
		updates = append(updates, fmt.Sprintf("extra_phones = $%d", argIdx))
		args = append(args, pq.Array(patch.ExtraPhones))
		argIdx++
	}
	if patch.Notes != nil {
		updates = append(updates, fmt.Sprintf("notes = NULLIF($%d, '')", argIdx))
		args = append(args, *patch.Notes)
		argIdx++
	}

	updates = append(updates, "updated_at = now()")

	query := fmt.Sprintf(`
		UPDATE contacts
		SET %s
		WHERE agency_id = $1::uuid AND contact_id = $2::uuid AND deleted_at IS NULL
	`, strings.Join(updates, ", "))

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapConflict(err, "failed to update contact")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("contact not found: %w", domain.ErrNotFound)
	}
	return nil
}

// SoftDeleteContact 软删除（仍被活跃角色记录引用时拒绝）
func (r *PostgresContactsRepository) SoftDeleteContact(ctx context.Context, tenantID, contactID string) error {
	if tenantID == "" || contactID == "" {
		return fmt.Errorf("tenant_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}

	refs, err := r.CountActiveRoleRefs(ctx, tenantID, contactID)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("contact is referenced by %d active role records: %w", refs, domain.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET deleted_at = now(), updated_at = now()
		 WHERE agency_id = $1::uuid AND contact_id = $2::uuid AND deleted_at IS NULL`,
		tenantID, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete contact: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("contact not found: %w", domain.ErrNotFound)
	}
	return nil
}

// RestoreContact 撤销软删除
func (r *PostgresContactsRepository) RestoreContact(ctx context.Context, tenantID, contactID string) error {
	if tenantID == "" || contactID == "" {
		return fmt.Errorf("tenant_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET deleted_at = NULL, updated_at = now()
		 WHERE agency_id = $1::uuid AND contact_id = $2::uuid`,
		tenantID, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to restore contact: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("contact not found: %w", domain.ErrNotFound)
	}
	return nil
}

// CountActiveRoleRefs 统计活跃角色记录引用数（customers + property_owners + property_buy_requests）
func (r *PostgresContactsRepository) CountActiveRoleRefs(ctx context.Context, tenantID, contactID string) (int, error) {
	if tenantID == "" || contactID == "" {
		return 0, fmt.Errorf("tenant_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM customers
			 WHERE agency_id = $1::uuid AND contact_id = $2::uuid AND deleted_at IS NULL) +
			(SELECT COUNT(*) FROM property_owners
			 WHERE agency_id = $1::uuid AND contact_id = $2::uuid AND deleted_at IS NULL) +
			(SELECT COUNT(*) FROM property_buy_requests
			 WHERE agency_id = $1::uuid AND contact_id = $2::uuid AND deleted_at IS NULL)
	`
	var total int
	if err := r.db.QueryRowContext(ctx, query, tenantID, contactID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count contact role refs: %w", err)
	}
	return total, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
