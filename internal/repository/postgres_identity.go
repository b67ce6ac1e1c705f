package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresIdentityRepository 身份解析upsert实现。
//
// 执行顺序不变量（事务内）：
// persons 先于 contacts 先于 customers；
// 跨请求对同一电话的竞争只由唯一约束裁决
// （行存在性 first-committed-wins，字段值 last-committed-wins）。
type PostgresIdentityRepository struct {
	db *sql.DB
}

// NewPostgresIdentityRepository 创建身份解析Repository
func NewPostgresIdentityRepository(db *sql.DB) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{db: db}
}

// 确保实现了接口
var _ IdentityRepository = (*PostgresIdentityRepository)(nil)

// ResolveCustomer 三步 upsert：Person → Contact → Customer
func (r *PostgresIdentityRepository) ResolveCustomer(ctx context.Context, tenantID, normalizedPhone string, contactPatch domain.ContactPatch, customerPatch domain.CustomerPatch, defaultServiceType domain.ServiceType) (*domain.Customer, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required: %w", domain.ErrInvalidArgument)
	}
	if normalizedPhone == "" {
		return nil, fmt.Errorf("normalized_phone is required: %w", domain.ErrInvalidArgument)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	person, err := ensurePerson(ctx, tx, normalizedPhone)
	if err != nil {
		return nil, err
	}

	contact, err := upsertContact(ctx, tx, tenantID, person.PersonID, contactPatch)
	if err != nil {
		return nil, err
	}

	customer, err := upsertCustomer(ctx, tx, tenantID, contact.ContactID, customerPatch, defaultServiceType)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapConflict(err, "failed to commit identity resolution")
	}

	customer.Contact = contact
	customer.Person = person
	return customer, nil
}

// ResolveContact 两步 upsert：Person → Contact
func (r *PostgresIdentityRepository) ResolveContact(ctx context.Context, tenantID, normalizedPhone string, contactPatch domain.ContactPatch) (*domain.Contact, *domain.Person, error) {
	if tenantID == "" {
		return nil, nil, fmt.Errorf("tenant_id is required: %w", domain.ErrInvalidArgument)
	}
	if normalizedPhone == "" {
		return nil, nil, fmt.Errorf("normalized_phone is required: %w", domain.ErrInvalidArgument)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	person, err := ensurePerson(ctx, tx, normalizedPhone)
	if err != nil {
		return nil, nil, err
	}

	contact, err := upsertContact(ctx, tx, tenantID, person.PersonID, contactPatch)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, wrapConflict(err, "failed to commit identity resolution")
	}

	return contact, person, nil
}

// upsertContact 按 (agency_id, person_id) find-or-initialize，应用字段合并语义：
//   - first_name：来值非空则覆盖；否则保留现值；都空则占位 "—"
//   - last_name/middle_name/email/notes：仅在补丁包含该键时覆盖
//   - extra_phones：与现有列表做并集（保序去重），不是替换
//   - deleted_at：强制置 NULL（复活软删除的卡片）
func upsertContact(ctx context.Context, q queryer, tenantID, personID string, patch domain.ContactPatch) (*domain.Contact, error) {
	existing, err := findContactByPerson(ctx, q, tenantID, personID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if existing == nil {
		firstName := domain.ContactNamePlaceholder
		if patch.FirstName != nil && *patch.FirstName != "" {
			firstName = *patch.FirstName
		}
		c := &domain.Contact{
			AgencyID:    tenantID,
			PersonID:    personID,
			FirstName:   firstName,
			ExtraPhones: patch.ExtraPhones,
		}
		if patch.LastName != nil {
			c.LastName = *patch.LastName
		}
		if patch.MiddleName != nil {
			c.MiddleName = *patch.MiddleName
		}
		if patch.Email != nil {
			c.Email = *patch.Email
		}
		if patch.Notes != nil {
			c.Notes = *patch.Notes
		}
		return insertContact(ctx, q, c)
	}

	// 字段合并
	if patch.FirstName != nil && *patch.FirstName != "" {
		existing.FirstName = *patch.FirstName
	}
	if existing.FirstName == "" {
		existing.FirstName = domain.ContactNamePlaceholder
	}
	if patch.LastName != nil {
		existing.LastName = *patch.LastName
	}
	if patch.MiddleName != nil {
		existing.MiddleName = *patch.MiddleName
	}
	if patch.Email != nil {
		existing.Email = *patch.Email
	}
	if patch.HasExtraPhones() {
		merged := mergePhones(existing.ExtraPhones, patch.ExtraPhones)
		// 并集也受上限约束，不能借合并绕过
		if len(merged) > domain.MaxExtraPhones {
			v := domain.NewValidationError()
			v.Add("extra_phones", "merged list has too many entries")
			return nil, v
		}
		existing.ExtraPhones = merged
	}
	if patch.Notes != nil {
		existing.Notes = *patch.Notes
	}
	existing.DeletedAt = nil

	if err := saveContact(ctx, q, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func insertContact(ctx context.Context, q queryer, c *domain.Contact) (*domain.Contact, error) {
	query := `
		INSERT INTO contacts (agency_id, person_id, first_name, last_name, middle_name, email, extra_phones, notes)
		VALUES ($1::uuid, $2::uuid, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''))
		ON CONFLICT (agency_id, person_id) DO NOTHING
		RETURNING contact_id::text, created_at, updated_at
	`
	extraPhones := c.ExtraPhones
	if extraPhones == nil {
		extraPhones = []string{}
	}
	err := q.QueryRowContext(ctx, query,
		c.AgencyID, c.PersonID, c.FirstName, c.LastName, c.MiddleName, c.Email,
		pq.Array(extraPhones), c.Notes,
	).Scan(&c.ContactID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			// 并发竞争：同一事务外的请求先插入了同一 (agency, person) 对。
			// 在当前事务内该行可能尚不可见，按冲突上报，由上层整体重试。
			return nil, fmt.Errorf("contact insert lost race: %w", domain.ErrUniquenessConflict)
		}
		return nil, wrapConflict(err, "failed to insert contact")
	}
	c.ExtraPhones = extraPhones
	return c, nil
}

func saveContact(ctx context.Context, q queryer, c *domain.Contact) error {
	query := `
		UPDATE contacts
		SET first_name = $3,
		    last_name = NULLIF($4, ''),
		    middle_name = NULLIF($5, ''),
		    email = NULLIF($6, ''),
		    extra_phones = $7,
		    notes = NULLIF($8, ''),
		    deleted_at = NULL,
		    updated_at = now()
		WHERE agency_id = $1::uuid AND contact_id = $2::uuid
	`
	extraPhones := c.ExtraPhones
	if extraPhones == nil {
		extraPhones = []string{}
	}
	result, err := q.ExecContext(ctx, query,
		c.AgencyID, c.ContactID, c.FirstName, c.LastName, c.MiddleName, c.Email,
		pq.Array(extraPhones), c.Notes,
	)
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

// upsertCustomer 按 (agency_id, contact_id) find-or-initialize：
//   - service_type：补丁有值则用（枚举校验在 Service 层）；否则保留现值；都无则用默认
//   - user_id：仅补丁包含该键时设置
//   - deleted_at：强制置 NULL（激活）
func upsertCustomer(ctx context.Context, q queryer, tenantID, contactID string, patch domain.CustomerPatch, defaultServiceType domain.ServiceType) (*domain.Customer, error) {
	existing, err := findCustomerByContact(ctx, q, tenantID, contactID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if existing == nil {
		serviceType := defaultServiceType
		if patch.ServiceType != nil {
			serviceType = *patch.ServiceType
		}
		cu := &domain.Customer{
			AgencyID:    tenantID,
			ContactID:   contactID,
			ServiceType: serviceType,
		}
		if patch.UserID != nil {
			cu.UserID = *patch.UserID
		}
		if patch.Notes != nil {
			cu.Notes = *patch.Notes
		}

		query := `
			INSERT INTO customers (agency_id, contact_id, user_id, service_type, notes)
			VALUES ($1::uuid, $2::uuid, NULLIF($3, '')::uuid, $4, NULLIF($5, ''))
			ON CONFLICT (agency_id, contact_id) DO NOTHING
			RETURNING customer_id::text, created_at, updated_at
		`
		err := q.QueryRowContext(ctx, query,
			cu.AgencyID, cu.ContactID, cu.UserID, string(cu.ServiceType), cu.Notes,
		).Scan(&cu.CustomerID, &cu.CreatedAt, &cu.UpdatedAt)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("customer insert lost race: %w", domain.ErrUniquenessConflict)
			}
			return nil, wrapConflict(err, "failed to insert customer")
		}
		return cu, nil
	}

	if patch.ServiceType != nil {
		existing.ServiceType = *patch.ServiceType
	}
	if patch.UserID != nil {
		existing.UserID = *patch.UserID
	}
	if patch.Notes != nil {
		existing.Notes = *patch.Notes
	}
	existing.DeletedAt = nil

	query := `
		UPDATE customers
		SET service_type = $3,
		    user_id = NULLIF($4, '')::uuid,
		    notes = NULLIF($5, ''),
		    deleted_at = NULL,
		    updated_at = now()
		WHERE agency_id = $1::uuid AND customer_id = $2::uuid
	`
	result, err := q.ExecContext(ctx, query,
		existing.AgencyID, existing.CustomerID, string(existing.ServiceType), existing.UserID, existing.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("customer not found: %w", domain.ErrNotFound)
	}
	return existing, nil
}

// mergePhones 现有列表与新值的并集（保序去重，上层已做规范化与去空）
func mergePhones(current, incoming []string) []string {
	out := make([]string, 0, len(current)+len(incoming))
	seen := make(map[string]struct{}, len(current)+len(incoming))
	for _, lists := range [][]string{current, incoming} {
		for _, ph := range lists {
			if ph == "" {
				continue
			}
			if _, ok := seen[ph]; ok {
				continue
			}
			seen[ph] = struct{}{}
			out = append(out, ph)
		}
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
