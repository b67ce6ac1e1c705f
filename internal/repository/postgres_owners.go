package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresPropertyOwnersRepository 业主Repository实现
type PostgresPropertyOwnersRepository struct {
	db *sql.DB
}

// NewPostgresPropertyOwnersRepository 创建业主Repository
func NewPostgresPropertyOwnersRepository(db *sql.DB) *PostgresPropertyOwnersRepository {
	return &PostgresPropertyOwnersRepository{db: db}
}

// 确保实现了接口
var _ PropertyOwnersRepository = (*PostgresPropertyOwnersRepository)(nil)

const ownerViewColumns = `
	o.owner_id::text,
	o.property_id::text,
	o.agency_id::text,
	o.contact_id::text,
	COALESCE(o.user_id::text, '') as user_id,
	o.role,
	COALESCE(o.notes, '') as notes,
	o.deleted_at,
	o.created_at,
	o.updated_at,
	c.first_name,
	COALESCE(c.last_name, '') as last_name,
	COALESCE(c.middle_name, '') as middle_name,
	p.normalized_phone
`

func scanOwnerView(row rowScanner) (*OwnerView, error) {
	var v OwnerView
	var deletedAt sql.NullTime
	var role string
	err := row.Scan(
		&v.OwnerID,
		&v.PropertyID,
		&v.AgencyID,
		&v.ContactID,
		&v.UserID,
		&role,
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
	v.Role = domain.OwnerRole(role)
	if deletedAt.Valid {
		t := deletedAt.Time
		v.PropertyOwner.DeletedAt = &t
	}
	return &v, nil
}

// GetOwner 获取单个业主记录
func (r *PostgresPropertyOwnersRepository) GetOwner(ctx context.Context, tenantID, ownerID string) (*OwnerView, error) {
	if tenantID == "" || ownerID == "" {
		return nil, fmt.Errorf("tenant_id and owner_id are required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM property_owners o
		JOIN contacts c ON c.contact_id = o.contact_id
		JOIN persons p ON p.person_id = c.person_id
		WHERE o.agency_id = $1::uuid AND o.owner_id = $2::uuid AND o.deleted_at IS NULL
	`, ownerViewColumns)

	v, err := scanOwnerView(r.db.QueryRowContext(ctx, query, tenantID, ownerID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("property owner not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property owner: %w", err)
	}
	return v, nil
}

// ListOwners 某房产的业主列表
func (r *PostgresPropertyOwnersRepository) ListOwners(ctx context.Context, tenantID, propertyID string, includeDeleted bool) ([]*OwnerView, error) {
	if tenantID == "" || propertyID == "" {
		return nil, fmt.Errorf("tenant_id and property_id are required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM property_owners o
		JOIN contacts c ON c.contact_id = o.contact_id
		JOIN persons p ON p.person_id = c.person_id
		WHERE o.agency_id = $1::uuid AND o.property_id = $2::uuid
	`, ownerViewColumns)
	if !includeDeleted {
		query += ` AND o.deleted_at IS NULL`
	}
	query += ` ORDER BY o.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list property owners: %w", err)
	}
	defer rows.Close()

	owners := []*OwnerView{}
	for rows.Next() {
		v, err := scanOwnerView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property owner: %w", err)
		}
		owners = append(owners, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate property owners: %w", err)
	}
	return owners, nil
}

// CountActiveOwners 某房产的活跃业主数量
func (r *PostgresPropertyOwnersRepository) CountActiveOwners(ctx context.Context, tenantID, propertyID string) (int, error) {
	if tenantID == "" || propertyID == "" {
		return 0, fmt.Errorf("tenant_id and property_id are required: %w", domain.ErrInvalidArgument)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM property_owners
		 WHERE agency_id = $1::uuid AND property_id = $2::uuid AND deleted_at IS NULL`,
		tenantID, propertyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count property owners: %w", err)
	}
	return count, nil
}

// CreateOwner 创建业主记录
func (r *PostgresPropertyOwnersRepository) CreateOwner(ctx context.Context, tenantID string, owner *domain.PropertyOwner) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required: %w", domain.ErrInvalidArgument)
	}
	if owner == nil || owner.PropertyID == "" || owner.ContactID == "" {
		return "", fmt.Errorf("property_id and contact_id are required: %w", domain.ErrInvalidArgument)
	}

	role := owner.Role
	if role == "" {
		role = domain.OwnerRolePrimary
	}

	var ownerID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO property_owners (property_id, agency_id, contact_id, user_id, role, notes)
		 VALUES ($1::uuid, $2::uuid, $3::uuid, NULLIF($4, '')::uuid, $5, NULLIF($6, ''))
		 RETURNING owner_id::text`,
		owner.PropertyID, tenantID, owner.ContactID, owner.UserID, string(role), owner.Notes,
	).Scan(&ownerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", fmt.Errorf("property or contact does not exist: %w", domain.ErrInvalidArgument)
		}
		return "", fmt.Errorf("failed to create property owner: %w", err)
	}
	return ownerID, nil
}

// SoftDeleteOwner 软删除
func (r *PostgresPropertyOwnersRepository) SoftDeleteOwner(ctx context.Context, tenantID, ownerID string) error {
	if tenantID == "" || ownerID == "" {
		return fmt.Errorf("tenant_id and owner_id are required: %w", domain.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE property_owners SET deleted_at = now(), updated_at = now()
		 WHERE agency_id = $1::uuid AND owner_id = $2::uuid AND deleted_at IS NULL`,
		tenantID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete property owner: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("property owner not found: %w", domain.ErrNotFound)
	}
	return nil
}
