package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresPropertiesRepository 房产Repository实现
type PostgresPropertiesRepository struct {
	db *sql.DB
}

// NewPostgresPropertiesRepository 创建Property Repository
func NewPostgresPropertiesRepository(db *sql.DB) *PostgresPropertiesRepository {
	return &PostgresPropertiesRepository{db: db}
}

// 确保实现了接口
var _ PropertiesRepository = (*PostgresPropertiesRepository)(nil)

const propertyColumns = `
	property_id::text,
	agency_id::text,
	title,
	price,
	status,
	deleted_at,
	created_at,
	updated_at
`

func scanProperty(row *sql.Row) (*domain.Property, error) {
	var p domain.Property
	var deletedAt sql.NullTime
	err := row.Scan(
		&p.PropertyID,
		&p.AgencyID,
		&p.Title,
		&p.Price,
		&p.Status,
		&deletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

// GetProperty 租户内按property_id获取
func (r *PostgresPropertiesRepository) GetProperty(ctx context.Context, tenantID, propertyID string) (*domain.Property, error) {
	if tenantID == "" || propertyID == "" {
		return nil, fmt.Errorf("agency_id and property_id are required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM properties
		WHERE agency_id = $1::uuid AND property_id = $2::uuid AND deleted_at IS NULL
	`, propertyColumns)

	p, err := scanProperty(r.db.QueryRowContext(ctx, query, tenantID, propertyID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("property not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// CreateProperty 创建房产
func (r *PostgresPropertiesRepository) CreateProperty(ctx context.Context, tenantID string, property *domain.Property) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("agency_id is required: %w", domain.ErrInvalidArgument)
	}
	if property == nil || property.Title == "" {
		return "", fmt.Errorf("title is required: %w", domain.ErrInvalidArgument)
	}

	propertyID := property.PropertyID
	if propertyID == "" {
		propertyID = uuid.NewString()
	}

	query := `
		INSERT INTO properties (property_id, agency_id, title, price, status)
		VALUES ($1::uuid, $2::uuid, $3, $4, COALESCE(NULLIF($5, ''), 'active'))
		RETURNING property_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		propertyID, tenantID, property.Title, property.Price, property.Status,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", fmt.Errorf("agency does not exist: %w", domain.ErrInvalidArgument)
		}
		return "", wrapConflict(err, "failed to create property")
	}
	return id, nil
}

// CountActiveProperties 租户内未删除房产数量
func (r *PostgresPropertiesRepository) CountActiveProperties(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("agency_id is required: %w", domain.ErrInvalidArgument)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM properties WHERE agency_id = $1::uuid AND deleted_at IS NULL`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return count, nil
}

// SoftDeleteProperty 软删除房产
func (r *PostgresPropertiesRepository) SoftDeleteProperty(ctx context.Context, tenantID, propertyID string) error {
	if tenantID == "" || propertyID == "" {
		return fmt.Errorf("agency_id and property_id are required: %w", domain.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE properties SET deleted_at = now(), updated_at = now()
		WHERE agency_id = $1::uuid AND property_id = $2::uuid AND deleted_at IS NULL
	`, tenantID, propertyID)
	if err != nil {
		return fmt.Errorf("failed to soft delete property: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("property not found: %w", domain.ErrNotFound)
	}
	return nil
}

// InsertPhoto 写入一张照片；position 取当前最大值+1
func (r *PostgresPropertiesRepository) InsertPhoto(ctx context.Context, tenantID string, photo *domain.PropertyPhoto) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("agency_id is required: %w", domain.ErrInvalidArgument)
	}
	if photo == nil || photo.PropertyID == "" || photo.FileURL == "" {
		return "", fmt.Errorf("property_id and file_url are required: %w", domain.ErrInvalidArgument)
	}

	photoID := photo.PhotoID
	if photoID == "" {
		photoID = uuid.NewString()
	}

	// INSERT ... SELECT 保证房产属于本租户且未删除，否则零行插入
	query := `
		INSERT INTO property_photos (photo_id, property_id, agency_id, file_url, content_type, size_bytes, position)
		SELECT $1::uuid, p.property_id, p.agency_id, $4, NULLIF($5, ''), $6,
			COALESCE((SELECT MAX(position) + 1 FROM property_photos WHERE property_id = p.property_id), 0)
		FROM properties p
		WHERE p.property_id = $2::uuid AND p.agency_id = $3::uuid AND p.deleted_at IS NULL
		RETURNING photo_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		photoID, photo.PropertyID, tenantID, photo.FileURL, photo.ContentType, photo.SizeBytes,
	).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("property not found in agency: %w", domain.ErrInvalidArgument)
		}
		return "", wrapConflict(err, "failed to insert property photo")
	}
	return id, nil
}

// CountPhotos 某房产已有照片数量
func (r *PostgresPropertiesRepository) CountPhotos(ctx context.Context, tenantID, propertyID string) (int, error) {
	if tenantID == "" || propertyID == "" {
		return 0, fmt.Errorf("agency_id and property_id are required: %w", domain.ErrInvalidArgument)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM property_photos WHERE agency_id = $1::uuid AND property_id = $2::uuid`,
		tenantID, propertyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count property photos: %w", err)
	}
	return count, nil
}
