package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresAgenciesRepository 机构Repository实现
type PostgresAgenciesRepository struct {
	db *sql.DB
}

// NewPostgresAgenciesRepository 创建Agency Repository
func NewPostgresAgenciesRepository(db *sql.DB) *PostgresAgenciesRepository {
	return &PostgresAgenciesRepository{db: db}
}

// 确保实现了接口
var _ AgenciesRepository = (*PostgresAgenciesRepository)(nil)

const agencyColumns = `
	agency_id::text,
	title,
	slug,
	COALESCE(custom_domain, '') AS custom_domain,
	COALESCE(agency_plan_id::text, '') AS agency_plan_id,
	is_blocked,
	blocked_at,
	deleted_at,
	COALESCE(created_by_id::text, '') AS created_by_id,
	created_at,
	updated_at
`

func scanAgency(row *sql.Row) (*domain.Agency, error) {
	var a domain.Agency
	var blockedAt, deletedAt sql.NullTime
	err := row.Scan(
		&a.AgencyID,
		&a.Title,
		&a.Slug,
		&a.CustomDomain,
		&a.AgencyPlanID,
		&a.IsBlocked,
		&blockedAt,
		&deletedAt,
		&a.CreatedByID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if blockedAt.Valid {
		t := blockedAt.Time
		a.BlockedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		a.DeletedAt = &t
	}
	return &a, nil
}

func (r *PostgresAgenciesRepository) getAgencyBy(ctx context.Context, where string, arg any) (*domain.Agency, error) {
	query := fmt.Sprintf(`SELECT %s FROM agencies WHERE %s AND deleted_at IS NULL`, agencyColumns, where)
	a, err := scanAgency(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("agency not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get agency: %w", err)
	}
	return a, nil
}

// GetAgency 根据agency_id获取
func (r *PostgresAgenciesRepository) GetAgency(ctx context.Context, agencyID string) (*domain.Agency, error) {
	if agencyID == "" {
		return nil, fmt.Errorf("agency_id is required: %w", domain.ErrInvalidArgument)
	}
	return r.getAgencyBy(ctx, `agency_id = $1::uuid`, agencyID)
}

// GetAgencyBySlug 根据slug获取
func (r *PostgresAgenciesRepository) GetAgencyBySlug(ctx context.Context, slug string) (*domain.Agency, error) {
	if slug == "" {
		return nil, fmt.Errorf("slug is required: %w", domain.ErrInvalidArgument)
	}
	return r.getAgencyBy(ctx, `slug = $1`, slug)
}

// GetAgencyByDomain 根据自定义域名获取
func (r *PostgresAgenciesRepository) GetAgencyByDomain(ctx context.Context, customDomain string) (*domain.Agency, error) {
	if customDomain == "" {
		return nil, fmt.Errorf("custom_domain is required: %w", domain.ErrInvalidArgument)
	}
	return r.getAgencyBy(ctx, `custom_domain = $1`, customDomain)
}

// CreateAgency 创建机构；slug/custom_domain 撞唯一约束返回 ErrUniquenessConflict。
// 未指定套餐时挂默认套餐（is_default = TRUE 的那一条，没有则为 NULL）。
func (r *PostgresAgenciesRepository) CreateAgency(ctx context.Context, agency *domain.Agency) (string, error) {
	if agency == nil || agency.Title == "" || agency.Slug == "" {
		return "", fmt.Errorf("title and slug are required: %w", domain.ErrInvalidArgument)
	}

	agencyID := agency.AgencyID
	if agencyID == "" {
		agencyID = uuid.NewString()
	}

	query := `
		INSERT INTO agencies (agency_id, title, slug, custom_domain, agency_plan_id, created_by_id)
		VALUES (
			$1::uuid, $2, $3, NULLIF($4, ''),
			COALESCE(
				NULLIF($5, '')::uuid,
				(SELECT plan_id FROM agency_plans WHERE is_default = TRUE AND deleted_at IS NULL LIMIT 1)
			),
			NULLIF($6, '')::uuid
		)
		RETURNING agency_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		agencyID, agency.Title, agency.Slug, agency.CustomDomain, agency.AgencyPlanID, agency.CreatedByID,
	).Scan(&id)
	if err != nil {
		return "", wrapConflict(err, "failed to create agency")
	}
	return id, nil
}

// GetPlanForAgency 机构当前套餐
func (r *PostgresAgenciesRepository) GetPlanForAgency(ctx context.Context, agencyID string) (*domain.AgencyPlan, error) {
	if agencyID == "" {
		return nil, fmt.Errorf("agency_id is required: %w", domain.ErrInvalidArgument)
	}

	query := `
		SELECT
			p.plan_id::text,
			p.title,
			p.max_employees,
			p.max_properties,
			p.max_photos,
			p.max_buy_requests,
			p.max_property_owners,
			p.is_default,
			p.deleted_at,
			p.created_at,
			p.updated_at
		FROM agency_plans p
		JOIN agencies a ON a.agency_plan_id = p.plan_id
		WHERE a.agency_id = $1::uuid AND p.deleted_at IS NULL
	`

	var plan domain.AgencyPlan
	var maxEmployees, maxProperties, maxPhotos, maxBuyRequests, maxOwners sql.NullInt64
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, agencyID).Scan(
		&plan.PlanID,
		&plan.Title,
		&maxEmployees,
		&maxProperties,
		&maxPhotos,
		&maxBuyRequests,
		&maxOwners,
		&plan.IsDefault,
		&deletedAt,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("agency plan not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get agency plan: %w", err)
	}

	plan.MaxEmployees = nullableInt(maxEmployees)
	plan.MaxProperties = nullableInt(maxProperties)
	plan.MaxPhotos = nullableInt(maxPhotos)
	plan.MaxBuyRequests = nullableInt(maxBuyRequests)
	plan.MaxPropertyOwners = nullableInt(maxOwners)
	if deletedAt.Valid {
		t := deletedAt.Time
		plan.DeletedAt = &t
	}
	return &plan, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// SetBlocked 封禁/解封机构
func (r *PostgresAgenciesRepository) SetBlocked(ctx context.Context, agencyID string, blocked bool) error {
	if agencyID == "" {
		return fmt.Errorf("agency_id is required: %w", domain.ErrInvalidArgument)
	}

	var query string
	if blocked {
		query = `UPDATE agencies SET is_blocked = TRUE, blocked_at = now(), updated_at = now() WHERE agency_id = $1::uuid AND deleted_at IS NULL`
	} else {
		query = `UPDATE agencies SET is_blocked = FALSE, blocked_at = NULL, updated_at = now() WHERE agency_id = $1::uuid AND deleted_at IS NULL`
	}

	result, err := r.db.ExecContext(ctx, query, agencyID)
	if err != nil {
		return fmt.Errorf("failed to set agency blocked: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("agency not found: %w", domain.ErrNotFound)
	}
	return nil
}
