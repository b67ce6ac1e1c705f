package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresPersonsRepository 全局身份Repository实现
type PostgresPersonsRepository struct {
	db *sql.DB
}

// NewPostgresPersonsRepository 创建Person Repository
func NewPostgresPersonsRepository(db *sql.DB) *PostgresPersonsRepository {
	return &PostgresPersonsRepository{db: db}
}

// 确保实现了接口
var _ PersonsRepository = (*PostgresPersonsRepository)(nil)

const personColumns = `
	person_id::text,
	normalized_phone,
	is_active,
	blocked_at,
	created_at,
	updated_at
`

func scanPerson(row *sql.Row) (*domain.Person, error) {
	var p domain.Person
	var blockedAt sql.NullTime
	err := row.Scan(
		&p.PersonID,
		&p.NormalizedPhone,
		&p.IsActive,
		&blockedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if blockedAt.Valid {
		t := blockedAt.Time
		p.BlockedAt = &t
	}
	return &p, nil
}

// GetPerson 根据person_id获取
func (r *PostgresPersonsRepository) GetPerson(ctx context.Context, personID string) (*domain.Person, error) {
	if personID == "" {
		return nil, fmt.Errorf("person_id is required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`SELECT %s FROM persons WHERE person_id = $1::uuid`, personColumns)
	p, err := scanPerson(r.db.QueryRowContext(ctx, query, personID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("person not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// FindByPhone 根据规范化电话查找
func (r *PostgresPersonsRepository) FindByPhone(ctx context.Context, normalizedPhone string) (*domain.Person, error) {
	if normalizedPhone == "" {
		return nil, fmt.Errorf("normalized_phone is required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`SELECT %s FROM persons WHERE normalized_phone = $1`, personColumns)
	p, err := scanPerson(r.db.QueryRowContext(ctx, query, normalizedPhone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("person not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find person by phone: %w", err)
	}
	return p, nil
}

// EnsurePerson 按规范化电话 find-or-create（幂等）
func (r *PostgresPersonsRepository) EnsurePerson(ctx context.Context, normalizedPhone string) (*domain.Person, error) {
	return ensurePerson(ctx, r.db, normalizedPhone)
}

// queryer 兼容 *sql.DB 与 *sql.Tx（身份解析事务内复用同一套 upsert）
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ensurePerson select-then-insert-with-conflict-handling：
// 先尝试插入（撞唯一约束时 DO NOTHING），再按同一键回查。
// 两个并发调用最多一个插入成功，双方都能回查到同一行。
func ensurePerson(ctx context.Context, q queryer, normalizedPhone string) (*domain.Person, error) {
	if normalizedPhone == "" {
		return nil, fmt.Errorf("normalized_phone is required: %w", domain.ErrInvalidArgument)
	}

	insert := fmt.Sprintf(`
		INSERT INTO persons (normalized_phone)
		VALUES ($1)
		ON CONFLICT (normalized_phone) DO NOTHING
		RETURNING %s
	`, personColumns)

	p, err := scanPerson(q.QueryRowContext(ctx, insert, normalizedPhone))
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to insert person: %w", err)
	}

	// 已存在（本次插入被 DO NOTHING 吞掉）：按唯一键回查
	query := fmt.Sprintf(`SELECT %s FROM persons WHERE normalized_phone = $1`, personColumns)
	p, err = scanPerson(q.QueryRowContext(ctx, query, normalizedPhone))
	if err != nil {
		if err == sql.ErrNoRows {
			// 插入与回查之间行被并发删除；persons 不物理删除，按冲突上报
			return nil, fmt.Errorf("person vanished after upsert: %w", domain.ErrUniquenessConflict)
		}
		return nil, fmt.Errorf("failed to reselect person: %w", err)
	}
	return p, nil
}

// UpdatePhone 修改主电话（重新规范化后的值）
func (r *PostgresPersonsRepository) UpdatePhone(ctx context.Context, personID, normalizedPhone string) error {
	return updatePersonPhone(ctx, r.db, personID, normalizedPhone)
}

// updatePersonPhone 事务内外共用的主电话改写
func updatePersonPhone(ctx context.Context, q queryer, personID, normalizedPhone string) error {
	if personID == "" || normalizedPhone == "" {
		return fmt.Errorf("person_id and normalized_phone are required: %w", domain.ErrInvalidArgument)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE persons SET normalized_phone = $2, updated_at = now() WHERE person_id = $1::uuid`,
		personID, normalizedPhone,
	)
	if err != nil {
		return wrapConflict(err, "failed to update person phone")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("person not found: %w", domain.ErrNotFound)
	}
	return nil
}

// SetBlocked 封禁/解封
func (r *PostgresPersonsRepository) SetBlocked(ctx context.Context, personID string, blocked bool) error {
	if personID == "" {
		return fmt.Errorf("person_id is required: %w", domain.ErrInvalidArgument)
	}

	var query string
	if blocked {
		query = `UPDATE persons SET is_active = FALSE, blocked_at = now(), updated_at = now() WHERE person_id = $1::uuid`
	} else {
		query = `UPDATE persons SET is_active = TRUE, blocked_at = NULL, updated_at = now() WHERE person_id = $1::uuid`
	}

	result, err := r.db.ExecContext(ctx, query, personID)
	if err != nil {
		return fmt.Errorf("failed to set person blocked: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("person not found: %w", domain.ErrNotFound)
	}
	return nil
}
