package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PostgresUsersRepository 员工/注册用户Repository实现
type PostgresUsersRepository struct {
	db *sql.DB
}

// NewPostgresUsersRepository 创建User Repository
func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

// 确保实现了接口
var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id::text,
	person_id::text,
	email,
	password_digest,
	first_name,
	COALESCE(last_name, '') AS last_name,
	COALESCE(middle_name, '') AS middle_name,
	role,
	last_sign_in_at,
	deleted_at,
	created_at,
	updated_at
`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var lastSignInAt, deletedAt sql.NullTime
	err := row.Scan(
		&u.UserID,
		&u.PersonID,
		&u.Email,
		&u.PasswordDigest,
		&u.FirstName,
		&u.LastName,
		&u.MiddleName,
		&u.Role,
		&lastSignInAt,
		&deletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSignInAt.Valid {
		t := lastSignInAt.Time
		u.LastSignInAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return &u, nil
}

// GetUser 根据user_id获取
func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE user_id = $1::uuid AND deleted_at IS NULL`, userColumns)
	u, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail 根据email获取（登录用）
func (r *PostgresUsersRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrInvalidArgument)
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`, userColumns)
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// CreateUser 创建用户
func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	if user == nil || user.PersonID == "" || user.Email == "" || user.PasswordDigest == "" || user.FirstName == "" {
		return "", fmt.Errorf("person_id, email, password_digest and first_name are required: %w", domain.ErrInvalidArgument)
	}
	role := user.Role
	if role == "" {
		role = domain.UserRoleAgent
	}
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %q: %w", role, domain.ErrInvalidArgument)
	}

	userID := user.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	query := `
		INSERT INTO users (user_id, person_id, email, password_digest, first_name, last_name, middle_name, role)
		VALUES ($1::uuid, $2::uuid, lower($3), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING user_id::text
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		userID, user.PersonID, user.Email, user.PasswordDigest,
		user.FirstName, user.LastName, user.MiddleName, string(role),
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", fmt.Errorf("person does not exist: %w", domain.ErrInvalidArgument)
		}
		return "", wrapConflict(err, "failed to create user")
	}
	return id, nil
}

// AddUserToAgency 建立用户-机构成员关系（已存在时幂等，可刷新is_default）
func (r *PostgresUsersRepository) AddUserToAgency(ctx context.Context, userID, agencyID string, isDefault bool) error {
	if userID == "" || agencyID == "" {
		return fmt.Errorf("user_id and agency_id are required: %w", domain.ErrInvalidArgument)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_agencies (user_id, agency_id, is_default)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT (user_id, agency_id) DO UPDATE SET is_default = EXCLUDED.is_default
	`, userID, agencyID, isDefault)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user or agency does not exist: %w", domain.ErrInvalidArgument)
		}
		return fmt.Errorf("failed to add user to agency: %w", err)
	}
	return nil
}

// GetDefaultAgencyID 用户默认机构；没有标记默认时退回最早加入的机构
func (r *PostgresUsersRepository) GetDefaultAgencyID(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id is required: %w", domain.ErrInvalidArgument)
	}

	var agencyID string
	err := r.db.QueryRowContext(ctx, `
		SELECT agency_id::text FROM user_agencies
		WHERE user_id = $1::uuid
		ORDER BY is_default DESC, created_at ASC
		LIMIT 1
	`, userID).Scan(&agencyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("user has no agency: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get default agency: %w", err)
	}
	return agencyID, nil
}

// IsMemberOfAgency 用户是否属于某机构
func (r *PostgresUsersRepository) IsMemberOfAgency(ctx context.Context, userID, agencyID string) (bool, error) {
	if userID == "" || agencyID == "" {
		return false, fmt.Errorf("user_id and agency_id are required: %w", domain.ErrInvalidArgument)
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_agencies WHERE user_id = $1::uuid AND agency_id = $2::uuid
		)
	`, userID, agencyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check agency membership: %w", err)
	}
	return exists, nil
}

// CountActiveEmployees 机构内活跃员工数量
func (r *PostgresUsersRepository) CountActiveEmployees(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("agency_id is required: %w", domain.ErrInvalidArgument)
	}

	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM user_agencies ua
		JOIN users u ON u.user_id = ua.user_id
		WHERE ua.agency_id = $1::uuid AND u.deleted_at IS NULL
	`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return count, nil
}

// UpdateLastSignIn 记录最近登录时间
func (r *PostgresUsersRepository) UpdateLastSignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required: %w", domain.ErrInvalidArgument)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_sign_in_at = now(), updated_at = now() WHERE user_id = $1::uuid AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last sign in: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}
