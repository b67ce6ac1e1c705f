package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// Repositories 聚合所有Repository实现（main 中一次性构建）
type Repositories struct {
	Agencies    AgenciesRepository
	Persons     PersonsRepository
	Contacts    ContactsRepository
	Customers   CustomersRepository
	Owners      PropertyOwnersRepository
	BuyRequests BuyRequestsRepository
	Properties  PropertiesRepository
	Users       UsersRepository
	Identity    IdentityRepository
}

// New 基于同一个 *sql.DB 构建全部Repository
func New(db *sql.DB) *Repositories {
	return &Repositories{
		Agencies:    NewPostgresAgenciesRepository(db),
		Persons:     NewPostgresPersonsRepository(db),
		Contacts:    NewPostgresContactsRepository(db),
		Customers:   NewPostgresCustomersRepository(db),
		Owners:      NewPostgresPropertyOwnersRepository(db),
		BuyRequests: NewPostgresBuyRequestsRepository(db),
		Properties:  NewPostgresPropertiesRepository(db),
		Users:       NewPostgresUsersRepository(db),
		Identity:    NewPostgresIdentityRepository(db),
	}
}

// isUniqueViolation 判断是否为PostgreSQL唯一约束冲突（SQLSTATE 23505）
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// isForeignKeyViolation 判断是否为外键约束冲突（SQLSTATE 23503）
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

// wrapConflict 把底层唯一冲突映射为领域错误，其余原样包装
func wrapConflict(err error, msg string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", msg, domain.ErrUniquenessConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
