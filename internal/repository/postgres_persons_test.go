package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

func setupPersonsMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresPersonsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresPersonsRepository(db)
}

func personRows(personID, phone string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"person_id", "normalized_phone", "is_active", "blocked_at", "created_at", "updated_at"}).
		AddRow(personID, phone, true, nil, now, now)
}

func TestEnsurePerson_Inserts(t *testing.T) {
	db, mock, repo := setupPersonsMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO persons`).
		WithArgs("77001234567").
		WillReturnRows(personRows("person-1", "77001234567"))

	p, err := repo.EnsurePerson(context.Background(), "77001234567")
	require.NoError(t, err)
	assert.Equal(t, "person-1", p.PersonID)
	assert.Equal(t, "77001234567", p.NormalizedPhone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsurePerson_ReselectsExisting(t *testing.T) {
	db, mock, repo := setupPersonsMock(t)
	defer db.Close()

	// 已存在：DO NOTHING 导致插入零行，随后按唯一键回查
	mock.ExpectQuery(`INSERT INTO persons`).
		WithArgs("77001234567").
		WillReturnRows(sqlmock.NewRows([]string{"person_id"}))
	mock.ExpectQuery(`SELECT(.|\n)*FROM persons`).
		WithArgs("77001234567").
		WillReturnRows(personRows("person-1", "77001234567"))

	p, err := repo.EnsurePerson(context.Background(), "77001234567")
	require.NoError(t, err)
	assert.Equal(t, "person-1", p.PersonID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsurePerson_RequiresPhone(t *testing.T) {
	db, _, repo := setupPersonsMock(t)
	defer db.Close()

	_, err := repo.EnsurePerson(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUpdatePhone_MapsUniqueViolation(t *testing.T) {
	db, mock, repo := setupPersonsMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE persons SET normalized_phone`).
		WithArgs("person-1", "77009999999").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.UpdatePhone(context.Background(), "person-1", "77009999999")
	assert.ErrorIs(t, err, domain.ErrUniquenessConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePhone_NotFound(t *testing.T) {
	db, mock, repo := setupPersonsMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE persons SET normalized_phone`).
		WithArgs("person-missing", "77009999999").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePhone(context.Background(), "person-missing", "77009999999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
