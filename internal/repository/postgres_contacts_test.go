package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

func setupContactsMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresContactsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresContactsRepository(db)
}

func TestUpdateContactWithPhone_CommitsBothWrites(t *testing.T) {
	db, mock, repo := setupContactsMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE persons SET normalized_phone`).
		WithArgs("person-1", "77009999999").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE contacts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateContactWithPhone(context.Background(), "agency-1", "contact-1", "person-1", "77009999999",
		domain.ContactPatch{LastName: strPtr("Nurlanova")})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContactWithPhone_RollsBackPhoneOnContactFailure(t *testing.T) {
	db, mock, repo := setupContactsMock(t)
	defer db.Close()

	// 电话改写成功后联系人更新失败：整个事务回滚，电话不残留
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE persons SET normalized_phone`).
		WithArgs("person-1", "77009999999").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE contacts`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.UpdateContactWithPhone(context.Background(), "agency-1", "contact-1", "person-1", "77009999999",
		domain.ContactPatch{LastName: strPtr("Nurlanova")})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContactWithPhone_RollsBackOnPhoneConflict(t *testing.T) {
	db, mock, repo := setupContactsMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE persons SET normalized_phone`).
		WithArgs("person-1", "77009999999").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.UpdateContactWithPhone(context.Background(), "agency-1", "contact-1", "person-1", "77009999999",
		domain.ContactPatch{})
	assert.ErrorIs(t, err, domain.ErrUniquenessConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContactWithPhone_EmptyPatchTouchesContact(t *testing.T) {
	db, mock, repo := setupContactsMock(t)
	defer db.Close()

	// 纯改电话的请求：联系人侧只刷新 updated_at
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE persons SET normalized_phone`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE contacts\s+SET updated_at = now\(\)`).
		WithArgs("agency-1", "contact-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateContactWithPhone(context.Background(), "agency-1", "contact-1", "person-1", "77009999999",
		domain.ContactPatch{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContact_RejectsEmptyPatch(t *testing.T) {
	db, _, repo := setupContactsMock(t)
	defer db.Close()

	err := repo.UpdateContact(context.Background(), "agency-1", "contact-1", domain.ContactPatch{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
