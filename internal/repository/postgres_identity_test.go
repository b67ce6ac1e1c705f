package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

func setupIdentityMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresIdentityRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresIdentityRepository(db)
}

func strPtr(s string) *string { return &s }

func TestResolveCustomer_CreatesWholeChain(t *testing.T) {
	db, mock, repo := setupIdentityMock(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	// Person：新电话直接插入成功
	mock.ExpectQuery(`INSERT INTO persons`).
		WithArgs("77001234567").
		WillReturnRows(personRows("person-1", "77001234567"))
	// Contact：不存在
	mock.ExpectQuery(`SELECT(.|\n)*FROM contacts`).
		WithArgs("agency-1", "person-1").
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}))
	mock.ExpectQuery(`INSERT INTO contacts`).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "created_at", "updated_at"}).
			AddRow("contact-1", now, now))
	// Customer：不存在
	mock.ExpectQuery(`SELECT(.|\n)*FROM customers`).
		WithArgs("agency-1", "contact-1").
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}))
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "created_at", "updated_at"}).
			AddRow("customer-1", now, now))
	mock.ExpectCommit()

	customer, err := repo.ResolveCustomer(context.Background(), "agency-1", "77001234567",
		domain.ContactPatch{FirstName: strPtr("Aigerim")},
		domain.CustomerPatch{},
		domain.ServiceTypeBuy,
	)
	require.NoError(t, err)

	assert.Equal(t, "customer-1", customer.CustomerID)
	assert.Equal(t, domain.ServiceTypeBuy, customer.ServiceType)
	require.NotNil(t, customer.Contact)
	assert.Equal(t, "contact-1", customer.Contact.ContactID)
	assert.Equal(t, "Aigerim", customer.Contact.FirstName)
	require.NotNil(t, customer.Person)
	assert.Equal(t, "person-1", customer.Person.PersonID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveCustomer_DefaultsFirstNamePlaceholder(t *testing.T) {
	db, mock, repo := setupIdentityMock(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO persons`).
		WillReturnRows(personRows("person-1", "77001234567"))
	mock.ExpectQuery(`SELECT(.|\n)*FROM contacts`).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}))
	// 姓名缺失时插入占位符
	mock.ExpectQuery(`INSERT INTO contacts`).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "created_at", "updated_at"}).
			AddRow("contact-1", now, now))
	mock.ExpectQuery(`SELECT(.|\n)*FROM customers`).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}))
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "created_at", "updated_at"}).
			AddRow("customer-1", now, now))
	mock.ExpectCommit()

	customer, err := repo.ResolveCustomer(context.Background(), "agency-1", "77001234567",
		domain.ContactPatch{}, domain.CustomerPatch{}, domain.ServiceTypeBuy)
	require.NoError(t, err)
	assert.Equal(t, domain.ContactNamePlaceholder, customer.Contact.FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveContact_MergesAndReactivatesExisting(t *testing.T) {
	db, mock, repo := setupIdentityMock(t)
	defer db.Close()

	now := time.Now()
	deletedAt := now.Add(-time.Hour)

	mock.ExpectBegin()
	// Person 已存在：插入零行后回查
	mock.ExpectQuery(`INSERT INTO persons`).
		WillReturnRows(sqlmock.NewRows([]string{"person_id"}))
	mock.ExpectQuery(`SELECT(.|\n)*FROM persons`).
		WillReturnRows(personRows("person-1", "77001234567"))
	// Contact 已存在且被软删除
	mock.ExpectQuery(`SELECT(.|\n)*FROM contacts`).
		WithArgs("agency-1", "person-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"contact_id", "agency_id", "person_id", "first_name", "last_name",
			"middle_name", "email", "extra_phones", "notes", "deleted_at", "created_at", "updated_at",
		}).AddRow("contact-1", "agency-1", "person-1", "Aigerim", "Satpaeva",
			"", "", "{77001111111}", "old notes", deletedAt, now, now))
	// 合并后的整行 UPDATE（deleted_at 置 NULL）
	mock.ExpectExec(`UPDATE contacts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	contact, person, err := repo.ResolveContact(context.Background(), "agency-1", "77001234567",
		domain.ContactPatch{
			LastName:    strPtr("Nurlanova"),
			ExtraPhones: []string{"77002222222"},
		})
	require.NoError(t, err)

	assert.Equal(t, "person-1", person.PersonID)
	assert.Equal(t, "contact-1", contact.ContactID)
	// first_name 未提供：保留现值
	assert.Equal(t, "Aigerim", contact.FirstName)
	// last_name 提供：覆盖
	assert.Equal(t, "Nurlanova", contact.LastName)
	// extra_phones 并集合并
	assert.Equal(t, []string{"77001111111", "77002222222"}, contact.ExtraPhones)
	// 软删除被撤销
	assert.Nil(t, contact.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveContact_RejectsMergedExtraPhonesOverLimit(t *testing.T) {
	db, mock, repo := setupIdentityMock(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO persons`).
		WillReturnRows(personRows("person-1", "77001234567"))
	// 现有卡片已带 8 个附加电话
	mock.ExpectQuery(`SELECT(.|\n)*FROM contacts`).
		WithArgs("agency-1", "person-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"contact_id", "agency_id", "person_id", "first_name", "last_name",
			"middle_name", "email", "extra_phones", "notes", "deleted_at", "created_at", "updated_at",
		}).AddRow("contact-1", "agency-1", "person-1", "Aigerim", "",
			"", "", "{77010000001,77010000002,77010000003,77010000004,77010000005,77010000006,77010000007,77010000008}",
			"", nil, now, now))
	// 并集超限：不执行 UPDATE，事务回滚
	mock.ExpectRollback()

	incoming := []string{"77020000001", "77020000002", "77020000003", "77020000004", "77020000005"}
	_, _, err := repo.ResolveContact(context.Background(), "agency-1", "77001234567",
		domain.ContactPatch{ExtraPhones: incoming})
	require.Error(t, err)

	var v *domain.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "extra_phones")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveContact_LostInsertRaceReturnsConflict(t *testing.T) {
	db, mock, repo := setupIdentityMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO persons`).
		WillReturnRows(personRows("person-1", "77001234567"))
	mock.ExpectQuery(`SELECT(.|\n)*FROM contacts`).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}))
	// 并发竞争：ON CONFLICT DO NOTHING 吞掉了插入且事务内看不到赢家的行
	mock.ExpectQuery(`INSERT INTO contacts`).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}))
	mock.ExpectRollback()

	_, _, err := repo.ResolveContact(context.Background(), "agency-1", "77001234567", domain.ContactPatch{})
	assert.ErrorIs(t, err, domain.ErrUniquenessConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveCustomer_RequiresTenant(t *testing.T) {
	db, _, repo := setupIdentityMock(t)
	defer db.Close()

	_, err := repo.ResolveCustomer(context.Background(), "", "77001234567",
		domain.ContactPatch{}, domain.CustomerPatch{}, domain.ServiceTypeBuy)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
