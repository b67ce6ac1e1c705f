// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/pkg/commoncfg"
	"github.com/rubyhat/cloudsquares-api/pkg/database"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getTestDBForIdentity(t *testing.T) *sql.DB {
	cfg := &commoncfg.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "cloudsquares"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}

	return db
}

// 创建测试机构
func createTestAgencyForIdentity(t *testing.T, db *sql.DB, agencyID, slug string) {
	_, err := db.Exec(
		`INSERT INTO agencies (agency_id, title, slug)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (agency_id) DO UPDATE SET title = EXCLUDED.title`,
		agencyID, "Test Agency "+slug, slug,
	)
	if err != nil {
		t.Fatalf("Failed to create test agency: %v", err)
	}
}

// 清理测试数据（依赖顺序：customers -> contacts -> persons -> agencies）
func cleanupTestDataForIdentity(t *testing.T, db *sql.DB, agencyIDs []string, phones []string) {
	for _, agencyID := range agencyIDs {
		db.Exec(`DELETE FROM customers WHERE agency_id = $1`, agencyID)
		db.Exec(`DELETE FROM contacts WHERE agency_id = $1`, agencyID)
		db.Exec(`DELETE FROM agencies WHERE agency_id = $1`, agencyID)
	}
	for _, phone := range phones {
		db.Exec(`DELETE FROM persons WHERE normalized_phone = $1`, phone)
	}
}

func TestPostgresIdentityRepository_ResolveIsIdempotent(t *testing.T) {
	db := getTestDBForIdentity(t)
	if db == nil {
		return
	}
	defer db.Close()

	agencyID := "00000000-0000-0000-0000-000000000901"
	phone := "77009990001"
	createTestAgencyForIdentity(t, db, agencyID, "test-identity-901")
	defer cleanupTestDataForIdentity(t, db, []string{agencyID}, []string{phone})

	repo := NewPostgresIdentityRepository(db)
	ctx := context.Background()

	firstName := "Aigerim"
	first, err := repo.ResolveCustomer(ctx, agencyID, phone,
		domain.ContactPatch{FirstName: &firstName}, domain.CustomerPatch{}, domain.ServiceTypeBuy)
	if err != nil {
		t.Fatalf("ResolveCustomer failed: %v", err)
	}

	// 同样的电话再次解析：复用同一条链
	second, err := repo.ResolveCustomer(ctx, agencyID, phone,
		domain.ContactPatch{}, domain.CustomerPatch{}, domain.ServiceTypeBuy)
	if err != nil {
		t.Fatalf("ResolveCustomer (second) failed: %v", err)
	}

	if second.CustomerID != first.CustomerID {
		t.Errorf("Expected same customer_id '%s', got '%s'", first.CustomerID, second.CustomerID)
	}
	if second.ContactID != first.ContactID {
		t.Errorf("Expected same contact_id '%s', got '%s'", first.ContactID, second.ContactID)
	}
	if second.Person.PersonID != first.Person.PersonID {
		t.Errorf("Expected same person_id '%s', got '%s'", first.Person.PersonID, second.Person.PersonID)
	}
	// 空补丁不覆盖已有姓名
	if second.Contact.FirstName != firstName {
		t.Errorf("Expected first_name '%s', got '%s'", firstName, second.Contact.FirstName)
	}

	t.Logf("✅ ResolveIsIdempotent test passed: customerID=%s", first.CustomerID)
}

func TestPostgresIdentityRepository_SamePersonAcrossAgencies(t *testing.T) {
	db := getTestDBForIdentity(t)
	if db == nil {
		return
	}
	defer db.Close()

	agencyA := "00000000-0000-0000-0000-000000000902"
	agencyB := "00000000-0000-0000-0000-000000000903"
	phone := "77009990002"
	createTestAgencyForIdentity(t, db, agencyA, "test-identity-902")
	createTestAgencyForIdentity(t, db, agencyB, "test-identity-903")
	defer cleanupTestDataForIdentity(t, db, []string{agencyA, agencyB}, []string{phone})

	repo := NewPostgresIdentityRepository(db)
	ctx := context.Background()

	inA, err := repo.ResolveCustomer(ctx, agencyA, phone,
		domain.ContactPatch{}, domain.CustomerPatch{}, domain.ServiceTypeBuy)
	if err != nil {
		t.Fatalf("ResolveCustomer (agency A) failed: %v", err)
	}

	inB, err := repo.ResolveCustomer(ctx, agencyB, phone,
		domain.ContactPatch{}, domain.CustomerPatch{}, domain.ServiceTypeSell)
	if err != nil {
		t.Fatalf("ResolveCustomer (agency B) failed: %v", err)
	}

	// 同一个全局 Person，但每个机构有自己的 Contact/Customer
	if inA.Person.PersonID != inB.Person.PersonID {
		t.Errorf("Expected shared person across agencies, got '%s' and '%s'", inA.Person.PersonID, inB.Person.PersonID)
	}
	if inA.ContactID == inB.ContactID {
		t.Error("Expected distinct contacts per agency")
	}
	if inA.CustomerID == inB.CustomerID {
		t.Error("Expected distinct customers per agency")
	}

	t.Logf("✅ SamePersonAcrossAgencies test passed: personID=%s", inA.Person.PersonID)
}

func TestPostgresIdentityRepository_FirstNamePlaceholder(t *testing.T) {
	db := getTestDBForIdentity(t)
	if db == nil {
		return
	}
	defer db.Close()

	agencyID := "00000000-0000-0000-0000-000000000904"
	phone := "77009990003"
	createTestAgencyForIdentity(t, db, agencyID, "test-identity-904")
	defer cleanupTestDataForIdentity(t, db, []string{agencyID}, []string{phone})

	repo := NewPostgresIdentityRepository(db)
	ctx := context.Background()

	customer, err := repo.ResolveCustomer(ctx, agencyID, phone,
		domain.ContactPatch{}, domain.CustomerPatch{}, domain.ServiceTypeBuy)
	if err != nil {
		t.Fatalf("ResolveCustomer failed: %v", err)
	}

	if customer.Contact.FirstName != domain.ContactNamePlaceholder {
		t.Errorf("Expected first_name placeholder '%s', got '%s'",
			domain.ContactNamePlaceholder, customer.Contact.FirstName)
	}

	t.Logf("✅ FirstNamePlaceholder test passed: contactID=%s", customer.ContactID)
}

func TestPostgresIdentityRepository_ExtraPhonesUnion(t *testing.T) {
	db := getTestDBForIdentity(t)
	if db == nil {
		return
	}
	defer db.Close()

	agencyID := "00000000-0000-0000-0000-000000000905"
	phone := "77009990004"
	createTestAgencyForIdentity(t, db, agencyID, "test-identity-905")
	defer cleanupTestDataForIdentity(t, db, []string{agencyID}, []string{phone})

	repo := NewPostgresIdentityRepository(db)
	ctx := context.Background()

	_, err := repo.ResolveCustomer(ctx, agencyID, phone,
		domain.ContactPatch{ExtraPhones: []string{"77001111111"}},
		domain.CustomerPatch{}, domain.ServiceTypeBuy)
	if err != nil {
		t.Fatalf("ResolveCustomer failed: %v", err)
	}

	customer, err := repo.ResolveCustomer(ctx, agencyID, phone,
		domain.ContactPatch{ExtraPhones: []string{"77002222222", "77001111111"}},
		domain.CustomerPatch{}, domain.ServiceTypeBuy)
	if err != nil {
		t.Fatalf("ResolveCustomer (second) failed: %v", err)
	}

	got := customer.Contact.ExtraPhones
	if len(got) != 2 {
		t.Fatalf("Expected 2 extra phones after union, got %d: %v", len(got), got)
	}
	if got[0] != "77001111111" || got[1] != "77002222222" {
		t.Errorf("Expected union [77001111111 77002222222], got %v", got)
	}

	t.Logf("✅ ExtraPhonesUnion test passed: contactID=%s", customer.ContactID)
}
