package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// fakeIdentityRepo 可编程的 IdentityRepository 桩
type fakeIdentityRepo struct {
	resolveCustomerCalls int
	resolveContactCalls  int
	failuresBeforeOK     int

	lastTenantID    string
	lastPhone       string
	lastContact     domain.ContactPatch
	lastCustomer    domain.CustomerPatch
	lastDefaultType domain.ServiceType

	err error
}

func (f *fakeIdentityRepo) ResolveCustomer(ctx context.Context, tenantID, normalizedPhone string, contactPatch domain.ContactPatch, customerPatch domain.CustomerPatch, defaultServiceType domain.ServiceType) (*domain.Customer, error) {
	f.resolveCustomerCalls++
	f.lastTenantID = tenantID
	f.lastPhone = normalizedPhone
	f.lastContact = contactPatch
	f.lastCustomer = customerPatch
	f.lastDefaultType = defaultServiceType

	if f.err != nil {
		return nil, f.err
	}
	if f.resolveCustomerCalls <= f.failuresBeforeOK {
		return nil, domain.ErrUniquenessConflict
	}

	serviceType := defaultServiceType
	if customerPatch.ServiceType != nil {
		serviceType = *customerPatch.ServiceType
	}
	contact := &domain.Contact{ContactID: "contact-1", AgencyID: tenantID, PersonID: "person-1"}
	return &domain.Customer{
		CustomerID:  "customer-1",
		AgencyID:    tenantID,
		ContactID:   contact.ContactID,
		ServiceType: serviceType,
		Contact:     contact,
		Person:      &domain.Person{PersonID: "person-1", NormalizedPhone: normalizedPhone},
	}, nil
}

func (f *fakeIdentityRepo) ResolveContact(ctx context.Context, tenantID, normalizedPhone string, contactPatch domain.ContactPatch) (*domain.Contact, *domain.Person, error) {
	f.resolveContactCalls++
	f.lastTenantID = tenantID
	f.lastPhone = normalizedPhone
	f.lastContact = contactPatch

	if f.err != nil {
		return nil, nil, f.err
	}
	if f.resolveContactCalls <= f.failuresBeforeOK {
		return nil, nil, domain.ErrUniquenessConflict
	}
	return &domain.Contact{ContactID: "contact-1", AgencyID: tenantID, PersonID: "person-1"},
		&domain.Person{PersonID: "person-1", NormalizedPhone: normalizedPhone}, nil
}

func TestResolveCustomer_NormalizesPhone(t *testing.T) {
	repo := &fakeIdentityRepo{}
	svc := NewIdentityService(repo, zap.NewNop())

	resp, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
		AgencyID: "agency-1",
		Phone:    "+7 (700) 123-45-67",
	})
	require.NoError(t, err)

	assert.Equal(t, "77001234567", repo.lastPhone)
	assert.Equal(t, "customer-1", resp.Customer.CustomerID)
	assert.Equal(t, domain.ServiceTypeBuy, repo.lastDefaultType)
}

func TestResolveCustomer_RetriesOnceOnConflict(t *testing.T) {
	repo := &fakeIdentityRepo{failuresBeforeOK: 1}
	svc := NewIdentityService(repo, zap.NewNop())

	resp, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
		AgencyID: "agency-1",
		Phone:    "87001234567",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.resolveCustomerCalls)
	assert.Equal(t, "customer-1", resp.Customer.CustomerID)
}

func TestResolveCustomer_GivesUpAfterSecondConflict(t *testing.T) {
	repo := &fakeIdentityRepo{failuresBeforeOK: 5}
	svc := NewIdentityService(repo, zap.NewNop())

	_, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
		AgencyID: "agency-1",
		Phone:    "87001234567",
	})
	assert.ErrorIs(t, err, domain.ErrUniquenessConflict)
	// 只重试一次
	assert.Equal(t, 2, repo.resolveCustomerCalls)
}

func TestResolveCustomer_RejectsInvalidPhone(t *testing.T) {
	repo := &fakeIdentityRepo{}
	svc := NewIdentityService(repo, zap.NewNop())

	for _, raw := range []string{"", "123", "abc"} {
		_, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
			AgencyID: "agency-1",
			Phone:    raw,
		})
		// 主电话不合法 -> ErrInvalidArgument，且仓库不被触碰
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "phone %q", raw)
		assert.False(t, domain.IsValidationError(err), "phone %q", raw)
		assert.Zero(t, repo.resolveCustomerCalls)
	}
}

func TestResolveCustomer_RequiresAgency(t *testing.T) {
	repo := &fakeIdentityRepo{}
	svc := NewIdentityService(repo, zap.NewNop())

	_, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
		Phone: "87001234567",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestResolveCustomer_ValidatesServiceTypeAndEmail(t *testing.T) {
	repo := &fakeIdentityRepo{}
	svc := NewIdentityService(repo, zap.NewNop())

	st := "teleport"
	email := "not-an-email"
	_, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
		AgencyID:    "agency-1",
		Phone:       "87001234567",
		Email:       &email,
		ServiceType: &st,
	})
	require.Error(t, err)

	var v *domain.ValidationError
	require.ErrorAs(t, err, &v)
	// 邮箱先于 service_type 被拒（prepare 阶段收集）
	assert.Contains(t, v.Fields, "email")
}

func TestResolveCustomer_FiltersExtraPhones(t *testing.T) {
	repo := &fakeIdentityRepo{}
	svc := NewIdentityService(repo, zap.NewNop())

	_, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
		AgencyID: "agency-1",
		Phone:    "8 (700) 123-45-67",
		ExtraPhones: []string{
			"8 (700) 123-45-67", // 与主电话相同：剔除
			"8 (700) 765-43-21",
			"bogus",             // 无法规范化：剔除
			"8 (700) 765-43-21", // 重复：剔除
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"77007654321"}, repo.lastContact.ExtraPhones)
}

func TestResolveCustomer_NotesStayOnContact(t *testing.T) {
	repo := &fakeIdentityRepo{}
	svc := NewIdentityService(repo, zap.NewNop())

	notes := "звонить после 18:00"
	userID := "user-1"
	_, err := svc.ResolveCustomer(context.Background(), ResolveCustomerRequest{
		AgencyID: "agency-1",
		Phone:    "87001234567",
		Notes:    &notes,
		UserID:   &userID,
	})
	require.NoError(t, err)

	require.NotNil(t, repo.lastContact.Notes)
	assert.Equal(t, notes, *repo.lastContact.Notes)
	// Customer 补丁不携带 Notes
	assert.Nil(t, repo.lastCustomer.Notes)
	require.NotNil(t, repo.lastCustomer.UserID)
	assert.Equal(t, userID, *repo.lastCustomer.UserID)
}

func TestResolveContact_RetriesOnceOnConflict(t *testing.T) {
	repo := &fakeIdentityRepo{failuresBeforeOK: 1}
	svc := NewIdentityService(repo, zap.NewNop())

	resp, err := svc.ResolveContact(context.Background(), ResolveContactRequest{
		AgencyID: "agency-1",
		Phone:    "87001234567",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.resolveContactCalls)
	assert.Equal(t, "contact-1", resp.Contact.ContactID)
}
