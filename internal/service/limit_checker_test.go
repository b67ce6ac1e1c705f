package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// 嵌入接口的小桩：只实现限额检查会触碰的方法

type fakePlanRepo struct {
	repository.AgenciesRepository
	plan *domain.AgencyPlan
	err  error
}

func (f *fakePlanRepo) GetPlanForAgency(ctx context.Context, agencyID string) (*domain.AgencyPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

type fakeOwnerCounter struct {
	repository.PropertyOwnersRepository
	count int
}

func (f *fakeOwnerCounter) CountActiveOwners(ctx context.Context, tenantID, propertyID string) (int, error) {
	return f.count, nil
}

type fakeBuyRequestCounter struct {
	repository.BuyRequestsRepository
	count int
}

func (f *fakeBuyRequestCounter) CountActiveForAgency(ctx context.Context, tenantID string) (int, error) {
	return f.count, nil
}

func intPtr(n int) *int { return &n }

func TestEnsureOwnerQuota_DefaultLimitWithoutPlan(t *testing.T) {
	c := &LimitChecker{
		agenciesRepo: &fakePlanRepo{err: domain.ErrNotFound},
		ownersRepo:   &fakeOwnerCounter{count: domain.DefaultMaxPropertyOwners},
	}

	err := c.EnsureOwnerQuota(context.Background(), "agency-1", "property-1")
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
}

func TestEnsureOwnerQuota_UnderDefaultLimit(t *testing.T) {
	c := &LimitChecker{
		agenciesRepo: &fakePlanRepo{err: domain.ErrNotFound},
		ownersRepo:   &fakeOwnerCounter{count: domain.DefaultMaxPropertyOwners - 1},
	}

	require.NoError(t, c.EnsureOwnerQuota(context.Background(), "agency-1", "property-1"))
}

func TestEnsureOwnerQuota_NullPlanFieldMeansUnlimited(t *testing.T) {
	c := &LimitChecker{
		agenciesRepo: &fakePlanRepo{plan: &domain.AgencyPlan{MaxPropertyOwners: nil}},
		ownersRepo:   &fakeOwnerCounter{count: 10_000},
	}

	require.NoError(t, c.EnsureOwnerQuota(context.Background(), "agency-1", "property-1"))
}

func TestEnsureOwnerQuota_PlanLimitEnforced(t *testing.T) {
	c := &LimitChecker{
		agenciesRepo: &fakePlanRepo{plan: &domain.AgencyPlan{MaxPropertyOwners: intPtr(2)}},
		ownersRepo:   &fakeOwnerCounter{count: 2},
	}

	err := c.EnsureOwnerQuota(context.Background(), "agency-1", "property-1")
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
}

func TestEnsureBuyRequestQuota_NoPlanMeansUnlimited(t *testing.T) {
	c := &LimitChecker{
		agenciesRepo:   &fakePlanRepo{err: domain.ErrNotFound},
		buyRequestRepo: &fakeBuyRequestCounter{count: 10_000},
	}

	require.NoError(t, c.EnsureBuyRequestQuota(context.Background(), "agency-1"))
}

func TestEnsureBuyRequestQuota_PlanLimitEnforced(t *testing.T) {
	c := &LimitChecker{
		agenciesRepo:   &fakePlanRepo{plan: &domain.AgencyPlan{MaxBuyRequests: intPtr(50)}},
		buyRequestRepo: &fakeBuyRequestCounter{count: 50},
	}

	err := c.EnsureBuyRequestQuota(context.Background(), "agency-1")
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
}
