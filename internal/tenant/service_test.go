package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// TestPurpose: Validates partial updates: nil fields untouched, set fields
// applied, and the terminal deleted status rejected.
// Scope: Unit Test
// Expected: Only the provided fields change; moving to deleted fails with a
// validation error.
// Test Case ID: SVC-01
func TestService_UpdateTenant(t *testing.T) {
	t.Run("partial update keeps unset fields", func(t *testing.T) {
		repo := new(mockRepo)
		existing := existingTenant()
		ctx := context.Background()

		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)
		repo.On("Update", ctx, mock.MatchedBy(func(tn *Tenant) bool {
			return tn.BusinessName == "Mario's Trattoria" && tn.Plan == PlanStarter
		})).Return(nil)

		s := NewService(repo)
		updated, err := s.UpdateTenant(ctx, existing.ID, UpdateTenantInput{
			BusinessName: strPtr("Mario's Trattoria"),
		})

		require.NoError(t, err)
		assert.Equal(t, "Mario's Trattoria", updated.BusinessName)
		assert.Equal(t, PlanStarter, updated.Plan)
		repo.AssertExpectations(t)
	})

	t.Run("rejects empty business name", func(t *testing.T) {
		repo := new(mockRepo)
		existing := existingTenant()
		ctx := context.Background()
		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)

		s := NewService(repo)
		_, err := s.UpdateTenant(ctx, existing.ID, UpdateTenantInput{BusinessName: strPtr("")})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "business_name", verr.Field)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		repo := new(mockRepo)
		existing := existingTenant()
		ctx := context.Background()
		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)

		s := NewService(repo)
		_, err := s.UpdateTenant(ctx, existing.ID, UpdateTenantInput{Status: strPtr("hibernating")})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("rejects the terminal deleted status", func(t *testing.T) {
		repo := new(mockRepo)
		existing := existingTenant()
		ctx := context.Background()
		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)

		s := NewService(repo)
		_, err := s.UpdateTenant(ctx, existing.ID, UpdateTenantInput{Status: strPtr(StatusDeleted)})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("suspending a tenant", func(t *testing.T) {
		repo := new(mockRepo)
		existing := existingTenant()
		ctx := context.Background()

		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)
		repo.On("Update", ctx, mock.MatchedBy(func(tn *Tenant) bool {
			return tn.Status == StatusSuspended
		})).Return(nil)

		s := NewService(repo)
		updated, err := s.UpdateTenant(ctx, existing.ID, UpdateTenantInput{Status: strPtr(StatusSuspended)})

		require.NoError(t, err)
		assert.Equal(t, StatusSuspended, updated.Status)
	})
}

// TestPurpose: Validates listing defaults and pagination metadata.
// Scope: Unit Test
// Expected: Page defaults to 1, limit to 20; out-of-range limits reset to 20;
// HasNext/HasPrev derive from total.
// Test Case ID: SVC-02
func TestService_ListTenants_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		filter    ListFilter
		total     int
		wantPage  int
		wantLimit int
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"defaults applied", ListFilter{}, 45, 1, 20, 3, true, false},
		{"middle page", ListFilter{Page: 2, Limit: 20}, 45, 2, 20, 3, true, true},
		{"last page", ListFilter{Page: 3, Limit: 20}, 45, 3, 20, 3, false, true},
		{"limit above cap resets", ListFilter{Page: 1, Limit: 500}, 10, 1, 20, 1, false, false},
		{"empty listing", ListFilter{}, 0, 1, 20, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			repo.On("List", mock.Anything, mock.MatchedBy(func(f ListFilter) bool {
				return f.Page == tt.wantPage && f.Limit == tt.wantLimit
			})).Return([]*Tenant{}, tt.total, nil)

			s := NewService(repo)
			page, err := s.ListTenants(context.Background(), tt.filter)

			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantNext, page.HasNext)
			assert.Equal(t, tt.wantPrev, page.HasPrev)
		})
	}
}
