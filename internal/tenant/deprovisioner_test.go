package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bistrokit/bistrokit/internal/audit"
)

func existingTenant() *Tenant {
	return &Tenant{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Subdomain:    "marios-bistro",
		DatabaseName: "bistrokit_tenant_marios_bistro",
		BusinessName: "Mario's Bistro",
		AdminEmail:   "mario@example.com",
		Plan:         PlanStarter,
		Status:       StatusActive,
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// TestPurpose: Validates the full deprovisioning path: master users deleted,
// registry row deleted, physical database dropped, audit event recorded.
// Scope: Unit Test
// Expected: DeleteResult reports the user count and a dropped database with
// no warning.
// Test Case ID: DEP-01
func TestDeprovisioner_DeleteTenant_FullDelete(t *testing.T) {
	repo := new(mockRepo)
	users := new(mockUserRepo)
	databases := new(mockDatabases)
	auditLogger := new(mockAudit)
	ctx := context.Background()
	existing := existingTenant()

	repo.On("GetBySubdomain", ctx, "marios-bistro").Return(existing, nil)
	databases.On("DatabaseExists", ctx, existing.DatabaseName).Return(true, nil)
	users.On("ListByTenant", ctx, existing.ID).Return([]*MasterUser{
		{ID: "u1", TenantID: existing.ID},
		{ID: "u2", TenantID: existing.ID},
	}, nil)
	users.On("DeleteByTenant", ctx, existing.ID).Return(int64(2), nil)
	repo.On("Delete", ctx, existing.ID).Return(nil)
	databases.On("DropDatabase", ctx, existing.DatabaseName).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantDeprovisioned &&
			e.TenantID == existing.ID &&
			e.ActorID == "operator-1" &&
			e.Metadata["database_dropped"] == true
	})).Return()

	d := NewDeprovisioner(repo, users, databases, auditLogger, nil)
	result, err := d.DeleteTenant(ctx, "marios-bistro", DeleteOptions{ActorUserID: "operator-1"})

	require.NoError(t, err)
	assert.Equal(t, int64(2), result.UsersDeleted)
	assert.True(t, result.DatabaseDropped)
	assert.Empty(t, result.Warning)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	databases.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

// TestPurpose: Validates the drop-failure policy: once the registry rows are
// gone, a failed physical drop is reported as a warning and never reverses
// the deletion.
// Scope: Unit Test
// Expected: No error; DeleteResult carries a warning, DatabaseDropped is
// false, and the registry Delete is not compensated.
// Test Case ID: DEP-02
func TestDeprovisioner_DeleteTenant_DropFailureKeepsDeletion(t *testing.T) {
	repo := new(mockRepo)
	users := new(mockUserRepo)
	databases := new(mockDatabases)
	auditLogger := new(mockAudit)
	ctx := context.Background()
	existing := existingTenant()

	repo.On("GetBySubdomain", ctx, "marios-bistro").Return(existing, nil)
	databases.On("DatabaseExists", ctx, existing.DatabaseName).Return(true, nil)
	users.On("ListByTenant", ctx, existing.ID).Return([]*MasterUser{{ID: "u1"}}, nil)
	users.On("DeleteByTenant", ctx, existing.ID).Return(int64(1), nil)
	repo.On("Delete", ctx, existing.ID).Return(nil)
	databases.On("DropDatabase", ctx, existing.DatabaseName).Return(errors.New("database is being accessed"))
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantDeprovisioned && e.Metadata["database_dropped"] == false
	})).Return()

	d := NewDeprovisioner(repo, users, databases, auditLogger, nil)
	result, err := d.DeleteTenant(ctx, "marios-bistro", DeleteOptions{})

	require.NoError(t, err)
	assert.False(t, result.DatabaseDropped)
	assert.Contains(t, result.Warning, existing.DatabaseName)

	// The tenant row must not be re-created.
	repo.AssertNotCalled(t, "CreateWithAdmin", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that a missing physical database is tolerated: the
// registry deletion proceeds and no drop is attempted.
// Scope: Unit Test
// Expected: Success with DatabaseDropped false and no warning.
// Test Case ID: DEP-03
func TestDeprovisioner_DeleteTenant_MissingDatabase(t *testing.T) {
	repo := new(mockRepo)
	users := new(mockUserRepo)
	databases := new(mockDatabases)
	auditLogger := new(mockAudit)
	ctx := context.Background()
	existing := existingTenant()

	repo.On("GetBySubdomain", ctx, "marios-bistro").Return(existing, nil)
	databases.On("DatabaseExists", ctx, existing.DatabaseName).Return(false, nil)
	users.On("ListByTenant", ctx, existing.ID).Return([]*MasterUser{}, nil)
	users.On("DeleteByTenant", ctx, existing.ID).Return(int64(0), nil)
	repo.On("Delete", ctx, existing.ID).Return(nil)
	auditLogger.On("Log", ctx, mock.Anything).Return()

	d := NewDeprovisioner(repo, users, databases, auditLogger, nil)
	result, err := d.DeleteTenant(ctx, "marios-bistro", DeleteOptions{})

	require.NoError(t, err)
	assert.False(t, result.DatabaseDropped)
	assert.Empty(t, result.Warning)
	databases.AssertNotCalled(t, "DropDatabase", mock.Anything, mock.Anything)
}

// TestPurpose: Validates identifier resolution: a UUID identifier is looked up
// by ID first, a non-UUID by subdomain first, and either falls back to the
// other before reporting not found.
// Scope: Unit Test
// Expected: ErrTenantNotFound only after both lookups miss.
// Test Case ID: DEP-04
func TestDeprovisioner_DeleteTenant_NotFound(t *testing.T) {
	repo := new(mockRepo)
	ctx := context.Background()

	repo.On("GetBySubdomain", ctx, "ghost-bistro").Return(nil, ErrTenantNotFound)
	repo.On("GetByID", ctx, "ghost-bistro").Return(nil, ErrTenantNotFound)

	d := NewDeprovisioner(repo, new(mockUserRepo), new(mockDatabases), new(mockAudit), nil)
	result, err := d.DeleteTenant(ctx, "ghost-bistro", DeleteOptions{})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrTenantNotFound)
	repo.AssertExpectations(t)
}

func TestDeprovisioner_DeleteTenant_ResolvesUUIDByIDFirst(t *testing.T) {
	repo := new(mockRepo)
	users := new(mockUserRepo)
	databases := new(mockDatabases)
	ctx := context.Background()
	existing := existingTenant()

	repo.On("GetByID", ctx, existing.ID).Return(existing, nil)
	databases.On("DatabaseExists", ctx, existing.DatabaseName).Return(false, nil)
	users.On("ListByTenant", ctx, existing.ID).Return([]*MasterUser{}, nil)
	users.On("DeleteByTenant", ctx, existing.ID).Return(int64(0), nil)
	repo.On("Delete", ctx, existing.ID).Return(nil)

	auditLogger := new(mockAudit)
	auditLogger.On("Log", ctx, mock.Anything).Return()

	d := NewDeprovisioner(repo, users, databases, auditLogger, nil)
	_, err := d.DeleteTenant(ctx, existing.ID, DeleteOptions{})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetBySubdomain", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that a failure before the registry delete aborts the
// run with an error and leaves the tenant untouched.
// Scope: Unit Test
// Expected: Error returned; repo.Delete never called.
// Test Case ID: DEP-05
func TestDeprovisioner_DeleteTenant_UserDeleteFailureAborts(t *testing.T) {
	repo := new(mockRepo)
	users := new(mockUserRepo)
	databases := new(mockDatabases)
	ctx := context.Background()
	existing := existingTenant()

	repo.On("GetBySubdomain", ctx, "marios-bistro").Return(existing, nil)
	databases.On("DatabaseExists", ctx, existing.DatabaseName).Return(true, nil)
	users.On("ListByTenant", ctx, existing.ID).Return([]*MasterUser{{ID: "u1"}}, nil)
	users.On("DeleteByTenant", ctx, existing.ID).Return(int64(0), errors.New("deadlock detected"))

	d := NewDeprovisioner(repo, users, databases, new(mockAudit), nil)
	result, err := d.DeleteTenant(ctx, "marios-bistro", DeleteOptions{})

	assert.Nil(t, result)
	require.Error(t, err)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	databases.AssertNotCalled(t, "DropDatabase", mock.Anything, mock.Anything)
}
