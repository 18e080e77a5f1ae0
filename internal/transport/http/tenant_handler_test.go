package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bistrokit/bistrokit/internal/audit"
	"github.com/bistrokit/bistrokit/internal/tenant"
)

// Mock repositories for the tenant registry

type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) CreateWithAdmin(ctx context.Context, t *tenant.Tenant, admin *tenant.MasterUser) error {
	args := m.Called(ctx, t, admin)
	return args.Error(0)
}
func (m *mockTenantRepo) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}
func (m *mockTenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}
func (m *mockTenantRepo) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	args := m.Called(ctx, subdomain)
	return args.Bool(0), args.Error(1)
}
func (m *mockTenantRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
func (m *mockTenantRepo) Update(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
func (m *mockTenantRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *mockTenantRepo) List(ctx context.Context, filter tenant.ListFilter) ([]*tenant.Tenant, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*tenant.Tenant), args.Int(1), args.Error(2)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) ListByTenant(ctx context.Context, tenantID string) ([]*tenant.MasterUser, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*tenant.MasterUser), args.Error(1)
}
func (m *mockUserRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type mockDatabases struct {
	mock.Mock
}

func (m *mockDatabases) CreateDatabase(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
func (m *mockDatabases) DatabaseExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}
func (m *mockDatabases) DropDatabase(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func testServer(t *testing.T, repo *mockTenantRepo, users *mockUserRepo, databases *mockDatabases) *httptest.Server {
	t.Helper()
	hasher := tenant.NewPasswordHasher(8*1024, 1, 1, 16, 32)
	auditLogger := audit.NewSlogLogger()

	h := NewHandler(
		tenant.NewProvisioner(repo, databases, hasher, auditLogger, nil, "bistrokit_tenant_", 720*time.Hour),
		tenant.NewDeprovisioner(repo, users, databases, auditLogger, nil),
		tenant.NewService(repo),
		nil,
		stubPinger{},
	)
	srv := httptest.NewServer(NewRouter(h, NewRateLimiter(1000, 1000)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// TestPurpose: Validates the HTTP status mapping of the provisioning error
// taxonomy: 201 on success, 400 for invalid input, 409 for conflicts, 500
// when the database step fails.
// Scope: Integration Test (router + handler + service, storage mocked)
// Expected: Each error class maps to its documented status and the body uses
// the {error, message} envelope.
// Test Case ID: HTT-01
func TestHTTP_CreateTenant_StatusMapping(t *testing.T) {
	input := tenant.CreateTenantInput{
		Subdomain:      "marios-bistro",
		BusinessName:   "Mario's Bistro",
		AdminEmail:     "mario@example.com",
		AdminPassword:  "a-long-password",
		AdminFirstName: "Mario",
		AdminLastName:  "Rossi",
	}

	t.Run("201 created", func(t *testing.T) {
		repo := new(mockTenantRepo)
		databases := new(mockDatabases)
		repo.On("SubdomainTaken", mock.Anything, "marios-bistro").Return(false, nil)
		repo.On("EmailTaken", mock.Anything, "mario@example.com").Return(false, nil)
		repo.On("CreateWithAdmin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		databases.On("CreateDatabase", mock.Anything, "bistrokit_tenant_marios_bistro").Return(nil)

		srv := testServer(t, repo, new(mockUserRepo), databases)
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tenants", input)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var created tenant.Tenant
		decodeBody(t, resp, &created)
		assert.Equal(t, "marios-bistro", created.Subdomain)
		assert.Equal(t, "bistrokit_tenant_marios_bistro", created.DatabaseName)
	})

	t.Run("400 invalid body", func(t *testing.T) {
		srv := testServer(t, new(mockTenantRepo), new(mockUserRepo), new(mockDatabases))
		resp, err := http.Post(srv.URL+"/api/v1/tenants", "application/json", bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("400 validation failure", func(t *testing.T) {
		srv := testServer(t, new(mockTenantRepo), new(mockUserRepo), new(mockDatabases))
		bad := input
		bad.Subdomain = "-bad-"
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tenants", bad)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Contains(t, body["message"], "subdomain")
	})

	t.Run("409 subdomain taken", func(t *testing.T) {
		repo := new(mockTenantRepo)
		repo.On("SubdomainTaken", mock.Anything, "marios-bistro").Return(true, nil)

		srv := testServer(t, repo, new(mockUserRepo), new(mockDatabases))
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tenants", input)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("500 provisioning failure", func(t *testing.T) {
		repo := new(mockTenantRepo)
		databases := new(mockDatabases)
		repo.On("SubdomainTaken", mock.Anything, "marios-bistro").Return(false, nil)
		repo.On("EmailTaken", mock.Anything, "mario@example.com").Return(false, nil)
		repo.On("CreateWithAdmin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		databases.On("CreateDatabase", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		repo.On("Delete", mock.Anything, mock.Anything).Return(nil)

		srv := testServer(t, repo, new(mockUserRepo), databases)
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tenants", input)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body map[string]string
		decodeBody(t, resp, &body)
		// The raw database error must not leak to clients.
		assert.NotContains(t, body["message"], "disk full")
	})
}

// TestPurpose: Validates tenant lookup and not-found mapping.
// Scope: Integration Test
// Expected: 200 with the tenant record; 404 for an unknown ID.
// Test Case ID: HTT-02
func TestHTTP_GetTenant(t *testing.T) {
	repo := new(mockTenantRepo)
	existing := &tenant.Tenant{ID: "t-1", Subdomain: "marios-bistro", Status: tenant.StatusActive}
	repo.On("GetByID", mock.Anything, "t-1").Return(existing, nil)
	repo.On("GetByID", mock.Anything, "ghost").Return(nil, tenant.ErrTenantNotFound)

	srv := testServer(t, repo, new(mockUserRepo), new(mockDatabases))

	resp, err := http.Get(srv.URL + "/api/v1/tenants/t-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got tenant.Tenant
	decodeBody(t, resp, &got)
	assert.Equal(t, "marios-bistro", got.Subdomain)

	resp, err = http.Get(srv.URL + "/api/v1/tenants/ghost")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// TestPurpose: Validates the update surface: terminal status rejected over
// HTTP with a 400.
// Scope: Integration Test
// Expected: Setting subscription_status to deleted returns 400.
// Test Case ID: HTT-03
func TestHTTP_UpdateTenant_RejectsDeletedStatus(t *testing.T) {
	repo := new(mockTenantRepo)
	existing := &tenant.Tenant{ID: "t-1", Subdomain: "marios-bistro", Status: tenant.StatusActive}
	repo.On("GetByID", mock.Anything, "t-1").Return(existing, nil)

	srv := testServer(t, repo, new(mockUserRepo), new(mockDatabases))
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/tenants/t-1", map[string]string{
		"subscription_status": tenant.StatusDeleted,
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestPurpose: Validates deprovisioning over HTTP, including the drop-failure
// warning surfacing in the response body instead of an error status.
// Scope: Integration Test
// Expected: 200 with users_deleted and database_dropped; a failed drop still
// returns 200 but carries a warning.
// Test Case ID: HTT-04
func TestHTTP_DeleteTenant(t *testing.T) {
	newExisting := func() *tenant.Tenant {
		return &tenant.Tenant{
			ID:           "t-1",
			Subdomain:    "marios-bistro",
			DatabaseName: "bistrokit_tenant_marios_bistro",
			Status:       tenant.StatusActive,
		}
	}

	t.Run("200 full delete", func(t *testing.T) {
		repo := new(mockTenantRepo)
		users := new(mockUserRepo)
		databases := new(mockDatabases)
		existing := newExisting()

		repo.On("GetBySubdomain", mock.Anything, "marios-bistro").Return(existing, nil)
		databases.On("DatabaseExists", mock.Anything, existing.DatabaseName).Return(true, nil)
		users.On("ListByTenant", mock.Anything, "t-1").Return([]*tenant.MasterUser{{ID: "u1"}}, nil)
		users.On("DeleteByTenant", mock.Anything, "t-1").Return(int64(1), nil)
		repo.On("Delete", mock.Anything, "t-1").Return(nil)
		databases.On("DropDatabase", mock.Anything, existing.DatabaseName).Return(nil)

		srv := testServer(t, repo, users, databases)
		resp := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/tenants/marios-bistro", nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result tenant.DeleteResult
		decodeBody(t, resp, &result)
		assert.Equal(t, int64(1), result.UsersDeleted)
		assert.True(t, result.DatabaseDropped)
		assert.Empty(t, result.Warning)
	})

	t.Run("200 with warning when drop fails", func(t *testing.T) {
		repo := new(mockTenantRepo)
		users := new(mockUserRepo)
		databases := new(mockDatabases)
		existing := newExisting()

		repo.On("GetBySubdomain", mock.Anything, "marios-bistro").Return(existing, nil)
		databases.On("DatabaseExists", mock.Anything, existing.DatabaseName).Return(true, nil)
		users.On("ListByTenant", mock.Anything, "t-1").Return([]*tenant.MasterUser{}, nil)
		users.On("DeleteByTenant", mock.Anything, "t-1").Return(int64(0), nil)
		repo.On("Delete", mock.Anything, "t-1").Return(nil)
		databases.On("DropDatabase", mock.Anything, existing.DatabaseName).Return(errors.New("in use"))

		srv := testServer(t, repo, users, databases)
		resp := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/tenants/marios-bistro", nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result tenant.DeleteResult
		decodeBody(t, resp, &result)
		assert.False(t, result.DatabaseDropped)
		assert.NotEmpty(t, result.Warning)
	})

	t.Run("404 unknown tenant", func(t *testing.T) {
		repo := new(mockTenantRepo)
		repo.On("GetBySubdomain", mock.Anything, "ghost").Return(nil, tenant.ErrTenantNotFound)
		repo.On("GetByID", mock.Anything, "ghost").Return(nil, tenant.ErrTenantNotFound)

		srv := testServer(t, repo, new(mockUserRepo), new(mockDatabases))
		resp := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/tenants/ghost", nil)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

// TestPurpose: Validates listing over HTTP with query-string filters.
// Scope: Integration Test
// Expected: Query parameters reach the repository as a ListFilter; the page
// envelope is returned.
// Test Case ID: HTT-05
func TestHTTP_ListTenants(t *testing.T) {
	repo := new(mockTenantRepo)
	repo.On("List", mock.Anything, mock.MatchedBy(func(f tenant.ListFilter) bool {
		return f.Page == 2 && f.Limit == 10 && f.Status == tenant.StatusActive && f.Plan == ""
	})).Return([]*tenant.Tenant{{ID: "t-1"}}, 11, nil)

	srv := testServer(t, repo, new(mockUserRepo), new(mockDatabases))
	resp, err := http.Get(srv.URL + "/api/v1/tenants?page=2&limit=10&status=active")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var page tenant.Page
	decodeBody(t, resp, &page)
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestHTTP_HealthCheck(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, stubPinger{})
	srv := httptest.NewServer(NewRouter(h, NewRateLimiter(1000, 1000)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	down := NewHandler(nil, nil, nil, nil, stubPinger{err: errors.New("connection refused")})
	srvDown := httptest.NewServer(NewRouter(down, NewRateLimiter(1000, 1000)))
	defer srvDown.Close()

	resp, err = http.Get(srvDown.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}
