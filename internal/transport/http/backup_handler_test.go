package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bistrokit/bistrokit/internal/audit"
	"github.com/bistrokit/bistrokit/internal/backup"
)

type stubExporter struct {
	data map[string][]map[string]any
	err  error
}

func (e stubExporter) ExportTables(ctx context.Context, tables []string) (map[string][]map[string]any, error) {
	return e.data, e.err
}

type stubSettings struct{}

func (stubSettings) Upsert(ctx context.Context, key, value string) error { return nil }
func (stubSettings) Get(ctx context.Context, key string) (string, error) { return "", nil }

func backupServer(t *testing.T, exporter backup.Exporter) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	scheduler, err := backup.NewScheduler(
		exporter,
		stubSettings{},
		backup.NewRetentionManager(nil),
		audit.NewSlogLogger(),
		nil,
		clock.New(),
		backup.SchedulerConfig{Directory: dir, Timezone: "UTC", MaxBackups: 30},
	)
	require.NoError(t, err)

	h := NewHandler(nil, nil, nil, scheduler, stubPinger{})
	srv := httptest.NewServer(NewRouter(h, NewRateLimiter(1000, 1000)))
	t.Cleanup(srv.Close)
	return srv, dir
}

// TestPurpose: Validates the manual backup endpoint: a snapshot is written
// and described in the 201 response.
// Scope: Integration Test
// Expected: 201 with the artifact path inside the configured directory; the
// file exists on disk.
// Test Case ID: HTT-06
func TestHTTP_RunBackup(t *testing.T) {
	srv, dir := backupServer(t, stubExporter{data: map[string][]map[string]any{
		"tenants": {{"id": "t-1"}},
	}})

	resp, err := http.Post(srv.URL+"/api/v1/backups/run", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var artifact backup.Artifact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&artifact))
	resp.Body.Close()

	assert.Contains(t, artifact.Path, dir)
	_, statErr := os.Stat(artifact.Path)
	assert.NoError(t, statErr)
}

// TestPurpose: Validates the schedule endpoint: reconfiguration succeeds and
// a malformed body is rejected.
// Scope: Integration Test
// Expected: 200 for a valid schedule, 400 for garbage input.
// Test Case ID: HTT-07
func TestHTTP_ConfigureBackups(t *testing.T) {
	srv, _ := backupServer(t, stubExporter{})

	payload, _ := json.Marshal(ConfigureBackupsRequest{Enabled: true, Frequency: backup.FrequencyDaily})
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/backups/schedule", bytes.NewReader(payload))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodPut, srv.URL+"/api/v1/backups/schedule", bytes.NewReader([]byte("{oops")))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
