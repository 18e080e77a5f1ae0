package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArtifacts creates n canonical artifacts in dir, one minute apart,
// oldest first. Returns the file names in creation order.
func writeArtifacts(t *testing.T, dir string, n int) []string {
	t.Helper()
	base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		name := FileName(ts)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		require.NoError(t, os.Chtimes(path, ts, ts))
		names = append(names, name)
	}
	return names
}

// TestPurpose: Validates the retention policy: only the most recently
// modified maxKept artifacts survive a sweep, and sweeping again is a no-op.
// Scope: Unit Test
// Expected: 35 artifacts reduce to the 30 newest; a second sweep deletes
// nothing.
// Test Case ID: RET-01
func TestRetentionManager_Sweep(t *testing.T) {
	dir := t.TempDir()
	names := writeArtifacts(t, dir, 35)

	m := NewRetentionManager(nil)
	deleted, err := m.Sweep(context.Background(), dir, 30)
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	// The five oldest are gone, the thirty newest remain.
	for _, name := range names[:5] {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(statErr), "expected %s to be deleted", name)
	}
	for _, name := range names[5:] {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, "expected %s to survive", name)
	}

	deleted, err = m.Sweep(context.Background(), dir, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

// TestPurpose: Validates that the sweep only touches files matching the
// canonical artifact name.
// Scope: Unit Test
// Expected: Foreign files and subdirectories in the backup directory survive
// even when over the retention limit.
// Test Case ID: RET-02
func TestRetentionManager_Sweep_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, 3)

	foreign := []string{"notes.txt", "backup_latest.json", "backup_2026-03-01.json"}
	for _, name := range foreign {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	m := NewRetentionManager(nil)
	deleted, err := m.Sweep(context.Background(), dir, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for _, name := range foreign {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, "foreign file %s must survive", name)
	}
}

func TestRetentionManager_Sweep_UnderLimitIsNoop(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, 10)

	m := NewRetentionManager(nil)
	deleted, err := m.Sweep(context.Background(), dir, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestRetentionManager_Sweep_RejectsZeroKeep(t *testing.T) {
	m := NewRetentionManager(nil)
	_, err := m.Sweep(context.Background(), t.TempDir(), 0)
	assert.Error(t, err)
}

func TestRetentionManager_Sweep_MissingDirectory(t *testing.T) {
	m := NewRetentionManager(nil)
	_, err := m.Sweep(context.Background(), filepath.Join(t.TempDir(), "nope"), 30)
	assert.Error(t, err)
}

func TestIsArtifactName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"backup_2026-03-01T02-00-00.json", true},
		{"backup_1999-12-31T23-59-59.json", true},
		{"backup_2026-03-01T02-00-00.json.tmp", false},
		{"backup_2026-03-01.json", false},
		{"snapshot_2026-03-01T02-00-00.json", false},
		{"backup_2026-03-01T02-00-00.sql", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsArtifactName(tt.name); got != tt.want {
			t.Errorf("IsArtifactName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 3, 1, 2, 5, 9, 0, time.UTC)
	got := FileName(ts)
	if got != fmt.Sprintf("backup_%s.json", "2026-03-01T02-05-09") {
		t.Errorf("FileName() = %q", got)
	}
	if !IsArtifactName(got) {
		t.Errorf("FileName() output %q does not match the artifact pattern", got)
	}
}
