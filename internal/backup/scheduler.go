// Copyright 2026 The BistroKit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"

	"github.com/bistrokit/bistrokit/internal/audit"
	"github.com/bistrokit/bistrokit/internal/observability/logger"
	"github.com/bistrokit/bistrokit/internal/observability/metrics"
)

// Frequency values accepted by Configure. Anything else falls back to weekly.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// All snapshots fire at 02:00 in the scheduler's timezone.
var cronSpecs = map[string]string{
	FrequencyDaily:   "0 2 * * *",
	FrequencyWeekly:  "0 2 * * 0",
	FrequencyMonthly: "0 2 1 * *",
}

// Artifact describes a snapshot written to disk.
type Artifact struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Tables    int       `json:"tables"`
	CreatedAt time.Time `json:"created_at"`
}

// SchedulerConfig holds the scheduler's policy knobs.
type SchedulerConfig struct {
	Directory  string
	Timezone   string
	MaxBackups int
}

// Scheduler owns the periodic snapshot job. It is constructed explicitly,
// started once at boot by the process root and stopped at shutdown; there is
// no package-level instance.
//
// At most one cron entry exists at a time: Configure always removes the
// previous registration before installing a new one.
type Scheduler struct {
	exporter  Exporter
	settings  Settings
	retention *RetentionManager
	audit     audit.Logger
	metrics   *metrics.Lifecycle
	clock     clock.Clock

	dir      string
	maxKept  int
	location *time.Location

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	active  bool
}

// NewScheduler creates a backup scheduler. The clock is injectable for
// tests; pass clock.New() in production.
func NewScheduler(
	exporter Exporter,
	settings Settings,
	retention *RetentionManager,
	auditLogger audit.Logger,
	lifecycle *metrics.Lifecycle,
	clk clock.Clock,
	cfg SchedulerConfig,
) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid backup timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.MaxBackups < 1 {
		return nil, fmt.Errorf("max backups must be at least 1, got %d", cfg.MaxBackups)
	}

	return &Scheduler{
		exporter:  exporter,
		settings:  settings,
		retention: retention,
		audit:     auditLogger,
		metrics:   lifecycle,
		clock:     clk,
		dir:       cfg.Directory,
		maxKept:   cfg.MaxBackups,
		location:  loc,
		cron:      cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start begins evaluating the schedule. Call Configure first (or after) to
// install an entry; Start with no entry just idles.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		slog.WarnContext(ctx, "timed out waiting for backup job to finish",
			logger.Component("backup"))
	}
}

// Configure enables or disables the scheduled snapshot and sets its
// frequency. Any prior registration is always removed first, so overlapping
// schedules cannot coexist. The resulting state is persisted to settings.
func (s *Scheduler) Configure(ctx context.Context, enabled bool, frequency string) error {
	spec, ok := cronSpecs[frequency]
	if !ok {
		slog.WarnContext(ctx, "unknown backup frequency, defaulting to weekly",
			logger.Component("backup"),
			logger.Frequency(frequency),
		)
		frequency = FrequencyWeekly
		spec = cronSpecs[FrequencyWeekly]
	}

	s.mu.Lock()
	if s.active {
		s.cron.Remove(s.entryID)
		s.active = false
	}
	if enabled {
		id, err := s.cron.AddFunc(spec, s.scheduledRun)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to register backup schedule: %w", err)
		}
		s.entryID = id
		s.active = true
	}
	s.mu.Unlock()

	if err := s.settings.Upsert(ctx, SettingAutoEnabled, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("failed to persist backup settings: %w", err)
	}
	if err := s.settings.Upsert(ctx, SettingFrequency, frequency); err != nil {
		return fmt.Errorf("failed to persist backup settings: %w", err)
	}

	slog.InfoContext(ctx, "backup schedule configured",
		logger.Component("backup"),
		slog.Bool("enabled", enabled),
		logger.Frequency(frequency),
	)

	return nil
}

// Entries returns the number of live cron registrations. Used by tests and
// the health surface; always 0 or 1.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// scheduledRun is the cron callback. Failures are logged and swallowed: a
// broken snapshot must never crash the process, and the next tick is the
// retry.
func (s *Scheduler) scheduledRun() {
	ctx := context.Background()
	if _, err := s.RunOnce(ctx, ""); err != nil {
		slog.ErrorContext(ctx, "scheduled backup failed",
			logger.Component("backup"),
			logger.Error(err),
		)
	}
}

// RunOnce takes one snapshot: read the operational tables in full, write the
// JSON document, record the audit event, persist the last-run timestamp and
// trigger the retention sweep.
func (s *Scheduler) RunOnce(ctx context.Context, actorUserID string) (*Artifact, error) {
	start := s.clock.Now().In(s.location)

	data, err := s.exporter.ExportTables(ctx, OperationalTables)
	if err != nil {
		s.metrics.BackupFailed(ctx)
		return nil, fmt.Errorf("failed to export tables: %w", err)
	}

	doc := Document{
		Metadata: Metadata{
			Version:   SnapshotVersion,
			CreatedAt: start,
			Type:      "full",
			Tables:    OperationalTables,
		},
		Data: data,
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.metrics.BackupFailed(ctx)
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.metrics.BackupFailed(ctx)
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName(start))
	// Write-then-rename so a crash mid-write never leaves a torn artifact
	// matching the canonical pattern.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		s.metrics.BackupFailed(ctx)
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		s.metrics.BackupFailed(ctx)
		return nil, fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	artifact := &Artifact{
		Path:      path,
		Size:      int64(len(payload)),
		Tables:    len(OperationalTables),
		CreatedAt: start,
	}

	s.audit.Log(ctx, audit.Event{
		Type:     audit.TypeBackupCreated,
		ActorID:  actorUserID,
		Resource: filepath.Base(path),
		Metadata: map[string]any{
			"size_bytes": artifact.Size,
			"tables":     artifact.Tables,
		},
	})
	s.metrics.BackupCompleted(ctx)

	// Bookkeeping and retention are best-effort: the artifact is already on
	// disk, so their failures are logged, not returned.
	if err := s.settings.Upsert(ctx, SettingLastRun, start.Format(time.RFC3339)); err != nil {
		slog.ErrorContext(ctx, "failed to record backup timestamp",
			logger.Component("backup"),
			logger.Error(err),
		)
	}
	if _, err := s.retention.Sweep(ctx, s.dir, s.maxKept); err != nil {
		slog.ErrorContext(ctx, "retention sweep reported failures",
			logger.Component("backup"),
			logger.Error(err),
		)
	}

	slog.InfoContext(ctx, "backup completed",
		logger.Component("backup"),
		logger.BackupFile(path),
		slog.Int64("size_bytes", artifact.Size),
	)

	return artifact, nil
}
