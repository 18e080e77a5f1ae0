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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/bistrokit/bistrokit/internal/observability/logger"
	"github.com/bistrokit/bistrokit/internal/observability/metrics"
)

// RetentionManager deletes backup artifacts beyond a fixed count, keeping
// only the most recent. Sweeps are idempotent.
type RetentionManager struct {
	metrics *metrics.Lifecycle
}

// NewRetentionManager creates a retention manager.
func NewRetentionManager(lifecycle *metrics.Lifecycle) *RetentionManager {
	return &RetentionManager{metrics: lifecycle}
}

// Sweep removes all but the maxKept most recently modified artifacts in dir.
// Individual deletion failures are logged and collected; the sweep continues
// past them. Returns the number of files actually deleted.
func (m *RetentionManager) Sweep(ctx context.Context, dir string, maxKept int) (int, error) {
	if maxKept < 1 {
		return 0, fmt.Errorf("maxKept must be at least 1, got %d", maxKept)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	type artifact struct {
		path    string
		modTime time.Time
	}
	var artifacts []artifact
	for _, entry := range entries {
		if entry.IsDir() || !IsArtifactName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.WarnContext(ctx, "failed to stat backup artifact",
				logger.Component("retention"),
				logger.BackupFile(entry.Name()),
				logger.Error(err),
			)
			continue
		}
		artifacts = append(artifacts, artifact{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	if len(artifacts) <= maxKept {
		return 0, nil
	}

	// Newest first; everything past maxKept goes.
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].modTime.After(artifacts[j].modTime)
	})

	var deleted int
	var errs *multierror.Error
	for _, a := range artifacts[maxKept:] {
		if err := os.Remove(a.path); err != nil {
			slog.ErrorContext(ctx, "failed to delete expired backup artifact",
				logger.Component("retention"),
				logger.BackupFile(a.path),
				logger.Error(err),
			)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", a.path, err))
			continue
		}
		deleted++
	}

	m.metrics.BackupsPruned(ctx, int64(deleted))

	slog.InfoContext(ctx, "retention sweep finished",
		logger.Component("retention"),
		slog.Int("kept", len(artifacts)-deleted),
		slog.Int("deleted", deleted),
	)

	return deleted, errs.ErrorOrNil()
}
