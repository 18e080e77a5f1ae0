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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Lifecycle holds the counters emitted by the tenant lifecycle and backup
// subsystems. A nil *Lifecycle is valid and records nothing, which keeps the
// services testable without a meter provider.
type Lifecycle struct {
	tenantsProvisioned   metric.Int64Counter
	tenantsDeprovisioned metric.Int64Counter
	provisionFailures    metric.Int64Counter
	backupRuns           metric.Int64Counter
	backupFailures       metric.Int64Counter
	backupsPruned        metric.Int64Counter
}

// New creates the lifecycle metric set from the global meter provider.
func New(ctx context.Context, cfg Config, serviceName string) (*Lifecycle, error) {
	name := serviceName
	if !cfg.Enabled {
		name = "noop"
	}
	meter := otel.Meter(name)

	lc := &Lifecycle{}
	var err error

	if lc.tenantsProvisioned, err = meter.Int64Counter("tenants_provisioned_total",
		metric.WithDescription("Tenants successfully provisioned")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if lc.tenantsDeprovisioned, err = meter.Int64Counter("tenants_deprovisioned_total",
		metric.WithDescription("Tenants deprovisioned")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if lc.provisionFailures, err = meter.Int64Counter("tenant_provision_failures_total",
		metric.WithDescription("Provisioning attempts that were rolled back")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if lc.backupRuns, err = meter.Int64Counter("backup_runs_total",
		metric.WithDescription("Completed backup snapshots")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if lc.backupFailures, err = meter.Int64Counter("backup_failures_total",
		metric.WithDescription("Backup runs that failed")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if lc.backupsPruned, err = meter.Int64Counter("backups_pruned_total",
		metric.WithDescription("Backup artifacts removed by the retention sweep")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	return lc, nil
}

func (lc *Lifecycle) TenantProvisioned(ctx context.Context) {
	if lc == nil {
		return
	}
	lc.tenantsProvisioned.Add(ctx, 1)
}

func (lc *Lifecycle) TenantDeprovisioned(ctx context.Context) {
	if lc == nil {
		return
	}
	lc.tenantsDeprovisioned.Add(ctx, 1)
}

func (lc *Lifecycle) ProvisionFailed(ctx context.Context) {
	if lc == nil {
		return
	}
	lc.provisionFailures.Add(ctx, 1)
}

func (lc *Lifecycle) BackupCompleted(ctx context.Context) {
	if lc == nil {
		return
	}
	lc.backupRuns.Add(ctx, 1)
}

func (lc *Lifecycle) BackupFailed(ctx context.Context) {
	if lc == nil {
		return
	}
	lc.backupFailures.Add(ctx, 1)
}

func (lc *Lifecycle) BackupsPruned(ctx context.Context, n int64) {
	if lc == nil || n == 0 {
		return
	}
	lc.backupsPruned.Add(ctx, n)
}
