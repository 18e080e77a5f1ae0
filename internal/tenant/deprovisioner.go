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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bistrokit/bistrokit/internal/audit"
	"github.com/bistrokit/bistrokit/internal/observability/logger"
	"github.com/bistrokit/bistrokit/internal/observability/metrics"
)

// DeleteOptions carries metadata about a deprovisioning request.
type DeleteOptions struct {
	// ActorUserID identifies the operator requesting the deletion, for the
	// audit trail. Empty means an unattributed system action.
	ActorUserID string
}

// DeleteResult reports what a deprovisioning run actually did.
type DeleteResult struct {
	Tenant          *Tenant `json:"tenant"`
	UsersDeleted    int64   `json:"users_deleted"`
	DatabaseDropped bool    `json:"database_dropped"`
	// Warning is set when the registry rows were removed but the physical
	// database drop failed. The tenant is gone either way.
	Warning string `json:"warning,omitempty"`
}

// Deprovisioner orchestrates irreversible tenant deletion.
//
// Policy: registry deletion always precedes the physical drop and is never
// rolled back if the drop fails. An orphaned, inert physical database is
// cheap to garbage-collect later; an orphaned registry row would look like a
// live, billable tenant.
type Deprovisioner struct {
	repo        Repository
	users       UserRepository
	databases   DatabaseProvisioner
	auditLogger audit.Logger
	metrics     *metrics.Lifecycle
}

// NewDeprovisioner creates a tenant deprovisioner.
func NewDeprovisioner(
	repo Repository,
	users UserRepository,
	databases DatabaseProvisioner,
	auditLogger audit.Logger,
	lifecycle *metrics.Lifecycle,
) *Deprovisioner {
	return &Deprovisioner{
		repo:        repo,
		users:       users,
		databases:   databases,
		auditLogger: auditLogger,
		metrics:     lifecycle,
	}
}

// DeleteTenant removes a tenant's registry rows and physical database.
// The identifier may be a subdomain or a tenant ID. Returns ErrTenantNotFound
// (wrapped) when nothing matches.
func (d *Deprovisioner) DeleteTenant(ctx context.Context, identifier string, opts DeleteOptions) (*DeleteResult, error) {
	t, err := d.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	// The registry row and the physical database can diverge, so check the
	// server directly instead of trusting the row.
	dbExists, err := d.databases.DatabaseExists(ctx, t.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("failed to check database %s: %w", t.DatabaseName, err)
	}

	users, err := d.users.ListByTenant(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load master users: %w", err)
	}

	deleted, err := d.users.DeleteByTenant(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete master users: %w", err)
	}
	if deleted != int64(len(users)) {
		slog.WarnContext(ctx, "master user count changed during deprovisioning",
			logger.TenantID(t.ID),
			slog.Int("loaded", len(users)),
			slog.Int64("deleted", deleted),
		)
	}

	if err := d.repo.Delete(ctx, t.ID); err != nil {
		return nil, fmt.Errorf("failed to delete tenant row: %w", err)
	}

	result := &DeleteResult{Tenant: t, UsersDeleted: deleted}

	if dbExists {
		if err := d.databases.DropDatabase(ctx, t.DatabaseName); err != nil {
			// Deliberate: never re-create the registry rows here. The drop
			// can be retried by an orphan sweep; the deletion stands.
			slog.ErrorContext(ctx, "failed to drop tenant database, registry deletion stands",
				logger.TenantID(t.ID),
				logger.Database(t.DatabaseName),
				logger.Error(err),
			)
			result.Warning = fmt.Sprintf("registry rows removed but dropping database %s failed: %v", t.DatabaseName, err)
		} else {
			result.DatabaseDropped = true
		}
	}

	d.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantDeprovisioned,
		TenantID: t.ID,
		ActorID:  opts.ActorUserID,
		Resource: t.Subdomain,
		Metadata: map[string]any{
			"business_name":    t.BusinessName,
			"users_deleted":    deleted,
			"database_dropped": result.DatabaseDropped,
		},
	})
	d.metrics.TenantDeprovisioned(ctx)

	slog.InfoContext(ctx, "tenant deprovisioned",
		logger.TenantID(t.ID),
		logger.Subdomain(t.Subdomain),
		slog.Int64("users_deleted", deleted),
		slog.Bool("database_dropped", result.DatabaseDropped),
	)

	return result, nil
}

// resolve looks a tenant up by subdomain first unless the identifier parses
// as a tenant ID, in which case the ID lookup runs first. Either style falls
// back to the other before giving up.
func (d *Deprovisioner) resolve(ctx context.Context, identifier string) (*Tenant, error) {
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrTenantNotFound)
	}

	first, second := d.repo.GetBySubdomain, d.repo.GetByID
	if _, err := uuid.Parse(identifier); err == nil {
		first, second = second, first
	}

	t, err := first(ctx, identifier)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTenantNotFound) {
		return nil, err
	}

	t, err = second(ctx, identifier)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTenantNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, identifier)
}
