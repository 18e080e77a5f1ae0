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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bistrokit/bistrokit/internal/audit"
	"github.com/bistrokit/bistrokit/internal/observability/logger"
	"github.com/bistrokit/bistrokit/internal/observability/metrics"
)

// DatabaseProvisioner creates and destroys per-tenant physical databases.
// Implemented by the provision package; abstracted here so the saga can be
// tested without a server.
type DatabaseProvisioner interface {
	CreateDatabase(ctx context.Context, name string) error
	DatabaseExists(ctx context.Context, name string) (bool, error)
	DropDatabase(ctx context.Context, name string) error
}

// CreateTenantInput carries the six required provisioning fields plus the
// optional plan.
type CreateTenantInput struct {
	Subdomain      string `json:"subdomain"`
	BusinessName   string `json:"business_name"`
	AdminEmail     string `json:"admin_email"`
	AdminPassword  string `json:"admin_password"`
	AdminFirstName string `json:"admin_first_name"`
	AdminLastName  string `json:"admin_last_name"`
	Plan           string `json:"subscription_plan,omitempty"`
}

// Provisioner orchestrates tenant creation: registry insert plus physical
// database creation, run as a saga. The registry transaction is atomic; the
// database step is not, and its only compensation on failure is deleting the
// registry rows that were just committed.
type Provisioner struct {
	repo        Repository
	databases   DatabaseProvisioner
	hasher      *PasswordHasher
	auditLogger audit.Logger
	metrics     *metrics.Lifecycle
	dbPrefix    string
	trialPeriod time.Duration
}

// NewProvisioner creates a tenant provisioner.
func NewProvisioner(
	repo Repository,
	databases DatabaseProvisioner,
	hasher *PasswordHasher,
	auditLogger audit.Logger,
	lifecycle *metrics.Lifecycle,
	dbPrefix string,
	trialPeriod time.Duration,
) *Provisioner {
	return &Provisioner{
		repo:        repo,
		databases:   databases,
		hasher:      hasher,
		auditLogger: auditLogger,
		metrics:     lifecycle,
		dbPrefix:    dbPrefix,
		trialPeriod: trialPeriod,
	}
}

// CreateTenant provisions a new tenant and its isolated database.
//
// The uniqueness checks up front give early 409s, but the real guard against
// two concurrent creates for the same subdomain is the unique constraint in
// the registry schema; CreateWithAdmin maps that violation to *ConflictError.
func (p *Provisioner) CreateTenant(ctx context.Context, input CreateTenantInput) (*Tenant, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	taken, err := p.repo.SubdomainTaken(ctx, input.Subdomain)
	if err != nil {
		return nil, fmt.Errorf("failed to check subdomain: %w", err)
	}
	if taken {
		return nil, NewConflictError("subdomain", input.Subdomain)
	}

	taken, err = p.repo.EmailTaken(ctx, input.AdminEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check admin email: %w", err)
	}
	if taken {
		return nil, NewConflictError("admin_email", input.AdminEmail)
	}

	passwordHash, err := p.hasher.Hash(input.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	plan := input.Plan
	if plan == "" {
		plan = PlanStarter
	}

	now := time.Now()
	trialEnds := now.Add(p.trialPeriod)
	t := &Tenant{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Subdomain:    input.Subdomain,
		DatabaseName: DatabaseName(p.dbPrefix, input.Subdomain),
		BusinessName: input.BusinessName,
		AdminEmail:   input.AdminEmail,
		Plan:         plan,
		Status:       StatusTrial,
		TrialEndsAt:  &trialEnds,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	admin := &MasterUser{
		ID:           uuid.Must(uuid.NewV7()).String(),
		TenantID:     t.ID,
		Email:        input.AdminEmail,
		PasswordHash: passwordHash,
		FirstName:    input.AdminFirstName,
		LastName:     input.AdminLastName,
		Role:         RoleOwner,
		IsOwner:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.repo.CreateWithAdmin(ctx, t, admin); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "tenant registry rows committed",
		logger.TenantID(t.ID),
		logger.Subdomain(t.Subdomain),
		logger.Database(t.DatabaseName),
	)

	// Physical creation happens outside the registry transaction. If it
	// fails, the compensating step removes the rows committed above so a
	// retry of the same subdomain starts clean.
	if err := p.databases.CreateDatabase(ctx, t.DatabaseName); err != nil {
		slog.ErrorContext(ctx, "tenant database creation failed, compensating",
			logger.TenantID(t.ID),
			logger.Database(t.DatabaseName),
			logger.Error(err),
		)
		if delErr := p.repo.Delete(ctx, t.ID); delErr != nil {
			slog.ErrorContext(ctx, "compensating registry delete failed; orphaned registry row",
				logger.TenantID(t.ID),
				logger.Error(delErr),
			)
		}
		p.metrics.ProvisionFailed(ctx)
		return nil, &ProvisioningError{Subdomain: t.Subdomain, Err: err}
	}

	p.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantProvisioned,
		TenantID: t.ID,
		ActorID:  admin.ID,
		Resource: t.Subdomain,
		Metadata: map[string]any{
			"business_name": t.BusinessName,
			"database":      t.DatabaseName,
			"plan":          t.Plan,
		},
	})
	p.metrics.TenantProvisioned(ctx)

	slog.InfoContext(ctx, "tenant provisioned",
		logger.TenantID(t.ID),
		logger.Subdomain(t.Subdomain),
	)

	return t, nil
}

func validateCreateInput(input CreateTenantInput) error {
	switch {
	case input.Subdomain == "":
		return NewValidationError("subdomain", "is required")
	case input.BusinessName == "":
		return NewValidationError("business_name", "is required")
	case input.AdminEmail == "":
		return NewValidationError("admin_email", "is required")
	case input.AdminPassword == "":
		return NewValidationError("admin_password", "is required")
	case input.AdminFirstName == "":
		return NewValidationError("admin_first_name", "is required")
	case input.AdminLastName == "":
		return NewValidationError("admin_last_name", "is required")
	}

	if !ValidSubdomain(input.Subdomain) {
		return NewValidationError("subdomain",
			"must be 3-20 lowercase letters, digits or dashes, and must not start or end with a dash")
	}

	return nil
}
