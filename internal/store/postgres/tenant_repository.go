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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bistrokit/bistrokit/internal/tenant"
)

const uniqueViolation = "23505"

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, subdomain, database_name, business_name, admin_email,
	subscription_plan, subscription_status, trial_ends_at, active, created_at, updated_at`

// CreateWithAdmin inserts the tenant and its owning master user in one
// transaction. A unique violation on either row aborts both and surfaces as
// *tenant.ConflictError; this is the authoritative uniqueness guard.
func (r *TenantRepository) CreateWithAdmin(ctx context.Context, t *tenant.Tenant, admin *tenant.MasterUser) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO tenants (
			id, subdomain, database_name, business_name, admin_email,
			subscription_plan, subscription_status, trial_ends_at, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		t.ID, t.Subdomain, t.DatabaseName, t.BusinessName, t.AdminEmail,
		t.Plan, t.Status, t.TrialEndsAt, t.Active,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO master_users (
			id, tenant_id, email, password_hash, first_name, last_name,
			role, is_owner, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		admin.ID, admin.TenantID, admin.Email, admin.PasswordHash,
		admin.FirstName, admin.LastName, admin.Role, admin.IsOwner,
		admin.CreatedAt, admin.UpdatedAt,
	)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to insert master user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tenant creation: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return r.getBy(ctx, "id", id)
}

// GetBySubdomain retrieves a tenant by subdomain
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	return r.getBy(ctx, "subdomain", subdomain)
}

func (r *TenantRepository) getBy(ctx context.Context, column, value string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM tenants WHERE %s = $1`, tenantColumns, column), value,
	).Scan(
		&t.ID, &t.Subdomain, &t.DatabaseName, &t.BusinessName, &t.AdminEmail,
		&t.Plan, &t.Status, &t.TrialEndsAt, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

// SubdomainTaken reports whether any tenant already uses the subdomain.
func (r *TenantRepository) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	var taken bool
	err := r.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE subdomain = $1)`, subdomain,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check subdomain: %w", err)
	}
	return taken, nil
}

// EmailTaken reports whether the email is used by any tenant's admin or any
// master user. Master user emails are a single global namespace.
func (r *TenantRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM tenants WHERE admin_email = $1)
			OR EXISTS (SELECT 1 FROM master_users WHERE email = $1)
	`, email).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

// Update updates tenant business fields
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET
			business_name = $2,
			subscription_plan = $3,
			subscription_status = $4,
			active = $5,
			updated_at = $6
		WHERE id = $1
	`, t.ID, t.BusinessName, t.Plan, t.Status, t.Active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// Delete removes a tenant row
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List returns one page of tenants plus the unpaged total.
func (r *TenantRepository) List(ctx context.Context, filter tenant.ListFilter) ([]*tenant.Tenant, int, error) {
	where := []string{}
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("subscription_status = $%d", len(args)))
	}
	if filter.Plan != "" {
		args = append(args, filter.Plan)
		where = append(where, fmt.Sprintf("subscription_plan = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	rows, err := r.db.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM tenants%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			tenantColumns, clause, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(
			&t.ID, &t.Subdomain, &t.DatabaseName, &t.BusinessName, &t.AdminEmail,
			&t.Plan, &t.Status, &t.TrialEndsAt, &t.Active, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read tenants: %w", err)
	}

	return tenants, total, nil
}

// asConflict maps a unique-constraint violation to the field that collided.
func asConflict(err error) *tenant.ConflictError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "tenants_subdomain_key":
		return tenant.NewConflictError("subdomain", "")
	case "tenants_admin_email_key", "master_users_email_key":
		return tenant.NewConflictError("admin_email", "")
	}
	return tenant.NewConflictError("tenant", "")
}
