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
	"fmt"

	"github.com/bistrokit/bistrokit/internal/tenant"
)

// MasterUserRepository implements tenant.UserRepository
type MasterUserRepository struct {
	db *DB
}

// NewMasterUserRepository creates a new master user repository
func NewMasterUserRepository(db *DB) *MasterUserRepository {
	return &MasterUserRepository{db: db}
}

// ListByTenant returns all master users belonging to a tenant.
func (r *MasterUserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*tenant.MasterUser, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, email, password_hash, first_name, last_name,
			role, is_owner, created_at, updated_at
		FROM master_users
		WHERE tenant_id = $1
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list master users: %w", err)
	}
	defer rows.Close()

	var users []*tenant.MasterUser
	for rows.Next() {
		var u tenant.MasterUser
		if err := rows.Scan(
			&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.Role, &u.IsOwner, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan master user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read master users: %w", err)
	}

	return users, nil
}

// DeleteByTenant removes all master users of a tenant and returns how many
// rows went away. Tenant deletion depends on this running first.
func (r *MasterUserRepository) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM master_users WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete master users: %w", err)
	}
	return result.RowsAffected(), nil
}
