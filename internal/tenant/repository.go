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

import "context"

// ListFilter narrows and pages a tenant listing.
type ListFilter struct {
	Page   int
	Limit  int
	Status string
	Plan   string
}

// Repository defines registry storage for tenants. Uniqueness of subdomain
// and admin email is ultimately enforced by storage-level unique constraints;
// the Taken checks exist for early, friendly rejection and are not the
// race-safety guard.
type Repository interface {
	// CreateWithAdmin inserts the tenant row and its owning master user in
	// one transaction. Unique violations surface as *ConflictError.
	CreateWithAdmin(ctx context.Context, t *Tenant, admin *MasterUser) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	SubdomainTaken(ctx context.Context, subdomain string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, t *Tenant) error
	// Delete removes the tenant row. Master users must be deleted first.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*Tenant, int, error)
}

// UserRepository defines registry storage for master users.
type UserRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*MasterUser, error)
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)
}
