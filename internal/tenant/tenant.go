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
	"regexp"
	"strings"
	"time"
)

// Tenant represents one customer organization, isolated via its own
// physical database. The registry row is the authoritative record; the
// physical database is derived state and the two can diverge after a
// partial deprovisioning.
type Tenant struct {
	ID           string     `json:"id"`
	Subdomain    string     `json:"subdomain"`
	DatabaseName string     `json:"database_name"`
	BusinessName string     `json:"business_name"`
	AdminEmail   string     `json:"admin_email"`
	Plan         string     `json:"subscription_plan"`
	Status       string     `json:"subscription_status"`
	TrialEndsAt  *time.Time `json:"trial_ends_at,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MasterUser is an administrative login belonging to exactly one tenant.
// Emails form a single global login namespace across all tenants.
type MasterUser struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	IsOwner      bool      `json:"is_owner"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Subscription status constants. Deleted is terminal: the only transition
// into it is performed by the Deprovisioner, and nothing transitions out.
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// Subscription plan constants
const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Master user role constants
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

const (
	subdomainMinLength = 3
	subdomainMaxLength = 20
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// ValidSubdomain reports whether s is an acceptable tenant subdomain:
// 3-20 characters, lowercase alphanumerics and interior dashes only.
func ValidSubdomain(s string) bool {
	if len(s) < subdomainMinLength || len(s) > subdomainMaxLength {
		return false
	}
	return subdomainPattern.MatchString(s)
}

// DatabaseName derives the physical database name for a subdomain. The
// mapping is deterministic so that a tenant's database can always be located
// from its registry row alone.
func DatabaseName(prefix, subdomain string) string {
	return prefix + strings.ReplaceAll(subdomain, "-", "_")
}

// ValidStatus reports whether s is a known subscription status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTrial, StatusActive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}
