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
)

// UpdateTenantInput carries the mutable business fields. Nil pointers leave
// the current value untouched.
type UpdateTenantInput struct {
	BusinessName *string `json:"business_name,omitempty"`
	Plan         *string `json:"subscription_plan,omitempty"`
	Status       *string `json:"subscription_status,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

// Page is one page of a tenant listing.
type Page struct {
	Tenants    []*Tenant `json:"tenants"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
	HasNext    bool      `json:"has_next"`
	HasPrev    bool      `json:"has_prev"`
}

// Service provides the read/update surface over the tenant registry.
// Creation and deletion live on the Provisioner and Deprovisioner.
type Service struct {
	repo Repository
}

// NewService creates a new tenant service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// GetTenantBySubdomain retrieves a tenant by subdomain
func (s *Service) GetTenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	return s.repo.GetBySubdomain(ctx, subdomain)
}

// UpdateTenant applies a partial update of business fields. Status may move
// between trial, active and suspended here; the deleted status is reserved
// for the Deprovisioner and rejected.
func (s *Service) UpdateTenant(ctx context.Context, id string, input UpdateTenantInput) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.BusinessName != nil {
		if *input.BusinessName == "" {
			return nil, NewValidationError("business_name", "must not be empty")
		}
		t.BusinessName = *input.BusinessName
	}
	if input.Plan != nil {
		t.Plan = *input.Plan
	}
	if input.Status != nil {
		if !ValidStatus(*input.Status) {
			return nil, NewValidationError("subscription_status", fmt.Sprintf("unknown status %q", *input.Status))
		}
		if *input.Status == StatusDeleted {
			return nil, NewValidationError("subscription_status", "deleted is terminal and set only by deprovisioning")
		}
		t.Status = *input.Status
	}
	if input.Active != nil {
		t.Active = *input.Active
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// ListTenants lists tenants with pagination and optional status/plan filters.
func (s *Service) ListTenants(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	tenants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &Page{
		Tenants:    tenants,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    filter.Page < totalPages,
		HasPrev:    filter.Page > 1 && total > 0,
	}, nil
}
