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

package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bistrokit/bistrokit/internal/tenant"
)

// CreateTenant provisions a new tenant and its isolated database
// @Summary Create Tenant
// @Description Provision a new tenant: registry rows plus physical database
// @Tags Tenant
// @Accept json
// @Produce json
// @Param request body tenant.CreateTenantInput true "Tenant Data"
// @Success 201 {object} tenant.Tenant
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /tenants [post]
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var input tenant.CreateTenantInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.provisioner.CreateTenant(r.Context(), input)
	if err != nil {
		respondTenantError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// GetTenant returns one tenant record
// @Summary Get Tenant
// @Tags Tenant
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} tenant.Tenant
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondTenantError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// UpdateTenant applies a partial update of mutable business fields
// @Summary Update Tenant
// @Tags Tenant
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body tenant.UpdateTenantInput true "Fields to update"
// @Success 200 {object} tenant.Tenant
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID} [put]
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var input tenant.UpdateTenantInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.UpdateTenant(r.Context(), chi.URLParam(r, "tenantID"), input)
	if err != nil {
		respondTenantError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DeleteTenant irreversibly removes a tenant and drops its database
// @Summary Delete Tenant
// @Description Remove the tenant's registry rows and drop its physical database. Irreversible.
// @Tags Tenant
// @Produce json
// @Param tenantID path string true "Tenant ID or subdomain"
// @Success 200 {object} tenant.DeleteResult
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /tenants/{tenantID} [delete]
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	result, err := h.deprovisioner.DeleteTenant(r.Context(), chi.URLParam(r, "tenantID"), tenant.DeleteOptions{
		ActorUserID: r.Header.Get("X-Actor-ID"),
	})
	if err != nil {
		respondTenantError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListTenants returns a filtered, paginated tenant listing
// @Summary List Tenants
// @Tags Tenant
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Subscription status filter"
// @Param plan query string false "Subscription plan filter"
// @Success 200 {object} tenant.Page
// @Router /tenants [get]
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.tenantService.ListTenants(r.Context(), tenant.ListFilter{
		Page:   page,
		Limit:  limit,
		Status: q.Get("status"),
		Plan:   q.Get("plan"),
	})
	if err != nil {
		respondTenantError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
