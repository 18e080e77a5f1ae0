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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bistrokit/bistrokit/internal/backup"
	"github.com/bistrokit/bistrokit/internal/observability/logger"
	"github.com/bistrokit/bistrokit/internal/tenant"
)

// Pinger is the minimal health-check dependency on the registry.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	provisioner   *tenant.Provisioner
	deprovisioner *tenant.Deprovisioner
	tenantService *tenant.Service
	scheduler     *backup.Scheduler
	registry      Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	provisioner *tenant.Provisioner,
	deprovisioner *tenant.Deprovisioner,
	tenantService *tenant.Service,
	scheduler *backup.Scheduler,
	registry Pinger,
) *Handler {
	return &Handler{
		provisioner:   provisioner,
		deprovisioner: deprovisioner,
		tenantService: tenantService,
		scheduler:     scheduler,
		registry:      registry,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.CreateTenant)
			r.Get("/", h.ListTenants)
			r.Get("/{tenantID}", h.GetTenant)
			r.Put("/{tenantID}", h.UpdateTenant)
			r.Delete("/{tenantID}", h.DeleteTenant)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Post("/run", h.RunBackup)
			r.Put("/schedule", h.ConfigureBackups)
		})
	})

	return r
}

// HealthCheck reports process and registry health
// @Summary Health Check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "registry unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// respondTenantError maps the tenant error taxonomy onto HTTP statuses.
// Unclassified errors become a generic 500: raw storage errors never reach
// clients.
func respondTenantError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *tenant.ValidationError
	var conflictErr *tenant.ConflictError
	var provisioningErr *tenant.ProvisioningError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &conflictErr):
		respondError(w, http.StatusConflict, conflictErr.Error())
	case errors.Is(err, tenant.ErrTenantNotFound):
		respondError(w, http.StatusNotFound, "tenant not found")
	case errors.As(err, &provisioningErr):
		respondError(w, http.StatusInternalServerError, "tenant provisioning failed")
	default:
		slog.ErrorContext(ctx, "unhandled error at http boundary", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
