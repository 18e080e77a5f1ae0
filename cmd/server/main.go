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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/bistrokit/bistrokit/internal/audit"
	"github.com/bistrokit/bistrokit/internal/backup"
	"github.com/bistrokit/bistrokit/internal/config"
	"github.com/bistrokit/bistrokit/internal/observability/logger"
	"github.com/bistrokit/bistrokit/internal/observability/metrics"
	"github.com/bistrokit/bistrokit/internal/observability/tracing"
	"github.com/bistrokit/bistrokit/internal/provision"
	"github.com/bistrokit/bistrokit/internal/store/postgres"
	"github.com/bistrokit/bistrokit/internal/tenant"
	transportHTTP "github.com/bistrokit/bistrokit/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTELEnabled: cfg.Observability.OTELEnabled,
	})
	slog.Info("starting bistrokit control plane")

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize lifecycle metrics
	lifecycle, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize metrics", logger.Error(err))
	}

	// Initialize registry database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Registry.Host,
		Port:         cfg.Registry.Port,
		User:         cfg.Registry.User,
		Password:     cfg.Registry.Password,
		Database:     cfg.Registry.Database,
		SSLMode:      cfg.Registry.SSLMode,
		MaxOpenConns: cfg.Registry.MaxOpenConns,
		MaxIdleConns: cfg.Registry.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to registry", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to registry database")

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepository(db)
	userRepo := postgres.NewMasterUserRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	settingRepo := postgres.NewSettingRepository(db)
	exportRepo := postgres.NewExportRepository(db)

	// Initialize helpers
	auditLogger := audit.NewRecordingLogger(auditRepo)
	hasher := tenant.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	databases := provision.NewServer(db.Pool(), provision.Config{
		Host:     cfg.Registry.Host,
		Port:     cfg.Registry.Port,
		User:     cfg.Registry.User,
		Password: cfg.Registry.Password,
		SSLMode:  cfg.Registry.SSLMode,
	})

	// Initialize services
	provisioner := tenant.NewProvisioner(
		tenantRepo,
		databases,
		hasher,
		auditLogger,
		lifecycle,
		cfg.Provision.DatabasePrefix,
		cfg.Provision.TrialPeriod,
	)
	deprovisioner := tenant.NewDeprovisioner(tenantRepo, userRepo, databases, auditLogger, lifecycle)
	tenantService := tenant.NewService(tenantRepo)

	// The backup scheduler is owned here, started once, stopped at shutdown.
	retention := backup.NewRetentionManager(lifecycle)
	scheduler, err := backup.NewScheduler(
		exportRepo,
		settingRepo,
		retention,
		auditLogger,
		lifecycle,
		clock.New(),
		backup.SchedulerConfig{
			Directory:  cfg.Backup.Directory,
			Timezone:   cfg.Backup.Timezone,
			MaxBackups: cfg.Backup.MaxBackups,
		},
	)
	if err != nil {
		slog.Error("failed to initialize backup scheduler", logger.Error(err))
		os.Exit(1)
	}
	if err := scheduler.Configure(ctx, cfg.Backup.Enabled, cfg.Backup.Frequency); err != nil {
		slog.Error("failed to configure backup schedule", logger.Error(err))
		os.Exit(1)
	}
	scheduler.Start()

	// Rate limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler and router
	handler := transportHTTP.NewHandler(provisioner, deprovisioner, tenantService, scheduler, db)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info(fmt.Sprintf("listening on %s", addr), logger.Component("server"))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}
