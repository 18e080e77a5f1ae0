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

// Package main provides bistroctl, the operator CLI for the BistroKit
// control plane: tenant provisioning and deprovisioning, registry
// migration and manual backups.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bistrokit/bistrokit/internal/config"
	"github.com/bistrokit/bistrokit/internal/observability/logger"
	"github.com/bistrokit/bistrokit/internal/store/postgres"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bistroctl",
		Short:         "BistroKit control plane operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(tenantCmd())
	cmd.AddCommand(backupCmd())
	cmd.AddCommand(migrateCmd())

	return cmd
}

// env bundles the dependencies every subcommand needs.
type env struct {
	cfg *config.Config
	db  *postgres.DB
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// CLI output goes to stdout as plain lines; keep structured logs quiet
	// unless something goes wrong.
	logger.InitLogger(logger.Config{
		Level:       "warn",
		Format:      "text",
		ServiceName: cfg.Observability.ServiceName,
	})

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
		return nil, fmt.Errorf("failed to connect to registry: %w", err)
	}

	return &env{cfg: cfg, db: db}, nil
}

func (e *env) close() {
	e.db.Close()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the registry schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			fmt.Println("Applying registry schema...")
			if err := e.db.Migrate(ctx, postgres.InitialSchema); err != nil {
				return err
			}
			fmt.Println("Migration successful.")
			return nil
		},
	}
}
