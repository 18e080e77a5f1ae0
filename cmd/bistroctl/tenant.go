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
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bistrokit/bistrokit/internal/audit"
	"github.com/bistrokit/bistrokit/internal/provision"
	"github.com/bistrokit/bistrokit/internal/store/postgres"
	"github.com/bistrokit/bistrokit/internal/tenant"
)

// Demo tenant provisioned by `bistroctl tenant create-demo` for bootstrap
// and smoke testing.
var demoTenant = tenant.CreateTenantInput{
	Subdomain:      "demo-bistro",
	BusinessName:   "Demo Bistro",
	AdminEmail:     "owner@demo-bistro.example",
	AdminPassword:  "demo-password-change-me",
	AdminFirstName: "Demo",
	AdminLastName:  "Owner",
	Plan:           tenant.PlanStarter,
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant lifecycle operations",
	}
	cmd.AddCommand(tenantCreateDemoCmd())
	cmd.AddCommand(tenantDeleteCmd())
	return cmd
}

func tenantCreateDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-demo",
		Short: "Provision the fixed demo tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			provisioner := newProvisioner(e)

			fmt.Printf("Provisioning demo tenant %q...\n", demoTenant.Subdomain)
			t, err := provisioner.CreateTenant(ctx, demoTenant)
			if err != nil {
				fmt.Println("FAILED")
				return err
			}

			fmt.Printf("  tenant id: %s\n", t.ID)
			fmt.Printf("  database:  %s\n", t.DatabaseName)
			fmt.Printf("  admin:     %s\n", t.AdminEmail)
			fmt.Println("OK")
			return nil
		},
	}
}

func tenantDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <subdomain|id>",
		Short: "Irreversibly delete a tenant and its database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			repo := newTenantRepo(e)
			t, err := resolveTenant(ctx, repo, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("About to PERMANENTLY delete tenant %q (%s)\n", t.Subdomain, t.BusinessName)
			fmt.Printf("  registry rows and database %s will be destroyed\n", t.DatabaseName)
			fmt.Println("  there is no undelete")

			if !yes {
				fmt.Printf("Type the subdomain %q to confirm: ", t.Subdomain)
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read confirmation: %w", err)
				}
				if strings.TrimSpace(line) != t.Subdomain {
					return fmt.Errorf("confirmation did not match, aborting")
				}
			}

			deprovisioner := newDeprovisioner(e)
			result, err := deprovisioner.DeleteTenant(ctx, t.ID, tenant.DeleteOptions{ActorUserID: "bistroctl"})
			if err != nil {
				fmt.Println("FAILED")
				return err
			}

			fmt.Printf("  master users deleted: %d\n", result.UsersDeleted)
			fmt.Printf("  database dropped:     %v\n", result.DatabaseDropped)
			if result.Warning != "" {
				fmt.Printf("  WARNING: %s\n", result.Warning)
			}
			fmt.Println("OK")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the interactive confirmation (for scripts)")
	return cmd
}

func resolveTenant(ctx context.Context, repo tenant.Repository, identifier string) (*tenant.Tenant, error) {
	t, err := repo.GetBySubdomain(ctx, identifier)
	if err == nil {
		return t, nil
	}
	return repo.GetByID(ctx, identifier)
}

func newTenantRepo(e *env) tenant.Repository {
	return postgres.NewTenantRepository(e.db)
}

func newAuditLogger(e *env) audit.Logger {
	return audit.NewRecordingLogger(postgres.NewAuditRepository(e.db))
}

func newProvisioner(e *env) *tenant.Provisioner {
	return tenant.NewProvisioner(
		newTenantRepo(e),
		newDatabases(e),
		tenant.NewPasswordHasher(
			e.cfg.Security.Argon2Memory,
			e.cfg.Security.Argon2Iterations,
			e.cfg.Security.Argon2Parallelism,
			e.cfg.Security.Argon2SaltLength,
			e.cfg.Security.Argon2KeyLength,
		),
		newAuditLogger(e),
		nil,
		e.cfg.Provision.DatabasePrefix,
		e.cfg.Provision.TrialPeriod,
	)
}

func newDeprovisioner(e *env) *tenant.Deprovisioner {
	return tenant.NewDeprovisioner(
		newTenantRepo(e),
		postgres.NewMasterUserRepository(e.db),
		newDatabases(e),
		newAuditLogger(e),
		nil,
	)
}

func newDatabases(e *env) *provision.Server {
	return provision.NewServer(e.db.Pool(), provision.Config{
		Host:     e.cfg.Registry.Host,
		Port:     e.cfg.Registry.Port,
		User:     e.cfg.Registry.User,
		Password: e.cfg.Registry.Password,
		SSLMode:  e.cfg.Registry.SSLMode,
	})
}
