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
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/bistrokit/bistrokit/internal/backup"
	"github.com/bistrokit/bistrokit/internal/store/postgres"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Registry snapshot operations",
	}
	cmd.AddCommand(backupRunCmd())
	return cmd
}

func backupRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Take a registry snapshot now and prune old artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			scheduler, err := backup.NewScheduler(
				postgres.NewExportRepository(e.db),
				postgres.NewSettingRepository(e.db),
				backup.NewRetentionManager(nil),
				newAuditLogger(e),
				nil,
				clock.New(),
				backup.SchedulerConfig{
					Directory:  e.cfg.Backup.Directory,
					Timezone:   e.cfg.Backup.Timezone,
					MaxBackups: e.cfg.Backup.MaxBackups,
				},
			)
			if err != nil {
				return err
			}

			fmt.Println("Taking registry snapshot...")
			artifact, err := scheduler.RunOnce(ctx, "bistroctl")
			if err != nil {
				fmt.Println("FAILED")
				return err
			}

			fmt.Printf("  file:   %s\n", artifact.Path)
			fmt.Printf("  size:   %d bytes\n", artifact.Size)
			fmt.Printf("  tables: %d\n", artifact.Tables)
			fmt.Println("OK")
			return nil
		},
	}
}
