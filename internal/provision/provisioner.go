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

// Package provision creates and destroys per-tenant physical databases on
// the PostgreSQL server that also hosts the registry.
//
// Per-tenant databases buy strong data isolation and trivially scoped
// per-customer backup/restore. The accepted cost is that any future schema
// migration has to fan out across every tenant database individually; that
// tooling lives outside this package.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bistrokit/bistrokit/internal/observability/logger"
)

//go:embed templates/tenant_schema.sql
var tenantSchema string

//go:embed templates/tenant_seed.sql
var tenantSeed string

// Duplicate-object SQLSTATEs treated as non-fatal when re-applying the
// canonical template. Anything else aborts the run.
var duplicateStates = map[string]bool{
	"42701": true, // duplicate_column
	"42710": true, // duplicate_object
	"42723": true, // duplicate_function
	"42P04": true, // duplicate_database
	"42P06": true, // duplicate_schema
	"42P07": true, // duplicate_table
}

const uniqueViolation = "23505"

var validDatabaseName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Config holds the server connection settings used when connecting to a
// tenant database that is being provisioned.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	SSLMode  string
}

// Server provisions tenant databases. Administrative statements (CREATE and
// DROP DATABASE) run on the shared registry pool; schema application opens a
// short-lived connection to the target database.
type Server struct {
	admin *pgxpool.Pool
	cfg   Config
}

// NewServer creates a database provisioner backed by the registry pool.
func NewServer(admin *pgxpool.Pool, cfg Config) *Server {
	return &Server{admin: admin, cfg: cfg}
}

// CreateDatabase creates the named database and applies the canonical tenant
// schema and seed templates. Safe to retry: an existing database or
// partially applied schema is completed rather than treated as an error.
func (s *Server) CreateDatabase(ctx context.Context, name string) error {
	if !validDatabaseName.MatchString(name) {
		return fmt.Errorf("invalid database name %q", name)
	}

	// CREATE DATABASE cannot be parameterized; the name is validated above.
	_, err := s.admin.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %q`, name))
	if err != nil && !isDuplicate(err) {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	if err != nil {
		slog.InfoContext(ctx, "database already exists, applying schema anyway",
			logger.Component("provision"),
			logger.Database(name),
		)
	}

	conn, err := s.connect(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to connect to database %s: %w", name, err)
	}
	defer conn.Close(ctx)

	for _, script := range []struct {
		label string
		body  string
	}{
		{"schema", tenantSchema},
		{"seed", tenantSeed},
	} {
		applied, skipped, err := runScript(ctx, conn, script.body)
		if err != nil {
			return fmt.Errorf("failed to apply %s template to %s: %w", script.label, name, err)
		}
		slog.InfoContext(ctx, "template applied",
			logger.Component("provision"),
			logger.Database(name),
			logger.String("template", script.label),
			slog.Int("statements_applied", applied),
			slog.Int("statements_skipped", skipped),
		)
	}

	return nil
}

// DatabaseExists reports whether the named database exists on the server.
func (s *Server) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.admin.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// DropDatabase drops the named database, terminating any open connections.
func (s *Server) DropDatabase(ctx context.Context, name string) error {
	if !validDatabaseName.MatchString(name) {
		return fmt.Errorf("invalid database name %q", name)
	}
	_, err := s.admin.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %q WITH (FORCE)`, name))
	if err != nil {
		return fmt.Errorf("failed to drop database %s: %w", name, err)
	}
	return nil
}

func (s *Server) connect(ctx context.Context, database string) (*pgx.Conn, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password, database, s.cfg.SSLMode,
	)
	return pgx.Connect(ctx, connStr)
}

// runScript executes a script statement by statement. Retargeted statements
// (embedded CREATE DATABASE / USE) are skipped: the provisioner has already
// created and connected to the target. Duplicate objects and already-seeded
// rows are counted as skips, not failures.
func runScript(ctx context.Context, conn *pgx.Conn, script string) (applied, skipped int, err error) {
	for _, stmt := range SplitScript(script) {
		if stmt.Kind == KindRetargeted {
			skipped++
			continue
		}

		if _, execErr := conn.Exec(ctx, stmt.SQL); execErr != nil {
			if tolerable(stmt, execErr) {
				slog.DebugContext(ctx, "statement skipped, object already present",
					logger.Component("provision"),
					logger.Statement(truncate(stmt.SQL, 80)),
				)
				skipped++
				continue
			}
			return applied, skipped, fmt.Errorf("statement %d failed: %w", applied+skipped+1, execErr)
		}
		applied++
	}
	return applied, skipped, nil
}

func tolerable(stmt Statement, err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch stmt.Kind {
	case KindCreate:
		return duplicateStates[pgErr.Code]
	case KindSeed:
		return pgErr.Code == uniqueViolation
	}
	return false
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && duplicateStates[pgErr.Code]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
