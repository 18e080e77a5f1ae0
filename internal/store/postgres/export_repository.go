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

package postgres

import (
	"context"
	"fmt"
)

// exportableTables is the allow-list for full-table export. Table names are
// interpolated into SQL, so nothing outside this set may ever be exported.
var exportableTables = map[string]bool{
	"tenants":         true,
	"master_users":    true,
	"system_settings": true,
	"audit_records":   true,
}

// Columns never exported, by table. Credential material stays out of
// snapshots even though the rows themselves are captured.
var redactedColumns = map[string]map[string]bool{
	"master_users": {"password_hash": true},
}

// ExportRepository implements backup.Exporter. Exports run on the shared
// pool with no wrapping transaction; a long export competes with request
// traffic for connections and may observe minor cross-table skew.
type ExportRepository struct {
	db *DB
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// ExportTables reads every requested table in full and returns rows as
// generic maps keyed by column name.
func (r *ExportRepository) ExportTables(ctx context.Context, tables []string) (map[string][]map[string]any, error) {
	out := make(map[string][]map[string]any, len(tables))
	for _, table := range tables {
		if !exportableTables[table] {
			return nil, fmt.Errorf("table %q is not exportable", table)
		}
		rows, err := r.exportTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to export table %s: %w", table, err)
		}
		out[table] = rows
	}
	return out, nil
}

func (r *ExportRepository) exportTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := r.db.pool.Query(ctx, fmt.Sprintf(`SELECT * FROM %q`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	redacted := redactedColumns[table]
	fields := rows.FieldDescriptions()

	// Empty tables export as [] rather than null.
	records := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(fields))
		for i, fd := range fields {
			if redacted[fd.Name] {
				continue
			}
			record[fd.Name] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
