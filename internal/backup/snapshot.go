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

package backup

import (
	"context"
	"regexp"
	"time"
)

// SnapshotVersion is the document format version written into metadata.
const SnapshotVersion = "1.0"

// OperationalTables is the fixed list of registry tables captured by every
// snapshot. Order is preserved in the document metadata.
var OperationalTables = []string{
	"tenants",
	"master_users",
	"system_settings",
	"audit_records",
}

// Metadata describes a snapshot document.
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	Tables    []string  `json:"tables"`
}

// Document is the on-disk JSON snapshot: full rows of every operational
// table, keyed by table name. Immutable once written.
type Document struct {
	Metadata Metadata                    `json:"metadata"`
	Data     map[string][]map[string]any `json:"data"`
}

// Exporter reads complete operational tables from the registry. The read
// sequence is not wrapped in a transaction: concurrent writes may produce
// minor cross-table skew, which the snapshot format accepts.
type Exporter interface {
	ExportTables(ctx context.Context, tables []string) (map[string][]map[string]any, error)
}

// Settings stores scheduler state in the registry's system_settings table.
type Settings interface {
	Upsert(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}

// Setting keys owned by the backup subsystem.
const (
	SettingAutoEnabled = "backup_auto_enabled"
	SettingFrequency   = "backup_frequency"
	SettingLastRun     = "backup_last_date"
)

const fileTimeLayout = "2006-01-02T15-04-05"

// fileNamePattern matches the canonical artifact name produced by FileName.
// The embedded timestamp sorts lexically.
var fileNamePattern = regexp.MustCompile(`^backup_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.json$`)

// FileName returns the canonical artifact name for a snapshot taken at t.
func FileName(t time.Time) string {
	return "backup_" + t.Format(fileTimeLayout) + ".json"
}

// IsArtifactName reports whether name matches the canonical artifact pattern.
func IsArtifactName(name string) bool {
	return fileNamePattern.MatchString(name)
}
