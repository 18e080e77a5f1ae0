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

package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event types
const (
	TypeTenantProvisioned   = "tenant_provisioned"
	TypeTenantDeprovisioned = "tenant_deprovisioned"
	TypeBackupCreated       = "backup_created"
	TypeBackupConfigured    = "backup_configured"
)

// Event represents an auditable action
type Event struct {
	Type      string
	TenantID  string
	ActorID   string
	Resource  string
	Metadata  map[string]any
	Timestamp time.Time
}

// Logger defines the interface for audit logging.
// Implementations must never fail the caller: auditing is a side effect of
// the primary operation, not a precondition.
type Logger interface {
	Log(ctx context.Context, event Event)
}

// Store persists audit events as append-only records in the registry.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("tenant_id", event.TenantID),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	// Flatten metadata
	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			// Redact secrets
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// RecordingLogger logs events and additionally appends them to a Store.
// A failed append is logged and swallowed: losing an audit row must never
// block tenant provisioning, deprovisioning, or a backup run.
type RecordingLogger struct {
	log   Logger
	store Store
}

// NewRecordingLogger creates a logger that persists events to store.
func NewRecordingLogger(store Store) *RecordingLogger {
	return &RecordingLogger{
		log:   NewSlogLogger(),
		store: store,
	}
}

// Log records an audit event to slog and the registry.
func (l *RecordingLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.log.Log(ctx, event)

	if l.store == nil {
		return
	}
	if err := l.store.Append(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to persist audit record",
			slog.String("audit_type", event.Type),
			slog.String("tenant_id", event.TenantID),
			slog.String("error", err.Error()),
		)
	}
}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	secrets := []string{"password", "secret", "token", "key", "authorization"}
	for _, s := range secrets {
		if key == s {
			return true
		}
	}
	return false
}
