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

package tenant

import (
	"errors"
	"fmt"
)

// ErrTenantNotFound is returned when no registry row matches the identifier.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrUserNotFound is returned when a master user lookup matches nothing.
var ErrUserNotFound = errors.New("master user not found")

// ValidationError reports malformed or missing provisioning input.
// Maps to HTTP 400 at the transport boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports a uniqueness violation on subdomain or admin email.
// Maps to HTTP 409 at the transport boundary.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q is already in use", e.Field, e.Value)
}

// NewConflictError creates a conflict error for a taken value.
func NewConflictError(field, value string) *ConflictError {
	return &ConflictError{Field: field, Value: value}
}

// ProvisioningError reports that the physical database step failed after the
// registry transaction committed. By the time the caller sees it, the
// compensating registry delete has already run. Maps to HTTP 500.
type ProvisioningError struct {
	Subdomain string
	Err       error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning tenant %q failed: %v", e.Subdomain, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
