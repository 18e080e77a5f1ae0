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
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bistrokit/bistrokit/internal/observability/logger"
)

// RunBackup triggers an immediate snapshot
// @Summary Run Backup
// @Description Take a snapshot of the registry now, outside the schedule
// @Tags Backup
// @Produce json
// @Success 201 {object} backup.Artifact
// @Failure 500 {object} map[string]string
// @Router /backups/run [post]
func (h *Handler) RunBackup(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.scheduler.RunOnce(r.Context(), r.Header.Get("X-Actor-ID"))
	if err != nil {
		slog.ErrorContext(r.Context(), "manual backup failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	respondJSON(w, http.StatusCreated, artifact)
}

// ConfigureBackupsRequest carries scheduler reconfiguration
type ConfigureBackupsRequest struct {
	Enabled   bool   `json:"enabled"`
	Frequency string `json:"frequency" example:"weekly"`
}

// ConfigureBackups enables, disables or rewires the backup schedule
// @Summary Configure Backup Schedule
// @Tags Backup
// @Accept json
// @Produce json
// @Param request body ConfigureBackupsRequest true "Schedule"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /backups/schedule [put]
func (h *Handler) ConfigureBackups(w http.ResponseWriter, r *http.Request) {
	var req ConfigureBackupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.scheduler.Configure(r.Context(), req.Enabled, req.Frequency); err != nil {
		slog.ErrorContext(r.Context(), "failed to configure backups", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to configure backups")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "configured"})
}
