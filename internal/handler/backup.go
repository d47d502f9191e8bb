package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/ministryx/internal/backup"
	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
)

const backupListLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	records *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, records: bs, logger: logger.With("component", "backup")}
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.records.List(backupListLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": h.manager.Enabled(),
		"backups": backups,
	})
}

// Run handles POST /api/backups
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	b, err := h.manager.Run(r.Context())
	if errors.Is(err, backup.ErrDisabled) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backup failed"})
		return
	}
	writeJSON(w, http.StatusCreated, b)
}
