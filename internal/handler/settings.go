package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
	"github.com/dukerupert/ministryx/internal/websocket"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, hub: hub, logger: logger}
}

func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.List()
	if err != nil {
		h.logger.Error("list settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get settings"})
		return
	}
	if settings == nil {
		settings = []model.Setting{}
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update stores the report settings in the request body. Unknown keys or
// invalid values reject the whole request.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := validateReportSettings(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	for key, value := range req {
		if err := h.settingsStore.Set(key, value); err != nil {
			h.logger.Error("save setting", "key", key, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("settings", "updated", 0, nil))
	}
	h.List(w, r)
}

func validateReportSettings(settings map[string]string) error {
	for key, value := range settings {
		switch key {
		case store.KeyChurchName:
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("%s must not be empty", key)
			}
		case store.KeyFYMonth:
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 12 {
				return fmt.Errorf("%s must be 1-12", key)
			}
		case store.KeyPDFOutputType:
			if value != "0" && value != "1" {
				return fmt.Errorf("%s must be \"0\" or \"1\"", key)
			}
		case store.KeyDateFilenameFormat:
			if value == "" || time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC).Format(value) == value {
				return fmt.Errorf("%s must be a Go time layout", key)
			}
			if strings.ContainsAny(value, `/\`) {
				return fmt.Errorf("%s must not contain path separators", key)
			}
		case store.KeyLeftX:
			x, err := strconv.ParseFloat(value, 64)
			if err != nil || x < 0 || x > 100 {
				return fmt.Errorf("%s must be 0-100", key)
			}
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
	}
	return nil
}
