package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
	"github.com/dukerupert/ministryx/internal/websocket"
)

type CalendarEventHandler struct {
	eventStore  *store.EventStore
	personStore *store.PersonStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewCalendarEventHandler(es *store.EventStore, ps *store.PersonStore, hub *websocket.Hub, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{eventStore: es, personStore: ps, hub: hub, logger: logger}
}

func (h *CalendarEventHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// eventInput is an event as submitted by the JSON API or the editor form.
type eventInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	AllDay          bool   `json:"all_day"`
	ContactPersonID *int64 `json:"contact_person_id"`
	Location        string `json:"location"`

	start, end time.Time
}

// validateEvent normalizes in and returns a user-facing message when it is
// not acceptable. A non-nil error means the check itself failed.
func validateEvent(in *eventInput, persons *store.PersonStore) (string, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	if in.Title == "" {
		return "title is required", nil
	}

	var err error
	if in.start, err = parseFlexibleTime(in.StartTime); err != nil {
		return "start_time must be a date or RFC3339 time", nil
	}
	if in.end, err = parseFlexibleTime(in.EndTime); err != nil {
		return "end_time must be a date or RFC3339 time", nil
	}
	if !in.start.Before(in.end) {
		return "start_time must be before end_time", nil
	}

	if in.ContactPersonID != nil {
		person, err := persons.GetByID(*in.ContactPersonID)
		if err != nil {
			return "", err
		}
		if person == nil {
			return "contact person not found", nil
		}
	}
	return "", nil
}

func (h *CalendarEventHandler) decode(w http.ResponseWriter, r *http.Request) (*eventInput, bool) {
	var in eventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}
	msg, err := validateEvent(&in, h.personStore)
	if err != nil {
		h.logger.Error("check contact person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check contact person"})
		return nil, false
	}
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return nil, false
	}
	return &in, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	event, err := h.eventStore.Create(in.Title, in.Description, in.start, in.end, in.AllDay, in.ContactPersonID, in.Location)
	if err != nil {
		h.logger.Error("create calendar event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	h.broadcast(websocket.NewMessage("calendar_event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end query parameters are required"})
		return
	}

	start, err := parseFlexibleTime(startStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be RFC3339 or YYYY-MM-DD format"})
		return
	}
	end, err := parseFlexibleTime(endStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be RFC3339 or YYYY-MM-DD format"})
		return
	}

	events, err := h.eventStore.ListByDateRange(start, end)
	if err != nil {
		h.logger.Error("list calendar events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.eventFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.eventFromPath(w, r)
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	event, err := h.eventStore.Update(existing.ID, in.Title, in.Description, in.start, in.end, in.AllDay, in.ContactPersonID, in.Location)
	if err != nil {
		h.logger.Error("update calendar event", "id", existing.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	h.broadcast(websocket.NewMessage("calendar_event", "updated", event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.eventFromPath(w, r)
	if !ok {
		return
	}

	if err := h.eventStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete calendar event", "id", existing.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete event"})
		return
	}

	h.broadcast(websocket.NewMessage("calendar_event", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CalendarEventHandler) eventFromPath(w http.ResponseWriter, r *http.Request) (*model.CalendarEvent, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}
	event, err := h.eventStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calendar event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return nil, false
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return nil, false
	}
	return event, true
}

// parseFlexibleTime accepts RFC 3339, the HTML datetime-local format and a
// bare date.
func parseFlexibleTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
