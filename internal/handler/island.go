package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/ministryx/internal/auth"
	"github.com/dukerupert/ministryx/internal/island"
	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/mount"
	"github.com/dukerupert/ministryx/internal/store"
	"github.com/dukerupert/ministryx/internal/websocket"
)

// IslandHandler serves the endpoints that mount, close and re-fetch the
// islands of the caller's current page.
type IslandHandler struct {
	pages   *island.Sessions
	views   *Views
	events  *store.EventStore
	persons *store.PersonStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewIslandHandler(pages *island.Sessions, views *Views, es *store.EventStore, ps *store.PersonStore, hub *websocket.Hub, logger *slog.Logger) *IslandHandler {
	return &IslandHandler{
		pages:   pages,
		views:   views,
		events:  es,
		persons: ps,
		hub:     hub,
		logger:  logger.With("component", "island"),
	}
}

func (h *IslandHandler) page(r *http.Request) *island.Page {
	return h.pages.Page(auth.SessionID(r.Context()))
}

// ShowEventForm opens the editor for the event in the path.
func (h *IslandHandler) ShowEventForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	h.show(w, r, island.CalendarEventEditor, mount.EditExisting{EventID: id})
}

// ShowNewEventForm opens an empty editor for the submitted start and end.
func (h *IslandHandler) ShowNewEventForm(w http.ResponseWriter, r *http.Request) {
	start, err := parseFlexibleTime(r.FormValue("start"))
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := parseFlexibleTime(r.FormValue("end"))
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}
	h.show(w, r, island.CalendarEventEditor, mount.CreateNew{Start: start, End: end})
}

// ShowTwoFactorEnrollment opens the enrollment form for the caller.
func (h *IslandHandler) ShowTwoFactorEnrollment(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, island.TwoFactorEnrollment, mount.EnrollTwoFactor{UserID: auth.UserID(r.Context())})
}

func (h *IslandHandler) show(w http.ResponseWriter, r *http.Request, containerID string, req mount.Request) {
	html, err := h.page(r).Show(containerID, req)
	if err != nil {
		h.fail(w, r, containerID, err)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

// Close runs the onClose callback of the island in the path's container.
func (h *IslandHandler) Close(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container")
	if err := h.page(r).Close(containerID); err != nil {
		h.fail(w, r, containerID, err)
		return
	}
	writeHTML(w, http.StatusOK, "")
}

// Fragment returns the current HTML of the path's container.
func (h *IslandHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container")
	html, err := h.page(r).Fragment(containerID)
	if err != nil {
		h.fail(w, r, containerID, err)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

// SaveEvent stores the submitted editor form and closes the editor. The
// event saved is the one the open editor was mounted for; a form naming
// another event is rejected. Invalid input re-renders the form inside the
// island with the problem.
func (h *IslandHandler) SaveEvent(w http.ResponseWriter, r *http.Request) {
	page := h.page(r)
	mounted, ok := page.Request(island.CalendarEventEditor)
	if !ok {
		http.Error(w, "no event editor is open", http.StatusConflict)
		return
	}

	var id int64
	switch req := mounted.(type) {
	case mount.EditExisting:
		id = req.EventID
	case mount.CreateNew:
	default:
		http.Error(w, "no event editor is open", http.StatusConflict)
		return
	}
	if raw := r.FormValue("id"); raw != "" {
		formID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || formID != id {
			http.Error(w, "form does not match the open editor", http.StatusConflict)
			return
		}
	}
	in := eventInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		StartTime:   r.FormValue("start"),
		EndTime:     r.FormValue("end"),
		AllDay:      r.FormValue("all_day") == "1",
		Location:    r.FormValue("location"),
	}

	msg, err := validateEvent(&in, h.persons)
	if err != nil {
		h.logger.Error("check contact person", "error", err)
		http.Error(w, "failed to save event", http.StatusInternalServerError)
		return
	}
	if msg != "" {
		data := eventEditorData{Error: msg, Event: model.CalendarEvent{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			StartTime:   in.start,
			EndTime:     in.end,
			AllDay:      in.AllDay,
			Location:    in.Location,
		}}
		body, err := h.views.fragment("event-editor", data)
		if err != nil {
			h.logger.Error("render event editor", "error", err)
			http.Error(w, "failed to render", http.StatusInternalServerError)
			return
		}
		html, err := page.Replace(island.CalendarEventEditor, body)
		if err != nil {
			h.fail(w, r, island.CalendarEventEditor, err)
			return
		}
		writeHTML(w, http.StatusOK, html)
		return
	}

	var event *model.CalendarEvent
	action := "created"
	if id > 0 {
		action = "updated"
		event, err = h.events.Update(id, in.Title, in.Description, in.start, in.end, in.AllDay, in.ContactPersonID, in.Location)
	} else {
		event, err = h.events.Create(in.Title, in.Description, in.start, in.end, in.AllDay, in.ContactPersonID, in.Location)
	}
	if err != nil {
		h.logger.Error("save calendar event", "id", id, "error", err)
		http.Error(w, "failed to save event", http.StatusInternalServerError)
		return
	}
	if event == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("calendar_event", action, event.ID, nil))
	}
	if err := page.Close(island.CalendarEventEditor); err != nil {
		h.fail(w, r, island.CalendarEventEditor, err)
		return
	}
	writeHTML(w, http.StatusOK, "")
}

func (h *IslandHandler) fail(w http.ResponseWriter, r *http.Request, containerID string, err error) {
	switch {
	case errors.Is(err, mount.ErrContainerNotFound):
		h.logger.Warn("container not on page", "container", containerID, "session_id", auth.SessionID(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, errEventNotFound), errors.Is(err, errUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, island.ErrNotMounted):
		http.Error(w, "no island is open", http.StatusConflict)
	case errors.Is(err, errAlreadyEnrolled):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("render island", "container", containerID, "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
	}
}

func writeHTML(w http.ResponseWriter, status int, html template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(html))
}
