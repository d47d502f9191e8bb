package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
	"github.com/dukerupert/ministryx/internal/websocket"
)

type FamilyHandler struct {
	families *store.FamilyStore
	persons  *store.PersonStore
	pledges  *store.PledgeStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, ps *store.PersonStore, pls *store.PledgeStore, hub *websocket.Hub, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, persons: ps, pledges: pls, hub: hub, logger: logger}
}

func (h *FamilyHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.List()
	if err != nil {
		h.logger.Error("list families", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list families"})
		return
	}
	if families == nil {
		families = []model.Family{}
	}
	writeJSON(w, http.StatusOK, families)
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	family, err := h.families.Create(req.Name, strings.TrimSpace(req.Address), strings.TrimSpace(req.City))
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create family"})
		return
	}

	h.broadcast(websocket.NewMessage("family", "created", family.ID, nil))
	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyFromPath(w, r)
	if !ok {
		return
	}

	persons, err := h.persons.ListByFamily(familyID)
	if err != nil {
		h.logger.Error("list persons", "family_id", familyID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list persons"})
		return
	}
	if persons == nil {
		persons = []model.Person{}
	}
	writeJSON(w, http.StatusOK, persons)
}

func (h *FamilyHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		FirstName        string `json:"first_name"`
		LastName         string `json:"last_name"`
		ClassificationID int64  `json:"classification_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" || req.LastName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "first_name and last_name are required"})
		return
	}
	if req.ClassificationID == 0 {
		req.ClassificationID = model.ClassMember
	}

	person, err := h.persons.Create(familyID, req.FirstName, req.LastName, req.ClassificationID)
	if err != nil {
		// The only constraint the API can violate here is the classification FK.
		h.logger.Warn("create person", "family_id", familyID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown classification_id"})
		return
	}

	h.broadcast(websocket.NewMessage("person", "created", person.ID, map[string]any{"family_id": familyID}))
	writeJSON(w, http.StatusCreated, person)
}

func (h *FamilyHandler) ListClassifications(w http.ResponseWriter, r *http.Request) {
	classes, err := h.persons.ListClassifications()
	if err != nil {
		h.logger.Error("list classifications", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list classifications"})
		return
	}
	if classes == nil {
		classes = []model.Classification{}
	}
	writeJSON(w, http.StatusOK, classes)
}

func (h *FamilyHandler) CreatePledge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FamilyID     int64  `json:"family_id"`
		FiscalYearID int    `json:"fiscal_year_id"`
		AmountCents  int64  `json:"amount_cents"`
		Kind         string `json:"kind"`
		Date         string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Kind != model.PledgeKindPledge && req.Kind != model.PledgeKindPayment {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be \"Pledge\" or \"Payment\""})
		return
	}
	if req.FiscalYearID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fiscal_year_id must be positive"})
		return
	}
	if req.AmountCents < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount_cents must not be negative"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD format"})
		return
	}

	family, err := h.families.GetByID(req.FamilyID)
	if err != nil {
		h.logger.Error("get family", "family_id", req.FamilyID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check family"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "family not found"})
		return
	}

	pledge, err := h.pledges.Create(req.FamilyID, req.FiscalYearID, req.AmountCents, req.Kind, date)
	if err != nil {
		h.logger.Error("create pledge", "family_id", req.FamilyID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create pledge"})
		return
	}

	writeJSON(w, http.StatusCreated, pledge)
}

func (h *FamilyHandler) familyFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	family, err := h.families.GetByID(id)
	if err != nil {
		h.logger.Error("get family", "family_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return 0, false
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return 0, false
	}
	return id, true
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
