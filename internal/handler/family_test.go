package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/dukerupert/ministryx/internal/model"
)

func newFamilyHandler(e *testEnv) *FamilyHandler {
	return NewFamilyHandler(e.families, e.persons, e.pledges, e.hub, discard)
}

func TestCreateFamily(t *testing.T) {
	e := newTestEnv(t)
	h := newFamilyHandler(e)

	rec := serve(h.Create, jsonRequest("POST", "/api/families", `{"name":"  Garcia ","city":"Helena"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var f model.Family
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.Name != "Garcia" || f.City != "Helena" {
		t.Errorf("family = %+v", f)
	}

	rec = serve(h.Create, jsonRequest("POST", "/api/families", `{"name":" "}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	rec = serve(h.Create, jsonRequest("POST", "/api/families", `{`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreatePerson(t *testing.T) {
	e := newTestEnv(t)
	h := newFamilyHandler(e)
	f, err := e.families.Create("Garcia", "", "")
	if err != nil {
		t.Fatal(err)
	}
	id := strconv.FormatInt(f.ID, 10)

	post := func(body string) int {
		req := jsonRequest("POST", "/api/families/"+id+"/persons", body)
		req.SetPathValue("id", id)
		return serve(h.CreatePerson, req).Code
	}

	if got := post(`{"first_name":"Ana","last_name":"Garcia"}`); got != http.StatusCreated {
		t.Errorf("status = %d, want %d", got, http.StatusCreated)
	}
	if got := post(`{"first_name":"Ana"}`); got != http.StatusBadRequest {
		t.Errorf("missing last name status = %d, want %d", got, http.StatusBadRequest)
	}
	if got := post(`{"first_name":"Luis","last_name":"Garcia","classification_id":99}`); got != http.StatusBadRequest {
		t.Errorf("unknown classification status = %d, want %d", got, http.StatusBadRequest)
	}

	persons, err := e.persons.ListByFamily(f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(persons) != 1 || persons[0].ClassificationID != model.ClassMember {
		t.Errorf("persons = %+v", persons)
	}
}

func TestListPersonsUnknownFamily(t *testing.T) {
	e := newTestEnv(t)
	req := e.request("GET", "/api/families/42/persons", nil)
	req.SetPathValue("id", "42")

	rec := serve(newFamilyHandler(e).ListPersons, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreatePledgeValidation(t *testing.T) {
	e := newTestEnv(t)
	h := newFamilyHandler(e)
	f, _ := e.families.Create("Garcia", "", "")
	fid := strconv.FormatInt(f.ID, 10)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"payment", `{"family_id":` + fid + `,"fiscal_year_id":29,"amount_cents":5000,"kind":"Payment","date":"2024-06-01"}`, http.StatusCreated},
		{"pledge", `{"family_id":` + fid + `,"fiscal_year_id":29,"amount_cents":0,"kind":"Pledge","date":"2024-06-01"}`, http.StatusCreated},
		{"bad kind", `{"family_id":` + fid + `,"fiscal_year_id":29,"kind":"Gift","date":"2024-06-01"}`, http.StatusBadRequest},
		{"zero fy", `{"family_id":` + fid + `,"fiscal_year_id":0,"kind":"Payment","date":"2024-06-01"}`, http.StatusBadRequest},
		{"negative amount", `{"family_id":` + fid + `,"fiscal_year_id":29,"amount_cents":-1,"kind":"Payment","date":"2024-06-01"}`, http.StatusBadRequest},
		{"bad date", `{"family_id":` + fid + `,"fiscal_year_id":29,"kind":"Payment","date":"06/01/2024"}`, http.StatusBadRequest},
		{"unknown family", `{"family_id":999,"fiscal_year_id":29,"kind":"Payment","date":"2024-06-01"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h.CreatePledge, jsonRequest("POST", "/api/pledges", tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
