package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/ministryx/internal/auth"
	"github.com/dukerupert/ministryx/internal/fiscal"
	"github.com/dukerupert/ministryx/internal/report"
	"github.com/dukerupert/ministryx/internal/store"
)

const fiscalYearChoices = 10

type ReportHandler struct {
	source    report.Source
	settings  *store.SettingsStore
	sessions  *store.SessionStore
	paperSize string
	templates *template.Template
	logger    *slog.Logger
	now       func() time.Time
}

func NewReportHandler(fs *store.FamilyStore, ps *store.PersonStore, pls *store.PledgeStore, ss *store.SettingsStore, sess *store.SessionStore, paperSize string, tmpl *template.Template, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		source:    report.Source{Families: fs, Members: ps, Payments: pls},
		settings:  ss,
		sessions:  sess,
		paperSize: paperSize,
		templates: tmpl,
		logger:    logger.With("component", "report"),
		now:       time.Now,
	}
}

// VotingMembersForm shows the report options, preselecting the fiscal year
// last used in this session.
func (h *ReportHandler) VotingMembersForm(w http.ResponseWriter, r *http.Request) {
	rs, err := h.settings.GetReportSettings()
	if err != nil {
		h.logger.Error("load report settings", "error", err)
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	now := h.now()
	ac, _ := auth.FromContext(r.Context())
	selected := ac.DefaultFYID
	if selected <= 0 {
		selected = fiscal.Current(now, rs.FYMonth)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "report_voting_members.html", map[string]any{
		"Title":       "Voting members",
		"FiscalYears": fiscal.Options(now, rs.FYMonth, fiscalYearChoices),
		"SelectedFY":  selected,
	}); err != nil {
		h.logger.Error("render report form", "error", err)
	}
}

// VotingMembers generates the voting members PDF. The chosen fiscal year
// is remembered in the session.
func (h *ReportHandler) VotingMembers(w http.ResponseWriter, r *http.Request) {
	rs, err := h.settings.GetReportSettings()
	if err != nil {
		h.logger.Error("load report settings", "error", err)
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	now := h.now()
	filter := report.Filter{
		FiscalYearID:          fiscal.Parse(r.FormValue("FYID"), now, rs.FYMonth),
		RequiredDonationYears: parseNonNegative(r.FormValue("RequireDonationYears")),
	}

	if sessionID := auth.SessionID(r.Context()); sessionID != 0 {
		if err := h.sessions.SetDefaultFY(sessionID, filter.FiscalYearID); err != nil {
			h.logger.Warn("remember fiscal year", "session_id", sessionID, "error", err)
		}
	}

	title := "Voting members " + fiscal.Label(filter.FiscalYearID, rs.FYMonth)
	pdf := report.NewPDFSurface(h.paperSize, title)
	layout := report.VotingMembers{Title: title, LeftX: rs.LeftX}

	count, err := layout.Write(pdf, report.SelectVotingFamilies(h.source, filter, rs.FYMonth))
	if err != nil {
		h.logger.Error("generate voting members report",
			"fy_id", filter.FiscalYearID,
			"data_access", report.IsDataAccess(err),
			"error", err,
		)
		http.Error(w, "failed to generate report", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		h.logger.Error("write voting members report", "error", err)
		http.Error(w, "failed to generate report", http.StatusInternalServerError)
		return
	}

	disposition := "inline"
	if rs.DownloadPDF && r.FormValue("output") != "inline" {
		disposition = "attachment"
	}
	filename := report.Filename("VotingMembers", now, rs.DateFilenameFormat)

	h.logger.Info("voting members report",
		"fy_id", filter.FiscalYearID,
		"donation_years", filter.RequiredDonationYears,
		"members", count,
		"pages", pdf.PageCount(),
		"disposition", disposition,
	)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// parseNonNegative reads a count from form input; anything unparsable or
// negative is zero.
func parseNonNegative(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
