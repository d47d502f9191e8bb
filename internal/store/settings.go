package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
)

// System configuration keys.
const (
	KeyChurchName         = "sChurchName"
	KeyFYMonth            = "iFYMonth"
	KeyPDFOutputType      = "iPDFOutputType"
	KeyDateFilenameFormat = "sDateFilenameFormat"
	KeyLeftX              = "leftX"
)

var reportKeys = []string{
	KeyChurchName,
	KeyFYMonth,
	KeyPDFOutputType,
	KeyDateFilenameFormat,
	KeyLeftX,
}

// ReportSettings is the subset of system configuration read by the PDF
// report generators.
type ReportSettings struct {
	ChurchName         string
	FYMonth            time.Month
	DownloadPDF        bool
	DateFilenameFormat string
	LeftX              float64
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) List() ([]model.Setting, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []model.Setting
	for rows.Next() {
		var st model.Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetReportSettings loads the report configuration. Missing or malformed
// values fall back to the seeded defaults.
func (s *SettingsStore) GetReportSettings() (ReportSettings, error) {
	values := make(map[string]string)
	for _, key := range reportKeys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return ReportSettings{}, fmt.Errorf("get report setting %q: %w", key, err)
		}
		values[key] = value
	}

	rs := ReportSettings{
		ChurchName:         values[KeyChurchName],
		FYMonth:            time.January,
		DownloadPDF:        true,
		DateFilenameFormat: "20060102-150405",
		LeftX:              20,
	}
	if m, err := strconv.Atoi(values[KeyFYMonth]); err == nil && m >= 1 && m <= 12 {
		rs.FYMonth = time.Month(m)
	}
	if v, ok := values[KeyPDFOutputType]; ok {
		rs.DownloadPDF = v == "1"
	}
	if f := values[KeyDateFilenameFormat]; f != "" {
		rs.DateFilenameFormat = f
	}
	if x, err := strconv.ParseFloat(values[KeyLeftX], 64); err == nil {
		rs.LeftX = x
	}
	return rs, nil
}
