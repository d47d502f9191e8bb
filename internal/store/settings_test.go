package store

import (
	"testing"
	"time"
)

func TestSettingsGetSeeded(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))

	v, err := s.Get(KeyFYMonth)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "1" {
		t.Errorf("iFYMonth = %q, want %q", v, "1")
	}
}

func TestSettingsGetMissing(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))

	if _, err := s.Get("nope"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestSettingsSetUpserts(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))

	if err := s.Set(KeyFYMonth, "7"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("sCustom", "x"); err != nil {
		t.Fatalf("set new key: %v", err)
	}

	v, _ := s.Get(KeyFYMonth)
	if v != "7" {
		t.Errorf("iFYMonth = %q, want %q", v, "7")
	}

	all, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("got %d settings, want 6", len(all))
	}
}

func TestGetReportSettingsDefaults(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))

	rs, err := s.GetReportSettings()
	if err != nil {
		t.Fatalf("get report settings: %v", err)
	}
	if rs.FYMonth != time.January {
		t.Errorf("FYMonth = %v, want January", rs.FYMonth)
	}
	if !rs.DownloadPDF {
		t.Error("DownloadPDF should be true for iPDFOutputType=1")
	}
	if rs.LeftX != 20 {
		t.Errorf("LeftX = %v, want 20", rs.LeftX)
	}
	if rs.ChurchName != "MinistryX" {
		t.Errorf("ChurchName = %q, want %q", rs.ChurchName, "MinistryX")
	}
}

func TestGetReportSettingsOverrides(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))

	s.Set(KeyFYMonth, "9")
	s.Set(KeyPDFOutputType, "2")
	s.Set(KeyLeftX, "not-a-number")

	rs, err := s.GetReportSettings()
	if err != nil {
		t.Fatalf("get report settings: %v", err)
	}
	if rs.FYMonth != time.September {
		t.Errorf("FYMonth = %v, want September", rs.FYMonth)
	}
	if rs.DownloadPDF {
		t.Error("DownloadPDF should be false for iPDFOutputType=2")
	}
	if rs.LeftX != 20 {
		t.Errorf("LeftX = %v, want fallback 20", rs.LeftX)
	}
}

func TestGetReportSettingsBadMonth(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))
	s.Set(KeyFYMonth, "13")

	rs, err := s.GetReportSettings()
	if err != nil {
		t.Fatalf("get report settings: %v", err)
	}
	if rs.FYMonth != time.January {
		t.Errorf("FYMonth = %v, want January fallback", rs.FYMonth)
	}
}
