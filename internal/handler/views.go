package handler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image/png"

	"github.com/pquerna/otp/totp"

	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/mount"
	"github.com/dukerupert/ministryx/internal/store"
)

var (
	errEventNotFound   = errors.New("event not found")
	errUserNotFound    = errors.New("user not found")
	errAlreadyEnrolled = errors.New("two-factor authentication is already enabled")
)

const qrCodeSize = 200

// Views renders the island fragments.
type Views struct {
	events     *store.EventStore
	users      *store.UserStore
	totpIssuer string
	templates  *template.Template
}

func NewViews(es *store.EventStore, us *store.UserStore, totpIssuer string, tmpl *template.Template) *Views {
	return &Views{events: es, users: us, totpIssuer: totpIssuer, templates: tmpl}
}

type eventEditorData struct {
	Event model.CalendarEvent
	Error string
}

// EventEditor renders the calendar event editor for an existing event or
// for a new one spanning the selected range.
func (v *Views) EventEditor(req mount.Request) (template.HTML, error) {
	switch req := req.(type) {
	case mount.EditExisting:
		event, err := v.events.GetByID(req.EventID)
		if err != nil {
			return "", err
		}
		if event == nil {
			return "", fmt.Errorf("%w: %d", errEventNotFound, req.EventID)
		}
		return v.fragment("event-editor", eventEditorData{Event: *event})
	case mount.CreateNew:
		return v.fragment("event-editor", eventEditorData{
			Event: model.CalendarEvent{StartTime: req.Start, EndTime: req.End},
		})
	default:
		return "", fmt.Errorf("event editor cannot show %T", req)
	}
}

type enrollmentData struct {
	Account string
	Secret  string
	QRCode  template.URL
}

// TwoFactorEnrollment generates a new TOTP secret for the user, stores it
// as pending and renders it with a QR code.
func (v *Views) TwoFactorEnrollment(req mount.Request) (template.HTML, error) {
	enroll, ok := req.(mount.EnrollTwoFactor)
	if !ok {
		return "", fmt.Errorf("two-factor enrollment cannot show %T", req)
	}

	user, err := v.users.GetByID(enroll.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", fmt.Errorf("%w: %d", errUserNotFound, enroll.UserID)
	}
	if user.TOTPEnabled {
		return "", errAlreadyEnrolled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.totpIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp key: %w", err)
	}
	if err := v.users.SetPendingTOTP(user.ID, key.Secret()); err != nil {
		return "", err
	}

	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}

	return v.fragment("two-factor-enrollment", enrollmentData{
		Account: user.Username,
		Secret:  key.Secret(),
		QRCode:  template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())),
	})
}

func (v *Views) fragment(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
