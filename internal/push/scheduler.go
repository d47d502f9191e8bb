package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
)

const sentRetention = 7 * 24 * time.Hour

type sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// Scheduler notifies every subscribed browser shortly before a timed
// calendar event starts. Each event start is reminded once.
type Scheduler struct {
	sender   sender
	push     *store.PushStore
	events   *store.EventStore
	lead     time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewScheduler(s sender, ps *store.PushStore, es *store.EventStore, lead time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:   s,
		push:     ps,
		events:   es,
		lead:     lead,
		interval: time.Minute,
		logger:   logger.With("component", "push"),
		now:      time.Now,
	}
}

// Run checks for due reminders every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick sends the reminders for events starting within the lead time and
// returns how many events were reminded.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now().UTC()
	events, err := s.events.ListStartingBetween(now, now.Add(s.lead))
	if err != nil {
		s.logger.Error("list upcoming events", "error", err)
		return 0
	}

	reminded := 0
	var subs []model.PushSubscription
	for _, ev := range events {
		claimed, err := s.push.ClaimReminder(ev.ID, ev.StartTime)
		if err != nil {
			s.logger.Error("claim reminder", "event_id", ev.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		if subs == nil {
			if subs, err = s.push.ListAll(); err != nil {
				s.logger.Error("list push subscriptions", "error", err)
				return reminded
			}
		}
		s.notify(ctx, subs, reminderPayload(ev, now))
		reminded++
	}

	if now.Minute() == 0 {
		if _, err := s.push.CleanupReminders(now.Add(-sentRetention)); err != nil {
			s.logger.Warn("cleanup sent reminders", "error", err)
		}
	}
	return reminded
}

func (s *Scheduler) notify(ctx context.Context, subs []model.PushSubscription, payload Payload) {
	for i := range subs {
		sub := &subs[i]
		err := s.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			s.logger.Info("removing expired subscription", "subscription_id", sub.ID, "user_id", sub.UserID)
			if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
				s.logger.Error("delete expired subscription", "error", err)
			}
		default:
			s.logger.Warn("send reminder", "subscription_id", sub.ID, "tag", payload.Tag, "error", err)
		}
	}
}

func reminderPayload(ev model.CalendarEvent, now time.Time) Payload {
	minutes := int(ev.StartTime.Sub(now).Round(time.Minute) / time.Minute)
	body := fmt.Sprintf("%s starts in %d minutes", ev.Title, minutes)
	if minutes <= 0 {
		body = ev.Title + " is starting now"
	}
	if ev.Location != "" {
		body += " at " + ev.Location
	}
	return Payload{
		Title: "Calendar reminder",
		Body:  body,
		URL:   "/calendar?month=" + ev.StartTime.Format("2006-01"),
		Tag:   fmt.Sprintf("event-%d", ev.ID),
	}
}
