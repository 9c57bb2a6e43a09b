package core

import (
	"context"
	"time"
)

// NotificationLevel styles a notification.
type NotificationLevel string

// Notification levels.
const (
	LevelInfo    NotificationLevel = "info"
	LevelAlert   NotificationLevel = "alert"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
)

// Notification is a short-lived message raised by a scoring event.
type Notification struct {
	MatchID   string            `json:"match_id"`
	Level     NotificationLevel `json:"level"`
	Icon      string            `json:"icon"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Expired reports whether the notification should no longer be shown.
func (n Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}

// Notifier forwards notifications outside the process. Delivery is best
// effort: errors are logged and never fail the scoring action.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) error { return nil }

// LogNotifier writes notifications to a Logger.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier constructs a Notifier backed by logger.
func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Info("notification", "match", note.MatchID, "level", string(note.Level), "message", note.Message)
	return nil
}

// MultiNotifier fans a notification out to every notifier, returning the
// first error.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, note Notification) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil && first == nil {
			first = err
		}
	}
	return first
}

const (
	iconInfo    = "ℹ️"
	iconWicket  = "☝️"
	iconOver    = "✅"
	iconInnings = "🎯"
	iconTrophy  = "🏆"
)

// sideEffects collects the external I/O of an action. They are gathered while
// the match session is locked and flushed once it is released, so a slow
// notifier or archive never stalls other actions on the match.
type sideEffects struct {
	notes []Notification
	card  *Scorecard
}

// publish stamps notes, records them on the session and queues them for
// delivery. sess must be locked.
func (s *Service) publish(fx *sideEffects, sess *matchSession, notes []Notification) []Notification {
	if len(notes) == 0 {
		return nil
	}
	now := s.clock.Now()
	out := make([]Notification, len(notes))
	for i, n := range notes {
		n.CreatedAt = now
		n.ExpiresAt = now.Add(s.notificationTTL)
		out[i] = n
	}
	sess.notices = append(pruneNotices(sess.notices, now), out...)
	fx.notes = append(fx.notes, out...)
	return out
}

// flush delivers queued notifications and archives a final card. It must be
// called without holding the session lock.
func (s *Service) flush(ctx context.Context, fx sideEffects) {
	for _, n := range fx.notes {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("notification delivery failed", "match", n.MatchID, "error", err)
		}
	}
	if fx.card != nil {
		s.archive(ctx, *fx.card)
	}
}

func pruneNotices(notes []Notification, now time.Time) []Notification {
	kept := notes[:0]
	for _, n := range notes {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	return kept
}
