package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RealtimePublisher pushes notification events to connected clients.
type RealtimePublisher interface {
	PublishToAccount(accountID uuid.UUID, payload any) error
}

// Service handles notification logic
type Service struct {
	repo      Repository
	publisher RealtimePublisher
}

// NewService creates notification service. publisher may be nil.
func NewService(repo Repository, publisher RealtimePublisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Notify persists a notification for the event and pushes it to the
// account's live connections. Failures are logged and swallowed so the
// originating ledger operation is never affected.
func (s *Service) Notify(ctx context.Context, accountID uuid.UUID, event string, payload map[string]interface{}) {
	title, body := renderEvent(Event(event), payload)

	n := &Notification{
		ID:        uuid.New(),
		AccountID: accountID,
		Event:     Event(event),
		Title:     title,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if body != "" {
		n.Body = sql.NullString{String: body, Valid: true}
	}
	n.SetData(payload)

	if err := s.repo.Create(ctx, n); err != nil {
		log.Error().Err(err).
			Str("account_id", accountID.String()).
			Str("event", event).
			Msg("failed to persist notification")
		return
	}

	s.push(accountID, n)
}

// List returns notifications for account
func (s *Service) List(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return s.repo.ListByAccount(ctx, accountID, limit, offset)
}

// GetUnreadCount returns unread count
func (s *Service) GetUnreadCount(ctx context.Context, accountID uuid.UUID) (int, error) {
	return s.repo.CountUnreadByAccount(ctx, accountID)
}

// MarkAsRead marks single notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, accountID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, accountID)
}

// MarkAllAsRead marks all notifications as read
func (s *Service) MarkAllAsRead(ctx context.Context, accountID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, accountID)
}

func (s *Service) push(accountID uuid.UUID, n *Notification) {
	if s.publisher == nil {
		return
	}

	payload := map[string]interface{}{
		"type": "notification:new",
		"data": NotificationResponseFromEntity(n),
	}
	if err := s.publisher.PublishToAccount(accountID, payload); err != nil {
		log.Warn().Err(err).
			Str("account_id", accountID.String()).
			Msg("realtime notification push failed")
	}
}

// renderEvent builds the user-facing title and body for an event.
func renderEvent(event Event, payload map[string]interface{}) (title, body string) {
	switch event {
	case EventLevelUp:
		badge, _ := payload["badge"].(string)
		level, _ := payload["level"].(string)
		return "Level up!", fmt.Sprintf("You reached %s %s", level, badge)
	case EventReferralSignup:
		return "Referral bonus", fmt.Sprintf("Someone joined with your code, you earned %v tokens", payload["reward"])
	case EventWelcomeReferral:
		return "Welcome bonus", fmt.Sprintf("You joined via referral and earned %v tokens", payload["reward"])
	case EventFirstPurchase:
		return "Referral purchase bonus", fmt.Sprintf("An account you referred made their first purchase, you earned %v tokens", payload["reward"])
	case EventWeeklyReport:
		return "Your weekly summary", fmt.Sprintf("You earned %v tokens this week", payload["tokens_earned"])
	case EventCreditsReminder:
		return "We missed you", fmt.Sprintf("Here are %v tokens to get you back on track", payload["reward"])
	case EventExchangeDone:
		return "Exchange complete", fmt.Sprintf("%v tokens converted to %v credits", payload["tokens_spent"], payload["credits_received"])
	default:
		return string(event), ""
	}
}
