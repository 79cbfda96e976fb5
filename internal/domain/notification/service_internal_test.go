package notification

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRenderEvent(t *testing.T) {
	title, body := renderEvent(EventLevelUp, map[string]interface{}{
		"level": "Active",
		"badge": "⭐",
	})
	if title != "Level up!" {
		t.Fatalf("unexpected title %q", title)
	}
	if !strings.Contains(body, "Active") {
		t.Fatalf("expected level name in body, got %q", body)
	}

	title, body = renderEvent(EventReferralSignup, map[string]interface{}{"reward": 100})
	if title != "Referral bonus" || !strings.Contains(body, "100") {
		t.Fatalf("unexpected rendering: %q / %q", title, body)
	}

	// Unknown events fall back to the raw event name
	title, body = renderEvent(Event("something_new"), nil)
	if title != "something_new" || body != "" {
		t.Fatalf("unexpected fallback: %q / %q", title, body)
	}
}

func TestNotificationResponseFromEntity(t *testing.T) {
	readAt := time.Now()
	n := &Notification{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Event:     EventWeeklyReport,
		Title:     "Your weekly summary",
		Body:      sql.NullString{String: "You earned 30 tokens this week", Valid: true},
		IsRead:    true,
		ReadAt:    sql.NullTime{Time: readAt, Valid: true},
		CreatedAt: time.Now(),
	}

	resp := NotificationResponseFromEntity(n)
	if resp.Event != "weekly_report" {
		t.Fatalf("unexpected event %q", resp.Event)
	}
	if resp.Body == "" {
		t.Fatal("expected body to be carried over")
	}
	if resp.ReadAt == nil || !resp.ReadAt.Equal(readAt) {
		t.Fatal("expected read_at to be carried over")
	}

	unread := NotificationResponseFromEntity(&Notification{ID: uuid.New(), Event: EventLevelUp, Title: "t"})
	if unread.ReadAt != nil || unread.Body != "" {
		t.Fatal("expected empty optional fields for unread notification")
	}
}
