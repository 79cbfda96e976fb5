package notification

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event represents notification event type
type Event string

const (
	EventLevelUp         Event = "level_up"          // Token tier advanced
	EventReferralSignup  Event = "referral_signup"   // Referrer: someone used your code
	EventWelcomeReferral Event = "welcome_referral"  // Referred: welcome bonus granted
	EventFirstPurchase   Event = "referral_purchase" // Referrer: referred account's first purchase
	EventWeeklyReport    Event = "weekly_report"     // Weekly activity digest
	EventCreditsReminder Event = "credits_reminder"  // Inactive account nudge
	EventExchangeDone    Event = "exchange_complete" // Tokens converted to credits
)

// Notification represents an account notification
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	AccountID uuid.UUID       `db:"account_id" json:"account_id"`
	Event     Event           `db:"event" json:"event"`
	Title     string          `db:"title" json:"title"`
	Body      sql.NullString  `db:"body" json:"body,omitempty"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime    `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SetData encodes the event payload to JSON
func (n *Notification) SetData(payload map[string]interface{}) {
	if len(payload) > 0 {
		n.Data, _ = json.Marshal(payload)
	}
}
