package domain

import "time"

type Presence struct {
	UserID        int64     `db:"user_id"`
	IsOnline      bool      `db:"is_online"`
	LastSeen      time.Time `db:"last_seen"`
	StatusMessage string    `db:"status_message"`
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Notification struct {
	ID          string         `db:"id"`
	RecipientID int64          `db:"recipient_id"`
	Type        string         `db:"notification_type"`
	Title       string         `db:"title"`
	Message     string         `db:"message"`
	Priority    Priority       `db:"priority"`
	IsRead      bool           `db:"is_read"`
	ReadAt      *time.Time     `db:"read_at"`
	IsSeen      bool           `db:"is_seen"`
	SeenAt      *time.Time     `db:"seen_at"`
	ActionURL   string         `db:"action_url"`
	Data        map[string]any `db:"data"`
	CreatedAt   time.Time      `db:"created_at"`
}

// NotificationPreference — read-only данные внешнего коллаборатора.
type NotificationPreference struct {
	UserID            int64  `db:"user_id"`
	RealtimeEnabled   bool   `db:"realtime_enabled"`
	EmailEnabled      bool   `db:"email_enabled"`
	PushEnabled       bool   `db:"push_enabled"`
	QuietHoursEnabled bool   `db:"quiet_hours_enabled"`
	QuietHoursStart   string `db:"quiet_hours_start"` // "22:00"
	QuietHoursEnd     string `db:"quiet_hours_end"`   // "07:00"
}

// InQuietHours проверяет попадание времени в тихие часы, с учётом окна через полночь.
func (p NotificationPreference) InQuietHours(now time.Time) bool {
	if !p.QuietHoursEnabled || p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}
	start, err := time.Parse("15:04", p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", p.QuietHoursEnd)
	if err != nil {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	if s <= e {
		return cur >= s && cur < e
	}
	return cur >= s || cur < e
}
