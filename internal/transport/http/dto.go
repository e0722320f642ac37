package http

import (
	"time"

	"github.com/hives-africa/realtime-service/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	Name       string  `json:"name"`
	RoomType   string  `json:"room_type"`
	CourseID   *string `json:"course_id"`
	IsPrivate  bool    `json:"is_private"`
	MaxMembers *int64  `json:"max_members"`
}

type RoomItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomType  string    `json:"room_type"`
	CourseID  *string   `json:"course_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
}

type DirectRoomRequest struct {
	UserID int64 `json:"user_id"`
}

type MessagesResponse struct {
	Items      []service.MessageView `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

type CreateSessionRequest struct {
	Title           string    `json:"title"`
	CourseID        string    `json:"course_id"`
	LessonID        *string   `json:"lesson_id"`
	ScheduledStart  time.Time `json:"scheduled_start"`
	ScheduledEnd    time.Time `json:"scheduled_end"`
	MaxParticipants int64     `json:"max_participants"`
	AllowRecording  bool      `json:"allow_recording"`
	AutoRecord      bool      `json:"auto_record"`
}

type SessionItem struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	CourseID        string     `json:"course_id"`
	LessonID        *string    `json:"lesson_id,omitempty"`
	InstructorID    int64      `json:"instructor_id"`
	Status          string     `json:"status"`
	ScheduledStart  time.Time  `json:"scheduled_start"`
	ScheduledEnd    time.Time  `json:"scheduled_end"`
	ActualStart     *time.Time `json:"actual_start,omitempty"`
	ActualEnd       *time.Time `json:"actual_end,omitempty"`
	MaxParticipants int64      `json:"max_participants"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ParticipantItem struct {
	UserID   int64      `json:"user_id"`
	Role     string     `json:"role"`
	IsOnline bool       `json:"is_online"`
	JoinedAt *time.Time `json:"joined_at,omitempty"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
	PeerID   string     `json:"peer_id,omitempty"`
}

type ParticipantsResponse struct {
	Items []ParticipantItem `json:"items"`
}

// NotifyRequest — service-to-service вброс уведомления.
type NotifyRequest struct {
	RecipientID int64          `json:"recipient_id"`
	Type        string         `json:"notification_type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Priority    string         `json:"priority"`
	ActionURL   string         `json:"action_url"`
	Data        map[string]any `json:"data"`
}

type NotificationsResponse struct {
	Items      []service.NotificationView `json:"items"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
