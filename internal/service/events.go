package service

import (
	"time"

	"github.com/hives-africa/realtime-service/internal/domain"

	"github.com/goccy/go-json"
)

// Исходящие конверты. Поле type — дискриминатор, который клиент матчит первым.

type SenderView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type MessageView struct {
	ID          string      `json:"id"`
	Sender      *SenderView `json:"sender"`
	Content     string      `json:"content"`
	MessageType string      `json:"message_type"`
	FileName    *string     `json:"file_name,omitempty"`
	FileSize    *int64      `json:"file_size,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	IsEdited    bool        `json:"is_edited"`
	EditedAt    *time.Time  `json:"edited_at"`
	ReplyTo     *string     `json:"reply_to"`
}

type MessageHistoryEvent struct {
	Type     string        `json:"type"` // message_history
	Messages []MessageView `json:"messages"`
}

type RoomPeerEvent struct {
	Type     string `json:"type"` // user_join | user_leave
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type ChatMessageEvent struct {
	Type    string      `json:"type"` // message | message_edited
	Message MessageView `json:"message"`
}

type TypingEvent struct {
	Type     string `json:"type"` // typing
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type ReadReceiptEvent struct {
	Type      string `json:"type"` // read_receipt
	MessageID string `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
}

type MessageDeletedEvent struct {
	Type      string `json:"type"` // message_deleted
	MessageID string `json:"message_id"`
	DeletedBy int64  `json:"deleted_by"`
}

type SessionPeerEvent struct {
	Type     string `json:"type"` // user_joined | user_left
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type WebRTCSignalEvent struct {
	Type       string          `json:"type"` // webrtc_signal
	SignalType string          `json:"signal_type"`
	SignalData json.RawMessage `json:"signal_data"`
	FromUserID int64           `json:"from_user_id"`
}

type SessionChatView struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	IsPrivate bool      `json:"is_private"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionChatEvent struct {
	Type    string          `json:"type"` // chat_message
	Message SessionChatView `json:"message"`
}

type ScreenShareEvent struct {
	Type      string `json:"type"` // screen_share
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	IsSharing bool   `json:"is_sharing"`
}

type RaiseHandEvent struct {
	Type     string `json:"type"` // raise_hand
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsRaised bool   `json:"is_raised"`
}

type PermissionChangeEvent struct {
	Type        string          `json:"type"` // permission_change
	Permissions PermissionsView `json:"permissions"`
}

type PermissionsView struct {
	CanShareScreen bool `json:"can_share_screen"`
	CanShareAudio  bool `json:"can_share_audio"`
	CanShareVideo  bool `json:"can_share_video"`
	CanChat        bool `json:"can_chat"`
}

type SessionEndedEvent struct {
	Type    string `json:"type"` // session_ended
	Message string `json:"message"`
}

type NotificationView struct {
	ID        string         `json:"id"`
	Type      string         `json:"notification_type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	ActionURL string         `json:"action_url,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type NewNotificationEvent struct {
	Type         string           `json:"type"` // new_notification
	Notification NotificationView `json:"notification"`
}

type UnreadCountEvent struct {
	Type  string `json:"type"` // unread_count
	Count int    `json:"count"`
}

type ErrorEvent struct {
	Type    string `json:"type"` // error
	Message string `json:"message"`
}

func NewErrorEvent(msg string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: msg}
}

// Permissions — представление текущих прав участника для клиента.
func Permissions(p *domain.SessionParticipant) PermissionsView {
	return permissionsView(p)
}

func permissionsView(p *domain.SessionParticipant) PermissionsView {
	return PermissionsView{
		CanShareScreen: p.CanShareScreen,
		CanShareAudio:  p.CanShareAudio,
		CanShareVideo:  p.CanShareVideo,
		CanChat:        p.CanChat,
	}
}

func notificationView(n *domain.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Priority:  string(n.Priority),
		ActionURL: n.ActionURL,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	}
}
