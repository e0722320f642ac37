package ws

import (
	"github.com/goccy/go-json"
)

// Входящие кадры. Сначала декодируется конверт с дискриминатором type,
// затем тело под конкретный тип. Незнакомый type или битый JSON — ответ
// error в это же соединение, без обрыва.

type envelope struct {
	Type string `json:"type"`
}

// --- комнатный чат ---

type chatMessageIn struct {
	Message     string  `json:"message"`
	MessageType string  `json:"message_type"`
	FileName    *string `json:"file_name"`
	FileSize    *int64  `json:"file_size"`
	ReplyTo     *string `json:"reply_to"`
}

type typingIn struct {
	IsTyping bool `json:"is_typing"`
}

type readReceiptIn struct {
	MessageID string `json:"message_id"`
}

type deleteMessageIn struct {
	MessageID string `json:"message_id"`
}

type editMessageIn struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

// --- live-сессия ---

type webrtcSignalIn struct {
	SignalType   string          `json:"signal_type"`
	SignalData   json.RawMessage `json:"signal_data"`
	TargetUserID *int64          `json:"target_user_id"`
}

type sessionChatIn struct {
	Message   string `json:"message"`
	IsPrivate bool   `json:"is_private"`
}

type screenShareIn struct {
	IsSharing bool `json:"is_sharing"`
}

type raiseHandIn struct {
	IsRaised bool `json:"is_raised"`
}

type permissionChangeIn struct {
	TargetUserID   int64 `json:"target_user_id"`
	CanShareScreen *bool `json:"can_share_screen"`
	CanShareAudio  *bool `json:"can_share_audio"`
	CanShareVideo  *bool `json:"can_share_video"`
	CanChat        *bool `json:"can_chat"`
}

// --- уведомления ---

type markReadIn struct {
	NotificationID string `json:"notification_id"`
}
