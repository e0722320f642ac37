package domain

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomInactive    = errors.New("room is not active")
	ErrNotAMember      = errors.New("user is not a member of the room")
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageDeleted  = errors.New("message is deleted")
	ErrNotSender       = errors.New("user is not the sender of the message")

	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionFull      = errors.New("session is full")
	ErrSessionClosed    = errors.New("session is not joinable")
	ErrNotParticipant   = errors.New("user is not a participant of the session")
	ErrChatDisabled     = errors.New("chat is disabled for participant")
	ErrInvalidState     = errors.New("invalid session state transition")
	ErrPermissionDenied = errors.New("permission denied")

	ErrNotificationNotFound = errors.New("notification not found")

	ErrValidation = errors.New("validation failed")
)
