package domain

import "time"

type RoomType string

const (
	RoomDirect  RoomType = "direct"
	RoomCourse  RoomType = "course"
	RoomGroup   RoomType = "group"
	RoomSupport RoomType = "support"
)

type Room struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	RoomType   RoomType  `db:"room_type"`
	CourseID   *string   `db:"course_id"`
	CreatorID  *int64    `db:"creator_id"`
	IsActive   bool      `db:"is_active"`
	IsPrivate  bool      `db:"is_private"`
	MaxMembers *int64    `db:"max_members"`
	CreatedAt  time.Time `db:"created_at"`
}

type MemberRole string

const (
	RoleAdmin     MemberRole = "admin"
	RoleModerator MemberRole = "moderator"
	RoleMember    MemberRole = "member"
)

// Membership — строка участия в комнате, уникальна по (user_id, room_id).
type Membership struct {
	UserID          int64      `db:"user_id"`
	RoomID          string     `db:"room_id"`
	Role            MemberRole `db:"role"`
	CanSendMessages bool       `db:"can_send_messages"`
	CanSendFiles    bool       `db:"can_send_files"`
	LastReadAt      time.Time  `db:"last_read_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageVideo  MessageType = "video"
	MessageAudio  MessageType = "audio"
	MessageSystem MessageType = "system"
)

// DeletedPlaceholder замещает контент после soft delete; контент не восстанавливается.
const DeletedPlaceholder = "This message has been deleted"

type Message struct {
	ID          string      `db:"id"`
	RoomID      string      `db:"room_id"`
	SenderID    *int64      `db:"sender_id"` // nil = system
	MessageType MessageType `db:"message_type"`
	Content     string      `db:"content"`
	FileName    *string     `db:"file_name"`
	FileSize    *int64      `db:"file_size"`
	IsEdited    bool        `db:"is_edited"`
	EditedAt    *time.Time  `db:"edited_at"`
	IsDeleted   bool        `db:"is_deleted"`
	DeletedAt   *time.Time  `db:"deleted_at"`
	ReplyTo     *string     `db:"reply_to"`
	CreatedAt   time.Time   `db:"created_at"`
}

// RequiresFile сообщает, обязателен ли файл для данного типа сообщения.
func (t MessageType) RequiresFile() bool {
	switch t {
	case MessageImage, MessageFile, MessageVideo, MessageAudio:
		return true
	default:
		return false
	}
}

type ReadReceipt struct {
	MessageID string    `db:"message_id"`
	UserID    int64     `db:"user_id"`
	ReadAt    time.Time `db:"read_at"`
}

// CanonicalPair упорядочивает пару пользователей для direct-комнат: меньший id первым.
// get_or_create для (A,B) и (B,A) сходится к одной и той же строке.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
