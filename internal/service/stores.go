package service

import (
	"context"
	"time"

	"github.com/hives-africa/realtime-service/internal/domain"
)

// Интерфейсы хранилищ объявлены на стороне потребителя (как WS-сервер тимы
// объявляет MemberSvc/ChatSvc); конкретные реализации живут в internal/postgres.

type RoomStore interface {
	Get(ctx context.Context, id string) (*domain.Room, error)
	Create(ctx context.Context, room *domain.Room) error
	GetMembership(ctx context.Context, roomID string, userID int64) (*domain.Membership, error)
	CreateMembership(ctx context.Context, roomID string, userID int64, role domain.MemberRole) (*domain.Membership, error)
	CountMembers(ctx context.Context, roomID string) (int, error)
	UpdateLastRead(ctx context.Context, roomID string, userID int64, at time.Time) error
	GetOrCreateDirectRoom(ctx context.Context, userA, userB int64) (*domain.Room, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, id string) (*domain.Message, error)
	Recent(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
	History(ctx context.Context, roomID, after string, limit int) ([]domain.Message, string, error)
	Edit(ctx context.Context, roomID, id string, senderID int64, content string, at time.Time) (*domain.Message, error)
	SoftDelete(ctx context.Context, roomID, id string, senderID int64, at time.Time) error
	MarkRead(ctx context.Context, messageID string, userID int64, at time.Time) (bool, error)
	UnreadCount(ctx context.Context, roomID string, userID int64, lastReadAt time.Time) (int, error)
}

type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.LiveSession, error)
	Create(ctx context.Context, s *domain.LiveSession) error
	Start(ctx context.Context, id string, at time.Time) error
	End(ctx context.Context, id string, at time.Time) error
	Cancel(ctx context.Context, id string) error
	GetParticipant(ctx context.Context, sessionID string, userID int64) (*domain.SessionParticipant, error)
	Join(ctx context.Context, sessionID string, userID int64, role domain.ParticipantRole, peerID string, at time.Time) (*domain.SessionParticipant, error)
	MarkLeft(ctx context.Context, sessionID string, userID int64, at time.Time) error
	ForceOffline(ctx context.Context, sessionID string, except int64, at time.Time) error
	UpdatePermissions(ctx context.Context, sessionID string, userID int64, perms domain.Permissions) (*domain.SessionParticipant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]domain.SessionParticipant, error)
	SaveSignal(ctx context.Context, s *domain.WebRTCSignal) error
	SaveChat(ctx context.Context, m *domain.SessionChatMessage) error
	IsEnrolled(ctx context.Context, userID int64, courseID string) (bool, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, recipientID int64, after string, limit int) ([]domain.Notification, string, error)
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, id string, recipientID int64, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (int64, error)
	GetPreference(ctx context.Context, userID int64) (domain.NotificationPreference, error)
	UpsertPresence(ctx context.Context, userID int64, online bool, at time.Time) error
}
