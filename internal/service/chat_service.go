package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hives-africa/realtime-service/internal/bus"
	"github.com/hives-africa/realtime-service/internal/domain"
)

// UserDirectory — read-only справочник имён (таблица users коллаборатора).
type UserDirectory interface {
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// ChatContext — состояние одного подключения к комнате; им владеет
// исключительно горутина этого соединения.
type ChatContext struct {
	UserID   int64
	Username string
	RoomID   string
	Group    string
}

// ChatService — движок комнатного чата. Методы возвращают список публикаций
// для шины; исполняет их транспорт.
type ChatService struct {
	rooms    RoomStore
	messages MessageStore
	presence NotificationStore
	users    UserDirectory
	authz    *Authorizer

	historyLimit int
	maxContent   int
	now          func() time.Time
}

func NewChatService(rooms RoomStore, messages MessageStore, presence NotificationStore, users UserDirectory, authz *Authorizer) *ChatService {
	return &ChatService{
		rooms:        rooms,
		messages:     messages,
		presence:     presence,
		users:        users,
		authz:        authz,
		historyLimit: 50,
		maxContent:   4000,
		now:          time.Now,
	}
}

func (s *ChatService) SetHistoryLimit(n int) {
	if n > 0 {
		s.historyLimit = n
	}
}

// Connect допускает подключение к комнате. Для публичной комнаты первый join
// создаёт membership (side effect движка, не авторизатора). Возвращает контекст
// соединения, историю для подключившегося клиента и события для шины.
func (s *ChatService) Connect(ctx context.Context, userID int64, username, roomID string) (*ChatContext, []MessageView, []bus.Event, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !room.IsActive {
		return nil, nil, nil, domain.ErrRoomInactive
	}

	ok, err := s.authz.CanJoinRoom(ctx, userID, room)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("authorize room join: %w", err)
	}
	if !ok {
		return nil, nil, nil, domain.ErrNotAMember
	}

	if _, err := s.rooms.GetMembership(ctx, roomID, userID); errors.Is(err, domain.ErrNotAMember) {
		// open-join: публичная комната, membership создаётся на первом входе,
		// лимит численности проверяется до вставки
		if room.MaxMembers != nil {
			count, err := s.rooms.CountMembers(ctx, roomID)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("count members: %w", err)
			}
			if int64(count) >= *room.MaxMembers {
				return nil, nil, nil, domain.ErrRoomFull
			}
		}
		if _, err := s.rooms.CreateMembership(ctx, roomID, userID, domain.RoleMember); err != nil {
			return nil, nil, nil, fmt.Errorf("create membership: %w", err)
		}
	} else if err != nil {
		return nil, nil, nil, err
	}

	if err := s.presence.UpsertPresence(ctx, userID, true, s.now()); err != nil {
		slog.Warn("presence upsert failed", "user", userID, "err", err)
	}

	recent, err := s.messages.Recent(ctx, roomID, s.historyLimit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load history: %w", err)
	}
	history := s.messageViews(ctx, recent)

	cc := &ChatContext{
		UserID:   userID,
		Username: username,
		RoomID:   roomID,
		Group:    domain.ChatGroup(roomID),
	}
	events := []bus.Event{{
		Group: cc.Group,
		Data:  RoomPeerEvent{Type: "user_join", UserID: userID, Username: username},
	}}
	return cc, history, events, nil
}

// Disconnect переводит присутствие в offline и извещает комнату.
func (s *ChatService) Disconnect(ctx context.Context, cc *ChatContext) []bus.Event {
	if err := s.presence.UpsertPresence(ctx, cc.UserID, false, s.now()); err != nil {
		slog.Warn("presence upsert failed", "user", cc.UserID, "err", err)
	}
	return []bus.Event{{
		Group: cc.Group,
		Data:  RoomPeerEvent{Type: "user_leave", UserID: cc.UserID, Username: cc.Username},
	}}
}

type SendInput struct {
	Content     string
	MessageType domain.MessageType
	FileName    *string
	FileSize    *int64
	ReplyTo     *string
}

// Send валидирует и сохраняет сообщение; last_read_at отправителя двигается
// вперёд — собственное сообщение считается прочитанным.
func (s *ChatService) Send(ctx context.Context, cc *ChatContext, in SendInput) ([]bus.Event, error) {
	switch in.MessageType {
	case "":
		in.MessageType = domain.MessageText
	case domain.MessageText, domain.MessageImage, domain.MessageFile, domain.MessageVideo, domain.MessageAudio:
	default:
		// system зарезервирован за сервером
		return nil, fmt.Errorf("%w: unsupported message type %q", domain.ErrValidation, in.MessageType)
	}
	content := strings.TrimSpace(in.Content)
	if in.MessageType == domain.MessageText && content == "" {
		return nil, fmt.Errorf("%w: message content is required", domain.ErrValidation)
	}
	if in.MessageType.RequiresFile() && (in.FileName == nil || *in.FileName == "") {
		return nil, fmt.Errorf("%w: file is required for %s messages", domain.ErrValidation, in.MessageType)
	}
	if len(content) > s.maxContent {
		return nil, fmt.Errorf("%w: message too long", domain.ErrValidation)
	}

	membership, err := s.rooms.GetMembership(ctx, cc.RoomID, cc.UserID)
	if err != nil {
		return nil, err
	}
	if !membership.CanSendMessages {
		return nil, domain.ErrPermissionDenied
	}
	if in.MessageType.RequiresFile() && !membership.CanSendFiles {
		return nil, domain.ErrPermissionDenied
	}

	msg := &domain.Message{
		RoomID:      cc.RoomID,
		SenderID:    &cc.UserID,
		MessageType: in.MessageType,
		Content:     content,
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		ReplyTo:     in.ReplyTo,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	if err := s.rooms.UpdateLastRead(ctx, cc.RoomID, cc.UserID, s.now()); err != nil {
		slog.Warn("advance last_read_at failed", "room", cc.RoomID, "user", cc.UserID, "err", err)
	}

	return []bus.Event{{
		Group: cc.Group,
		Data:  ChatMessageEvent{Type: "message", Message: s.messageView(ctx, msg)},
	}}, nil
}

// Typing: индикатор транслируется в комнату; собственный индикатор
// клиент игнорирует по user_id.
func (s *ChatService) Typing(cc *ChatContext, isTyping bool) []bus.Event {
	return []bus.Event{{
		Group: cc.Group,
		Data:  TypingEvent{Type: "typing", UserID: cc.UserID, Username: cc.Username, IsTyping: isTyping},
	}}
}

// ReadReceipt — create-if-absent; событие публикуется и при повторной отметке,
// получатели дедуплицируют по (message_id, user_id). Сообщение чужой комнаты
// для этого соединения не существует.
func (s *ChatService) ReadReceipt(ctx context.Context, cc *ChatContext, messageID string) ([]bus.Event, error) {
	if messageID == "" {
		return nil, fmt.Errorf("%w: message_id is required", domain.ErrValidation)
	}
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.RoomID != cc.RoomID {
		return nil, domain.ErrMessageNotFound
	}
	if _, err := s.messages.MarkRead(ctx, messageID, cc.UserID, s.now()); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return []bus.Event{{
		Group: cc.Group,
		Data:  ReadReceiptEvent{Type: "read_receipt", MessageID: messageID, UserID: cc.UserID, Username: cc.Username},
	}}, nil
}

// Delete — soft delete, только своим сообщениям; контент замещается плейсхолдером.
func (s *ChatService) Delete(ctx context.Context, cc *ChatContext, messageID string) ([]bus.Event, error) {
	if err := s.messages.SoftDelete(ctx, cc.RoomID, messageID, cc.UserID, s.now()); err != nil {
		return nil, err
	}
	return []bus.Event{{
		Group: cc.Group,
		Data:  MessageDeletedEvent{Type: "message_deleted", MessageID: messageID, DeletedBy: cc.UserID},
	}}, nil
}

// Edit допустим только отправителю и только до удаления.
func (s *ChatService) Edit(ctx context.Context, cc *ChatContext, messageID, content string) ([]bus.Event, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", domain.ErrValidation)
	}
	msg, err := s.messages.Edit(ctx, cc.RoomID, messageID, cc.UserID, content, s.now())
	if err != nil {
		return nil, err
	}
	return []bus.Event{{
		Group: cc.Group,
		Data:  ChatMessageEvent{Type: "message_edited", Message: s.messageView(ctx, msg)},
	}}, nil
}

type CreateRoomInput struct {
	Name       string
	RoomType   domain.RoomType
	CourseID   *string
	IsPrivate  bool
	MaxMembers *int64
}

// CreateRoom создаёт комнату; создатель сразу получает membership с ролью admin.
func (s *ChatService) CreateRoom(ctx context.Context, creatorID int64, in CreateRoomInput) (*domain.Room, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: room name is required", domain.ErrValidation)
	}
	switch in.RoomType {
	case domain.RoomCourse, domain.RoomGroup, domain.RoomSupport:
	case "":
		in.RoomType = domain.RoomGroup
	default:
		return nil, fmt.Errorf("%w: unsupported room type %q", domain.ErrValidation, in.RoomType)
	}

	room := &domain.Room{
		Name:       strings.TrimSpace(in.Name),
		RoomType:   in.RoomType,
		CourseID:   in.CourseID,
		CreatorID:  &creatorID,
		IsActive:   true,
		IsPrivate:  in.IsPrivate,
		MaxMembers: in.MaxMembers,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	if _, err := s.rooms.CreateMembership(ctx, room.ID, creatorID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("create creator membership: %w", err)
	}
	return room, nil
}

// GetRoom — чтение комнаты для HTTP-коллаборатора.
func (s *ChatService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.rooms.Get(ctx, roomID)
}

// GetOrCreateDirectRoom — DM-комната для неупорядоченной пары пользователей.
func (s *ChatService) GetOrCreateDirectRoom(ctx context.Context, userA, userB int64) (*domain.Room, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: cannot open direct room with yourself", domain.ErrValidation)
	}
	return s.rooms.GetOrCreateDirectRoom(ctx, userA, userB)
}

// History — курсорная история для HTTP-коллаборатора.
func (s *ChatService) History(ctx context.Context, roomID, after string, limit int) ([]MessageView, string, error) {
	msgs, next, err := s.messages.History(ctx, roomID, after, limit)
	if err != nil {
		return nil, "", err
	}
	return s.messageViews(ctx, msgs), next, nil
}

// EnsureMember возвращает ErrNotAMember для постороннего пользователя.
func (s *ChatService) EnsureMember(ctx context.Context, roomID string, userID int64) error {
	_, err := s.rooms.GetMembership(ctx, roomID, userID)
	return err
}

// UnreadCount — производное значение по last_read_at участника.
func (s *ChatService) UnreadCount(ctx context.Context, roomID string, userID int64) (int, error) {
	membership, err := s.rooms.GetMembership(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	return s.messages.UnreadCount(ctx, roomID, userID, membership.LastReadAt)
}

func (s *ChatService) messageView(ctx context.Context, m *domain.Message) MessageView {
	views := s.messageViews(ctx, []domain.Message{*m})
	return views[0]
}

func (s *ChatService) messageViews(ctx context.Context, msgs []domain.Message) []MessageView {
	ids := make([]int64, 0, len(msgs))
	seen := make(map[int64]struct{})
	for _, m := range msgs {
		if m.SenderID != nil {
			if _, ok := seen[*m.SenderID]; !ok {
				seen[*m.SenderID] = struct{}{}
				ids = append(ids, *m.SenderID)
			}
		}
	}

	names := map[int64]string{}
	if len(ids) > 0 && s.users != nil {
		if got, err := s.users.DisplayNames(ctx, ids); err == nil {
			names = got
		} else {
			slog.Warn("resolve sender names failed", "err", err)
		}
	}

	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := MessageView{
			ID:          m.ID,
			Content:     m.Content,
			MessageType: string(m.MessageType),
			FileName:    m.FileName,
			FileSize:    m.FileSize,
			CreatedAt:   m.CreatedAt,
			IsEdited:    m.IsEdited,
			EditedAt:    m.EditedAt,
			ReplyTo:     m.ReplyTo,
		}
		if m.SenderID != nil {
			v.Sender = &SenderView{ID: *m.SenderID, Username: names[*m.SenderID]}
		}
		out = append(out, v)
	}
	return out
}
