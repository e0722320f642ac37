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

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SessionContext — состояние одного подключения к live-сессии.
type SessionContext struct {
	UserID    int64
	Username  string
	SessionID string

	// группы, на которые подписано соединение
	SessionGroup string
	UserGroup    string
	ChatGroup    string

	IsInstructor bool
}

// LiveService — движок live-сессий: roster, state machine, relay сигналинга.
type LiveService struct {
	sessions SessionStore
	authz    *Authorizer

	now func() time.Time
}

func NewLiveService(sessions SessionStore, authz *Authorizer) *LiveService {
	return &LiveService{sessions: sessions, authz: authz, now: time.Now}
}

// Schedule создаёт сессию в состоянии scheduled (вызов HTTP-коллаборатора).
func (s *LiveService) Schedule(ctx context.Context, session *domain.LiveSession) error {
	if session.Title == "" || session.CourseID == "" || session.InstructorID <= 0 {
		return fmt.Errorf("%w: title, course_id and instructor_id are required", domain.ErrValidation)
	}
	if !session.ScheduledEnd.After(session.ScheduledStart) {
		return fmt.Errorf("%w: scheduled_end must be after scheduled_start", domain.ErrValidation)
	}
	if session.MaxParticipants <= 0 {
		session.MaxParticipants = 100
	}
	session.Status = domain.SessionScheduled
	return s.sessions.Create(ctx, session)
}

// Cancel — scheduled -> cancelled; из любого другого состояния — StateConflict.
func (s *LiveService) Cancel(ctx context.Context, sessionID string, byUserID int64) ([]bus.Event, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanManage(byUserID, session) {
		return nil, domain.ErrPermissionDenied
	}
	if err := s.sessions.Cancel(ctx, sessionID); err != nil {
		return nil, err
	}
	return []bus.Event{{
		Group: domain.SessionGroup(sessionID),
		Data:  SessionEndedEvent{Type: "session_ended", Message: "Session has been cancelled"},
	}}, nil
}

// Join допускает участника: статус из {scheduled, live}, лимит по онлайн-участникам,
// get-or-create строки участника. Инструктор, входящий в scheduled-сессию,
// автоматически переводит её в live.
func (s *LiveService) Join(ctx context.Context, userID int64, username, sessionID string) (*SessionContext, *domain.SessionParticipant, []bus.Event, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}

	ok, err := s.authz.CanJoinSession(ctx, userID, session)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("authorize session join: %w", err)
	}
	if !ok {
		return nil, nil, nil, domain.ErrPermissionDenied
	}
	if !session.Joinable() {
		return nil, nil, nil, domain.ErrSessionClosed
	}

	role := domain.ParticipantStudent
	if session.InstructorID == userID {
		role = domain.ParticipantInstructor
	}

	participant, err := s.sessions.Join(ctx, sessionID, userID, role, uuid.NewString(), s.now())
	if err != nil {
		return nil, nil, nil, err
	}

	if role == domain.ParticipantInstructor && session.Status == domain.SessionScheduled {
		if err := s.sessions.Start(ctx, sessionID, s.now()); err != nil && !errors.Is(err, domain.ErrInvalidState) {
			// ErrInvalidState здесь означает проигранную гонку второго start — сессия уже live
			slog.Warn("auto-start session failed", "session", sessionID, "err", err)
		}
	}

	sc := &SessionContext{
		UserID:       userID,
		Username:     username,
		SessionID:    sessionID,
		SessionGroup: domain.SessionGroup(sessionID),
		UserGroup:    domain.SessionUserGroup(sessionID, userID),
		ChatGroup:    domain.SessionChatGroup(sessionID),
		IsInstructor: role == domain.ParticipantInstructor,
	}
	events := []bus.Event{{
		Group: sc.SessionGroup,
		Data:  SessionPeerEvent{Type: "user_joined", UserID: userID, Username: username},
	}}
	return sc, participant, events, nil
}

// Leave отмечает выход. Уход инструктора из live-сессии завершает её и
// принудительно переводит остальных online-участников в offline одним timestamp.
func (s *LiveService) Leave(ctx context.Context, sc *SessionContext) []bus.Event {
	now := s.now()
	if err := s.sessions.MarkLeft(ctx, sc.SessionID, sc.UserID, now); err != nil {
		slog.Debug("mark left failed", "session", sc.SessionID, "user", sc.UserID, "err", err)
	}

	events := []bus.Event{{
		Group: sc.SessionGroup,
		Data:  SessionPeerEvent{Type: "user_left", UserID: sc.UserID, Username: sc.Username},
	}}

	if !sc.IsInstructor {
		return events
	}

	session, err := s.sessions.Get(ctx, sc.SessionID)
	if err != nil || session.Status != domain.SessionLive {
		return events
	}
	if err := s.sessions.End(ctx, sc.SessionID, now); err != nil {
		slog.Warn("auto-end session failed", "session", sc.SessionID, "err", err)
		return events
	}
	if err := s.sessions.ForceOffline(ctx, sc.SessionID, sc.UserID, now); err != nil {
		slog.Warn("force offline failed", "session", sc.SessionID, "err", err)
	}
	events = append(events, bus.Event{
		Group: sc.SessionGroup,
		Data:  SessionEndedEvent{Type: "session_ended", Message: "Session has been ended by the instructor"},
	})
	return events
}

// Signal сохраняет сигнал в append-only журнал и ретранслирует payload,
// не заглядывая внутрь: адресно в приватную группу либо broadcast в сессию.
func (s *LiveService) Signal(ctx context.Context, sc *SessionContext, signalType string, data json.RawMessage, targetUserID *int64) ([]bus.Event, error) {
	if signalType == "" {
		return nil, fmt.Errorf("%w: signal_type is required", domain.ErrValidation)
	}

	record := &domain.WebRTCSignal{
		SessionID:  sc.SessionID,
		FromUserID: sc.UserID,
		ToUserID:   targetUserID,
		SignalType: domain.SignalType(signalType),
		SignalData: data,
	}
	if err := s.sessions.SaveSignal(ctx, record); err != nil {
		// журнал — для отладки, не для доставки; relay продолжается
		slog.Warn("persist signal failed", "session", sc.SessionID, "err", err)
	}

	group := sc.SessionGroup
	if targetUserID != nil {
		group = domain.SessionUserGroup(sc.SessionID, *targetUserID)
	}
	return []bus.Event{{
		Group: group,
		Data: WebRTCSignalEvent{
			Type:       "webrtc_signal",
			SignalType: signalType,
			SignalData: data,
			FromUserID: sc.UserID,
		},
	}}, nil
}

// PermissionChange: только инструктор; неавторизованная попытка молча
// игнорируется, чтобы не раскрывать роли. Новые права уходят только
// в приватную группу целевого участника.
func (s *LiveService) PermissionChange(ctx context.Context, sc *SessionContext, targetUserID int64, perms domain.Permissions) ([]bus.Event, error) {
	session, err := s.sessions.Get(ctx, sc.SessionID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanManage(sc.UserID, session) {
		return nil, nil
	}

	participant, err := s.sessions.UpdatePermissions(ctx, sc.SessionID, targetUserID, perms)
	if err != nil {
		return nil, err
	}
	return []bus.Event{{
		Group: domain.SessionUserGroup(sc.SessionID, targetUserID),
		Data:  PermissionChangeEvent{Type: "permission_change", Permissions: permissionsView(participant)},
	}}, nil
}

// ChatSend требует строку участника с can_chat=true.
func (s *LiveService) ChatSend(ctx context.Context, sc *SessionContext, message string, isPrivate bool) ([]bus.Event, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	participant, err := s.sessions.GetParticipant(ctx, sc.SessionID, sc.UserID)
	if err != nil {
		return nil, err
	}
	if !participant.CanChat {
		return nil, domain.ErrChatDisabled
	}

	chat := &domain.SessionChatMessage{
		SessionID: sc.SessionID,
		UserID:    sc.UserID,
		Message:   message,
		IsPrivate: isPrivate,
	}
	if err := s.sessions.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("save session chat: %w", err)
	}

	return []bus.Event{{
		Group: sc.ChatGroup,
		Data: SessionChatEvent{
			Type: "chat_message",
			Message: SessionChatView{
				ID:        chat.ID,
				UserID:    sc.UserID,
				Username:  sc.Username,
				Message:   message,
				IsPrivate: isPrivate,
				Timestamp: chat.CreatedAt,
			},
		},
	}}, nil
}

// ScreenShare и RaiseHand — широковещательные события без персистентности.
func (s *LiveService) ScreenShare(sc *SessionContext, isSharing bool) []bus.Event {
	return []bus.Event{{
		Group: sc.SessionGroup,
		Data:  ScreenShareEvent{Type: "screen_share", UserID: sc.UserID, Username: sc.Username, IsSharing: isSharing},
	}}
}

func (s *LiveService) RaiseHand(sc *SessionContext, isRaised bool) []bus.Event {
	return []bus.Event{{
		Group: sc.SessionGroup,
		Data:  RaiseHandEvent{Type: "raise_hand", UserID: sc.UserID, Username: sc.Username, IsRaised: isRaised},
	}}
}

func (s *LiveService) Participants(ctx context.Context, sessionID string) ([]domain.SessionParticipant, error) {
	return s.sessions.ListParticipants(ctx, sessionID)
}

func (s *LiveService) GetSession(ctx context.Context, sessionID string) (*domain.LiveSession, error) {
	return s.sessions.Get(ctx, sessionID)
}
