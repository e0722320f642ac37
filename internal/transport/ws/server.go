package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hives-africa/realtime-service/internal/auth"
	"github.com/hives-africa/realtime-service/internal/bus"
	"github.com/hives-africa/realtime-service/internal/domain"
	"github.com/hives-africa/realtime-service/internal/service"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Server поднимает WS-соединения четырёх видов: комнатный чат, DM,
// live-сессия, уведомления. Аутентификация — до апгрейда; ошибка токена
// или допуска возвращается HTTP-статусом.
type Server struct {
	upgrader websocket.Upgrader

	reg      *bus.Registry
	bus      bus.Bus
	verifier *auth.Verifier

	chat     *service.ChatService
	live     *service.LiveService
	notifier *service.Notifier

	pingEvery time.Duration
}

func NewServer(reg *bus.Registry, b bus.Bus, verifier *auth.Verifier, chat *service.ChatService, live *service.LiveService, notifier *service.Notifier, pingEvery time.Duration) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		reg:       reg,
		bus:       b,
		verifier:  verifier,
		chat:      chat,
		live:      live,
		notifier:  notifier,
		pingEvery: pingEvery,
	}
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := s.verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return auth.Identity{}, false
	}
	return id, true
}

func (s *Server) publish(events []bus.Event) {
	for _, ev := range events {
		s.bus.Publish(ev.Group, ev.Data)
	}
}

// reply — адресный ответ в одно соединение, минуя группы.
func (s *Server) reply(e *bus.Entry, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("ws marshal reply failed", "err", err)
		return
	}
	if !e.Send(payload) {
		slog.Warn("ws reply dropped, queue full", "user", e.UserID())
	}
}

func (s *Server) replyErr(e *bus.Entry, err error) {
	s.reply(e, service.NewErrorEvent(clientMessage(err)))
}

// clientMessage: доменные ошибки уходят клиенту как есть, остальное прячется.
func clientMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrValidation,
		domain.ErrRoomNotFound,
		domain.ErrRoomFull,
		domain.ErrRoomInactive,
		domain.ErrNotAMember,
		domain.ErrMessageNotFound,
		domain.ErrMessageDeleted,
		domain.ErrNotSender,
		domain.ErrSessionNotFound,
		domain.ErrSessionFull,
		domain.ErrSessionClosed,
		domain.ErrNotParticipant,
		domain.ErrChatDisabled,
		domain.ErrInvalidState,
		domain.ErrPermissionDenied,
		domain.ErrNotificationNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err.Error()
		}
	}
	return "internal error"
}

// handshakeStatus — HTTP-статус отказа до апгрейда.
func handshakeStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRoomInactive),
		errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// detachedCtx — контекст для side-effect'ов после обрыва соединения:
// r.Context() к этому моменту уже отменён.
func detachedCtx(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
