package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hives-africa/realtime-service/internal/bus"
	"github.com/hives-africa/realtime-service/internal/domain"
	"github.com/hives-africa/realtime-service/internal/service"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// WS endpoint: GET /ws/notifications?token=... — персональный поток уведомлений.
func (s *Server) HandleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	unread, err := s.notifier.Connected(r.Context(), id.UserID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "user", id.UserID, "err", err)
		return
	}

	e := s.reg.Register(id.UserID)
	s.bus.Subscribe(e, domain.NotificationGroup(id.UserID))
	go s.writePump(conn, e)

	s.reply(e, service.UnreadCountEvent{Type: "unread_count", Count: unread})

	slog.Info("notifications connected", "user", id.UserID)
	s.notificationsReadLoop(r, conn, e, id.UserID)

	s.reg.Deregister(e)
	ctx, cancel := detachedCtx(5 * time.Second)
	defer cancel()
	s.notifier.Disconnected(ctx, id.UserID)
	_ = conn.Close()
	slog.Info("notifications disconnected", "user", id.UserID)
}

func (s *Server) notificationsReadLoop(r *http.Request, conn *websocket.Conn, e *bus.Entry, userID int64) {
	ctx := r.Context()
	s.setupRead(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.reply(e, service.NewErrorEvent("malformed message"))
			continue
		}

		switch env.Type {
		case "mark_read":
			var in markReadIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			count, err := s.notifier.MarkRead(ctx, userID, in.NotificationID)
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.reply(e, service.UnreadCountEvent{Type: "unread_count", Count: count})

		case "mark_all_read":
			if _, err := s.notifier.MarkAllRead(ctx, userID); err != nil {
				s.replyErr(e, err)
				continue
			}
			s.reply(e, service.UnreadCountEvent{Type: "unread_count", Count: 0})

		case "get_unread_count":
			count, err := s.notifier.UnreadCount(ctx, userID)
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.reply(e, service.UnreadCountEvent{Type: "unread_count", Count: count})

		default:
			s.reply(e, service.NewErrorEvent("unknown message type"))
		}
	}
}
