package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hives-africa/realtime-service/internal/bus"
	"github.com/hives-africa/realtime-service/internal/domain"
	"github.com/hives-africa/realtime-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// WS endpoint: GET /ws/live-sessions/{sessionID}?token=...
func (s *Server) HandleSessionWS(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	sc, participant, events, err := s.live.Join(r.Context(), id.UserID, id.DisplayName, sessionID)
	if err != nil {
		http.Error(w, clientMessage(err), handshakeStatus(err))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "session", sessionID, "err", err)
		return
	}

	e := s.reg.Register(id.UserID)
	s.bus.Subscribe(e, sc.SessionGroup)
	s.bus.Subscribe(e, sc.UserGroup)
	s.bus.Subscribe(e, sc.ChatGroup)
	go s.writePump(conn, e)

	// стартовые права соединения — адресно, до каких-либо broadcast'ов
	s.reply(e, service.PermissionChangeEvent{Type: "permission_change", Permissions: service.Permissions(participant)})
	s.publish(events)

	slog.Info("session connected", "session", sessionID, "user", id.UserID, "instructor", sc.IsInstructor)
	s.sessionReadLoop(r, conn, e, sc)

	s.reg.Deregister(e)
	ctx, cancel := detachedCtx(5 * time.Second)
	defer cancel()
	s.publish(s.live.Leave(ctx, sc))
	_ = conn.Close()
	slog.Info("session disconnected", "session", sessionID, "user", id.UserID)
}

func (s *Server) sessionReadLoop(r *http.Request, conn *websocket.Conn, e *bus.Entry, sc *service.SessionContext) {
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
		case "webrtc_signal":
			var in webrtcSignalIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			events, err := s.live.Signal(ctx, sc, in.SignalType, in.SignalData, in.TargetUserID)
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.publish(events)

		case "chat_message":
			var in sessionChatIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			events, err := s.live.ChatSend(ctx, sc, in.Message, in.IsPrivate)
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.publish(events)

		case "screen_share":
			var in screenShareIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			s.publish(s.live.ScreenShare(sc, in.IsSharing))

		case "raise_hand":
			var in raiseHandIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			s.publish(s.live.RaiseHand(sc, in.IsRaised))

		case "permission_change":
			var in permissionChangeIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			events, err := s.live.PermissionChange(ctx, sc, in.TargetUserID, domain.Permissions{
				CanShareScreen: in.CanShareScreen,
				CanShareAudio:  in.CanShareAudio,
				CanShareVideo:  in.CanShareVideo,
				CanChat:        in.CanChat,
			})
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.publish(events)

		default:
			s.reply(e, service.NewErrorEvent("unknown message type"))
		}
	}
}
