package ws

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hives-africa/realtime-service/internal/auth"
	"github.com/hives-africa/realtime-service/internal/bus"
	"github.com/hives-africa/realtime-service/internal/domain"
	"github.com/hives-africa/realtime-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// WS endpoint: GET /ws/chat/{roomID}?token=...
func (s *Server) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}
	s.serveChat(w, r, id, roomID)
}

// WS endpoint: GET /ws/direct/{userID}?token=... — DM с указанным пользователем.
// Комната пары создаётся при первом обращении.
func (s *Server) HandleDirectWS(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	otherID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || otherID <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	room, err := s.chat.GetOrCreateDirectRoom(r.Context(), id.UserID, otherID)
	if err != nil {
		http.Error(w, clientMessage(err), handshakeStatus(err))
		return
	}
	s.serveChat(w, r, id, room.ID)
}

func (s *Server) serveChat(w http.ResponseWriter, r *http.Request, id auth.Identity, roomID string) {
	cc, history, events, err := s.chat.Connect(r.Context(), id.UserID, id.DisplayName, roomID)
	if err != nil {
		http.Error(w, clientMessage(err), handshakeStatus(err))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "room", roomID, "err", err)
		return
	}

	e := s.reg.Register(id.UserID)
	s.bus.Subscribe(e, cc.Group)
	go s.writePump(conn, e)

	s.reply(e, service.MessageHistoryEvent{Type: "message_history", Messages: history})
	s.publish(events)

	slog.Info("chat connected", "room", roomID, "user", id.UserID)
	s.chatReadLoop(r, conn, e, cc)

	s.reg.Deregister(e)
	ctx, cancel := detachedCtx(5 * time.Second)
	defer cancel()
	s.publish(s.chat.Disconnect(ctx, cc))
	_ = conn.Close()
	slog.Info("chat disconnected", "room", roomID, "user", id.UserID)
}

func (s *Server) chatReadLoop(r *http.Request, conn *websocket.Conn, e *bus.Entry, cc *service.ChatContext) {
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
		case "chat_message":
			var in chatMessageIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			events, err := s.chat.Send(ctx, cc, service.SendInput{
				Content:     in.Message,
				MessageType: domain.MessageType(in.MessageType),
				FileName:    in.FileName,
				FileSize:    in.FileSize,
				ReplyTo:     in.ReplyTo,
			})
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.publish(events)

		case "typing":
			var in typingIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			s.publish(s.chat.Typing(cc, in.IsTyping))

		case "read_receipt":
			var in readReceiptIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			events, err := s.chat.ReadReceipt(ctx, cc, in.MessageID)
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.publish(events)

		case "delete_message":
			var in deleteMessageIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			events, err := s.chat.Delete(ctx, cc, in.MessageID)
			if err != nil {
				s.replyErr(e, err)
				continue
			}
			s.publish(events)

		case "edit_message":
			var in editMessageIn
			if err := json.Unmarshal(data, &in); err != nil {
				s.reply(e, service.NewErrorEvent("malformed message"))
				continue
			}
			events, err := s.chat.Edit(ctx, cc, in.MessageID, in.Content)
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
