package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hives-africa/realtime-service/internal/domain"
	"github.com/hives-africa/realtime-service/internal/postgres"
	"github.com/hives-africa/realtime-service/internal/service"
	httpmw "github.com/hives-africa/realtime-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	chatSvc  *service.ChatService
	liveSvc  *service.LiveService
	notifier *service.Notifier
	bus      Publisher
}

// Publisher исполняет события, возвращённые движками.
type Publisher interface {
	Publish(group string, data any)
}

func NewHandler(chat *service.ChatService, live *service.LiveService, notifier *service.Notifier, bus Publisher) *Handler {
	return &Handler{chatSvc: chat, liveSvc: live, notifier: notifier, bus: bus}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr мапит доменные ошибки в статусы; всё прочее — 500 без деталей.
func writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, postgres.ErrInvalidCursor):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotAMember), errors.Is(err, domain.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrRoomInactive),
		errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrSessionClosed):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		slog.Error("handler."+op, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func roomItem(r *domain.Room) RoomItem {
	return RoomItem{
		ID:        r.ID,
		Name:      r.Name,
		RoomType:  string(r.RoomType),
		CourseID:  r.CourseID,
		IsActive:  r.IsActive,
		IsPrivate: r.IsPrivate,
		CreatedAt: r.CreatedAt,
	}
}

func sessionItem(s *domain.LiveSession) SessionItem {
	return SessionItem{
		ID:              s.ID,
		Title:           s.Title,
		CourseID:        s.CourseID,
		LessonID:        s.LessonID,
		InstructorID:    s.InstructorID,
		Status:          string(s.Status),
		ScheduledStart:  s.ScheduledStart,
		ScheduledEnd:    s.ScheduledEnd,
		ActualStart:     s.ActualStart,
		ActualEnd:       s.ActualEnd,
		MaxParticipants: s.MaxParticipants,
		CreatedAt:       s.CreatedAt,
	}
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	id := httpmw.IdentityFromCtx(r.Context())

	room, err := h.chatSvc.CreateRoom(r.Context(), id.UserID, service.CreateRoomInput{
		Name:       req.Name,
		RoomType:   domain.RoomType(req.RoomType),
		CourseID:   req.CourseID,
		IsPrivate:  req.IsPrivate,
		MaxMembers: req.MaxMembers,
	})
	if err != nil {
		writeErr(w, "CreateRoom", err)
		return
	}
	writeJSON(w, http.StatusCreated, roomItem(room))
}

// GET /rooms/{roomID}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.chatSvc.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeErr(w, "GetRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, roomItem(room))
}

// POST /rooms/direct
func (h *Handler) CreateDirectRoom(w http.ResponseWriter, r *http.Request) {
	var req DirectRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	id := httpmw.IdentityFromCtx(r.Context())

	room, err := h.chatSvc.GetOrCreateDirectRoom(r.Context(), id.UserID, req.UserID)
	if err != nil {
		writeErr(w, "CreateDirectRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, roomItem(room))
}

// GET /rooms/{roomID}/messages?after=&limit=
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	// история доступна только участникам
	id := httpmw.IdentityFromCtx(r.Context())
	if err := h.chatSvc.EnsureMember(r.Context(), roomID, id.UserID); err != nil {
		writeErr(w, "GetMessages", err)
		return
	}

	items, next, err := h.chatSvc.History(r.Context(), roomID, after, limit)
	if err != nil {
		writeErr(w, "GetMessages", err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Items: items, NextCursor: next})
}

// GET /rooms/{roomID}/unread
func (h *Handler) GetUnreadMessages(w http.ResponseWriter, r *http.Request) {
	id := httpmw.IdentityFromCtx(r.Context())
	count, err := h.chatSvc.UnreadCount(r.Context(), chi.URLParam(r, "roomID"), id.UserID)
	if err != nil {
		writeErr(w, "GetUnreadMessages", err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

// POST /live-sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	id := httpmw.IdentityFromCtx(r.Context())

	session := &domain.LiveSession{
		Title:           req.Title,
		CourseID:        req.CourseID,
		LessonID:        req.LessonID,
		InstructorID:    id.UserID,
		ScheduledStart:  req.ScheduledStart,
		ScheduledEnd:    req.ScheduledEnd,
		MaxParticipants: req.MaxParticipants,
		AllowRecording:  req.AllowRecording,
		AutoRecord:      req.AutoRecord,
	}
	if err := h.liveSvc.Schedule(r.Context(), session); err != nil {
		writeErr(w, "CreateSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionItem(session))
}

// GET /live-sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.liveSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeErr(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionItem(session))
}

// POST /live-sessions/{sessionID}/cancel
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id := httpmw.IdentityFromCtx(r.Context())
	events, err := h.liveSvc.Cancel(r.Context(), chi.URLParam(r, "sessionID"), id.UserID)
	if err != nil {
		writeErr(w, "CancelSession", err)
		return
	}
	for _, ev := range events {
		h.bus.Publish(ev.Group, ev.Data)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// GET /live-sessions/{sessionID}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	parts, err := h.liveSvc.Participants(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeErr(w, "GetParticipants", err)
		return
	}
	resp := ParticipantsResponse{Items: make([]ParticipantItem, 0, len(parts))}
	for _, p := range parts {
		resp.Items = append(resp.Items, ParticipantItem{
			UserID:   p.UserID,
			Role:     string(p.Role),
			IsOnline: p.IsOnline,
			JoinedAt: p.JoinedAt,
			LeftAt:   p.LeftAt,
			PeerID:   p.PeerID,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /internal/notifications — вброс уведомления соседним сервисом.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	notif := &domain.Notification{
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Priority:    domain.Priority(req.Priority),
		ActionURL:   req.ActionURL,
		Data:        req.Data,
	}
	events, err := h.notifier.Notify(r.Context(), notif)
	if err != nil {
		writeErr(w, "CreateNotification", err)
		return
	}
	for _, ev := range events {
		h.bus.Publish(ev.Group, ev.Data)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": notif.ID})
}

// GET /notifications?after=&limit=
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	id := httpmw.IdentityFromCtx(r.Context())
	after := r.URL.Query().Get("after")
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	items, next, err := h.notifier.List(r.Context(), id.UserID, after, limit)
	if err != nil {
		writeErr(w, "ListNotifications", err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Items: items, NextCursor: next})
}

// POST /notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := httpmw.IdentityFromCtx(r.Context())
	count, err := h.notifier.MarkRead(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, "MarkNotificationRead", err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

// POST /notifications/read-all
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	id := httpmw.IdentityFromCtx(r.Context())
	if _, err := h.notifier.MarkAllRead(r.Context(), id.UserID); err != nil {
		writeErr(w, "MarkAllNotificationsRead", err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: 0})
}
