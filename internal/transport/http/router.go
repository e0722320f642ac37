package http

import (
	"net/http"
	"time"

	"github.com/hives-africa/realtime-service/internal/auth"
	httpmw "github.com/hives-africa/realtime-service/internal/transport/http/middleware"
	"github.com/hives-africa/realtime-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, verifier *auth.Verifier, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Logger)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// WS endpoints: аутентификация внутри хендлеров, до апгрейда
	r.Get("/ws/chat/{roomID}", wsServer.HandleChatWS)
	r.Get("/ws/direct/{userID}", wsServer.HandleDirectWS)
	r.Get("/ws/live-sessions/{sessionID}", wsServer.HandleSessionWS)
	r.Get("/ws/notifications", wsServer.HandleNotificationsWS)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(verifier))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Post("/", h.CreateRoom)
			rm.Post("/direct", h.CreateDirectRoom)

			rm.Route("/{roomID}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Get("/messages", h.GetMessages)
				rr.Get("/unread", h.GetUnreadMessages)
			})
		})

		pr.Route("/live-sessions", func(ls chi.Router) {
			ls.Post("/", h.CreateSession)

			ls.Route("/{sessionID}", func(sr chi.Router) {
				sr.Get("/", h.GetSession)
				sr.Post("/cancel", h.CancelSession)
				sr.Get("/participants", h.GetParticipants)
			})
		})

		pr.Route("/notifications", func(nr chi.Router) {
			nr.Get("/", h.ListNotifications)
			nr.Post("/{id}/read", h.MarkNotificationRead)
			nr.Post("/read-all", h.MarkAllNotificationsRead)
		})

		// вброс уведомлений соседними сервисами
		pr.Post("/internal/notifications", h.CreateNotification)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
