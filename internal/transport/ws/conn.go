package ws

import (
	"time"

	"github.com/hives-africa/realtime-service/internal/bus"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	maxFrameSize = 1 << 20
)

// writePump сливает очередь записи в сокет и пингует по таймеру.
// Завершается по дерегистрации записи или по ошибке записи.
func (s *Server) writePump(conn *websocket.Conn, e *bus.Entry) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case payload := <-e.Out():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-e.Closed():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// setupRead ограничивает размер кадра и держит read deadline на pong'ах.
func (s *Server) setupRead(conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})
}
