package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hives-africa/realtime-service/internal/bus"
	"github.com/hives-africa/realtime-service/internal/domain"
)

// Notifier — диспетчер уведомлений и присутствия. Персистентность всегда,
// realtime-доставка — по настройкам получателя.
type Notifier struct {
	store NotificationStore

	now func() time.Time
}

func NewNotifier(store NotificationStore) *Notifier {
	return &Notifier{store: store, now: time.Now}
}

// Notify сохраняет уведомление и решает, доставлять ли его по WS:
// realtime выключен или идут тихие часы — остаётся только строка в БД.
func (n *Notifier) Notify(ctx context.Context, notif *domain.Notification) ([]bus.Event, error) {
	if notif.RecipientID <= 0 || notif.Title == "" {
		return nil, fmt.Errorf("%w: recipient_id and title are required", domain.ErrValidation)
	}
	if err := n.store.Create(ctx, notif); err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	pref, err := n.store.GetPreference(ctx, notif.RecipientID)
	if err != nil {
		slog.Warn("load notification preference failed", "user", notif.RecipientID, "err", err)
		return nil, nil
	}
	if !pref.RealtimeEnabled || pref.InQuietHours(n.now()) {
		return nil, nil
	}

	group := domain.NotificationGroup(notif.RecipientID)
	events := []bus.Event{{
		Group: group,
		Data:  NewNotificationEvent{Type: "new_notification", Notification: notificationView(notif)},
	}}
	if count, err := n.store.UnreadCount(ctx, notif.RecipientID); err == nil {
		events = append(events, bus.Event{
			Group: group,
			Data:  UnreadCountEvent{Type: "unread_count", Count: count},
		})
	} else {
		slog.Warn("unread count failed", "user", notif.RecipientID, "err", err)
	}
	return events, nil
}

// Connected фиксирует онлайн и возвращает стартовый счётчик непрочитанных.
func (n *Notifier) Connected(ctx context.Context, userID int64) (int, error) {
	if err := n.store.UpsertPresence(ctx, userID, true, n.now()); err != nil {
		slog.Warn("presence upsert failed", "user", userID, "err", err)
	}
	return n.store.UnreadCount(ctx, userID)
}

func (n *Notifier) Disconnected(ctx context.Context, userID int64) {
	if err := n.store.UpsertPresence(ctx, userID, false, n.now()); err != nil {
		slog.Warn("presence upsert failed", "user", userID, "err", err)
	}
}

// MarkRead идемпотентен: повторная отметка не меняет счётчик и не ошибка.
// Возвращает актуальный счётчик для ответа клиенту.
func (n *Notifier) MarkRead(ctx context.Context, userID int64, notificationID string) (int, error) {
	if notificationID == "" {
		return 0, fmt.Errorf("%w: notification_id is required", domain.ErrValidation)
	}
	if _, err := n.store.MarkRead(ctx, notificationID, userID, n.now()); err != nil {
		return 0, err
	}
	return n.store.UnreadCount(ctx, userID)
}

func (n *Notifier) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return n.store.MarkAllRead(ctx, userID, n.now())
}

func (n *Notifier) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return n.store.UnreadCount(ctx, userID)
}

// List — курсорная выдача для HTTP-коллаборатора.
func (n *Notifier) List(ctx context.Context, userID int64, after string, limit int) ([]NotificationView, string, error) {
	notifs, next, err := n.store.List(ctx, userID, after, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]NotificationView, 0, len(notifs))
	for i := range notifs {
		out = append(out, notificationView(&notifs[i]))
	}
	return out, next, nil
}
