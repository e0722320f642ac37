package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hives-africa/realtime-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, notification_type, title, message, priority,
	is_read, read_at, is_seen, seen_at, action_url, data, created_at`

func scanNotification(row pgx.Row, n *domain.Notification) error {
	return row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.Priority,
		&n.IsRead, &n.ReadAt, &n.IsSeen, &n.SeenAt, &n.ActionURL, &n.Data, &n.CreatedAt)
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}
	query := `
		INSERT INTO notifications (recipient_id, notification_type, title, message, priority, action_url, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		n.RecipientID, n.Type, n.Title, n.Message, n.Priority, n.ActionURL, n.Data,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepository) Get(ctx context.Context, id string, recipientID int64) (*domain.Notification, error) {
	var n domain.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1 AND recipient_id=$2`
	if err := scanNotification(r.db.QueryRow(ctx, query, id, recipientID), &n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

// List — уведомления получателя, новые первыми, курсорная пагинация.
func (r *NotificationRepository) List(ctx context.Context, recipientID int64, after string, limit int) ([]domain.Notification, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, recipientID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, "", err
		}
		out = append(out, n)
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, next, rows.Err()
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND is_read=FALSE`,
		recipientID).Scan(&count)
	return count, err
}

// MarkRead идемпотентна: timestamp выставляется только при первом переходе.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, recipientID int64, at time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read=TRUE, read_at=$3
		WHERE id=$1 AND recipient_id=$2 AND is_read=FALSE`,
		id, recipientID, at)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		// различаем not-found и уже прочитанное
		if _, err := r.Get(ctx, id, recipientID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read=TRUE, read_at=$2
		WHERE recipient_id=$1 AND is_read=FALSE`,
		recipientID, at)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *NotificationRepository) MarkSeen(ctx context.Context, id string, recipientID int64, at time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_seen=TRUE, seen_at=$3
		WHERE id=$1 AND recipient_id=$2 AND is_seen=FALSE`,
		id, recipientID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// GetPreference — read-only настройки коллаборатора; без строки действуют дефолты.
func (r *NotificationRepository) GetPreference(ctx context.Context, userID int64) (domain.NotificationPreference, error) {
	p := domain.NotificationPreference{
		UserID:          userID,
		RealtimeEnabled: true,
		EmailEnabled:    true,
		PushEnabled:     true,
	}
	query := `
		SELECT realtime_enabled, email_enabled, push_enabled,
		       quiet_hours_enabled, COALESCE(quiet_hours_start, ''), COALESCE(quiet_hours_end, '')
		FROM notification_preferences WHERE user_id=$1`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.RealtimeEnabled, &p.EmailEnabled, &p.PushEnabled,
		&p.QuietHoursEnabled, &p.QuietHoursStart, &p.QuietHoursEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, nil
		}
		return p, err
	}
	return p, nil
}

// UpsertPresence вызывается на каждом connect/disconnect.
func (r *NotificationRepository) UpsertPresence(ctx context.Context, userID int64, online bool, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_presence (user_id, is_online, last_seen)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET is_online=$2, last_seen=$3`,
		userID, online, at)
	return err
}
