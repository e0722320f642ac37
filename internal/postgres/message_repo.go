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

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, room_id, sender_id, message_type, content, file_name, file_size,
	is_edited, edited_at, is_deleted, deleted_at, reply_to, created_at`

func scanMessage(row pgx.Row, m *domain.Message) error {
	return row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.MessageType, &m.Content,
		&m.FileName, &m.FileSize, &m.IsEdited, &m.EditedAt,
		&m.IsDeleted, &m.DeletedAt, &m.ReplyTo, &m.CreatedAt)
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (room_id, sender_id, message_type, content, file_name, file_size, reply_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		m.RoomID, m.SenderID, m.MessageType, m.Content, m.FileName, m.FileSize, m.ReplyTo,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	if err := scanMessage(r.db.QueryRow(ctx, query, id), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Recent — последние limit сообщений комнаты в хронологическом порядке,
// без soft-deleted. Отдаётся подключившемуся клиенту как message_history.
func (r *MessageRepository) Recent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + messageColumns + `
		FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE room_id=$1 AND is_deleted=FALSE
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) t
		ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// History — курсорная пагинация для HTTP-коллаборатора (created_at,id DESC).
func (r *MessageRepository) History(ctx context.Context, roomID, after string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE room_id = $1
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

	rows, err := r.db.Query(ctx, query, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, "", err
		}
		out = append(out, m)
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, next, rows.Err()
}

// Edit — условный UPDATE: только отправитель, только в своей комнате и только
// пока сообщение не удалено. Параллельные edit+delete не оставляют
// несогласованного состояния.
func (r *MessageRepository) Edit(ctx context.Context, roomID, id string, senderID int64, content string, at time.Time) (*domain.Message, error) {
	var m domain.Message
	query := `
		UPDATE messages
		SET content=$4, is_edited=TRUE, edited_at=$5
		WHERE id=$1 AND room_id=$2 AND sender_id=$3 AND is_deleted=FALSE
		RETURNING ` + messageColumns
	err := scanMessage(r.db.QueryRow(ctx, query, id, roomID, senderID, content, at), &m)
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return nil, r.classifyMutationFailure(ctx, roomID, id, senderID)
}

// SoftDelete замещает контент плейсхолдером; повторное удаление — no-op ошибка.
func (r *MessageRepository) SoftDelete(ctx context.Context, roomID, id string, senderID int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_deleted=TRUE, deleted_at=$4, content=$5
		WHERE id=$1 AND room_id=$2 AND sender_id=$3 AND is_deleted=FALSE`,
		id, roomID, senderID, at, domain.DeletedPlaceholder)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.classifyMutationFailure(ctx, roomID, id, senderID)
	}
	return nil
}

// classifyMutationFailure различает чужую комнату (для клиента — not found) /
// чужое сообщение / уже удалено.
func (r *MessageRepository) classifyMutationFailure(ctx context.Context, roomID, id string, senderID int64) error {
	m, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.RoomID != roomID {
		return domain.ErrMessageNotFound
	}
	if m.SenderID == nil || *m.SenderID != senderID {
		return domain.ErrNotSender
	}
	if m.IsDeleted {
		return domain.ErrMessageDeleted
	}
	return domain.ErrMessageNotFound
}

// MarkRead — create-if-absent; повторная отметка того же читателя — no-op.
func (r *MessageRepository) MarkRead(ctx context.Context, messageID string, userID int64, at time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
		INSERT INTO message_read_receipts (message_id, user_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO NOTHING`,
		messageID, userID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// UnreadCount: сообщения комнаты новее last_read_at, кроме собственных.
func (r *MessageRepository) UnreadCount(ctx context.Context, roomID string, userID int64, lastReadAt time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE room_id=$1
		  AND created_at > $2
		  AND (sender_id IS NULL OR sender_id <> $3)`,
		roomID, lastReadAt, userID).Scan(&count)
	return count, err
}
