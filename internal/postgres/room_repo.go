package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hives-africa/realtime-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO chat_rooms (name, room_type, course_id, creator_id, is_active, is_private, max_members)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		room.Name, room.RoomType, room.CourseID, room.CreatorID,
		room.IsActive, room.IsPrivate, room.MaxMembers,
	).Scan(&room.ID, &room.CreatedAt)
}

func (r *RoomRepository) Get(ctx context.Context, id string) (*domain.Room, error) {
	var rm domain.Room
	query := `
		SELECT id, name, room_type, course_id, creator_id, is_active, is_private, max_members, created_at
		FROM chat_rooms WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rm.ID, &rm.Name, &rm.RoomType, &rm.CourseID, &rm.CreatorID,
		&rm.IsActive, &rm.IsPrivate, &rm.MaxMembers, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) GetMembership(ctx context.Context, roomID string, userID int64) (*domain.Membership, error) {
	var m domain.Membership
	query := `
		SELECT user_id, room_id, role, can_send_messages, can_send_files, last_read_at, created_at
		FROM room_memberships WHERE room_id=$1 AND user_id=$2`
	err := r.db.QueryRow(ctx, query, roomID, userID).Scan(
		&m.UserID, &m.RoomID, &m.Role, &m.CanSendMessages, &m.CanSendFiles, &m.LastReadAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotAMember
		}
		return nil, err
	}
	return &m, nil
}

// CreateMembership — get-or-create: гонка двух первых join сходится к одной строке.
func (r *RoomRepository) CreateMembership(ctx context.Context, roomID string, userID int64, role domain.MemberRole) (*domain.Membership, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO room_memberships (room_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO NOTHING`,
		roomID, userID, role)
	if err != nil {
		return nil, err
	}
	return r.GetMembership(ctx, roomID, userID)
}

// CountMembers — текущая численность комнаты, нужна для лимита при open-join.
func (r *RoomRepository) CountMembers(ctx context.Context, roomID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_memberships WHERE room_id=$1`,
		roomID).Scan(&count)
	return count, err
}

func (r *RoomRepository) UpdateLastRead(ctx context.Context, roomID string, userID int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE room_memberships SET last_read_at=$3 WHERE room_id=$1 AND user_id=$2`,
		roomID, userID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotAMember
	}
	return nil
}

// GetOrCreateDirectRoom находит или создаёт DM-комнату для неупорядоченной пары.
// Пара канонизируется (меньший id первым); уникальный индекс direct_rooms(user1_id,user2_id)
// гарантирует одну комнату на пару, проигравший гонку перечитывает строку победителя.
func (r *RoomRepository) GetOrCreateDirectRoom(ctx context.Context, userA, userB int64) (*domain.Room, error) {
	u1, u2 := domain.CanonicalPair(userA, userB)

	if room, err := r.getDirectRoom(ctx, u1, u2); err == nil {
		return room, nil
	} else if !errors.Is(err, domain.ErrRoomNotFound) {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var room domain.Room
	err = tx.QueryRow(ctx, `
		INSERT INTO chat_rooms (name, room_type, is_active, is_private)
		VALUES ($1, 'direct', TRUE, TRUE)
		RETURNING id, name, room_type, course_id, creator_id, is_active, is_private, max_members, created_at`,
		directRoomName(u1, u2),
	).Scan(&room.ID, &room.Name, &room.RoomType, &room.CourseID, &room.CreatorID,
		&room.IsActive, &room.IsPrivate, &room.MaxMembers, &room.CreatedAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO direct_rooms (user1_id, user2_id, room_id) VALUES ($1, $2, $3)`,
		u1, u2, room.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// проиграли гонку — читаем комнату победителя
			_ = tx.Rollback(ctx)
			return r.getDirectRoom(ctx, u1, u2)
		}
		return nil, err
	}

	for _, uid := range []int64{u1, u2} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO room_memberships (room_id, user_id, role)
			VALUES ($1, $2, 'member')
			ON CONFLICT (room_id, user_id) DO NOTHING`,
			room.ID, uid); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) getDirectRoom(ctx context.Context, u1, u2 int64) (*domain.Room, error) {
	var rm domain.Room
	query := `
		SELECT c.id, c.name, c.room_type, c.course_id, c.creator_id, c.is_active, c.is_private, c.max_members, c.created_at
		FROM direct_rooms d
		JOIN chat_rooms c ON c.id = d.room_id
		WHERE d.user1_id=$1 AND d.user2_id=$2`
	err := r.db.QueryRow(ctx, query, u1, u2).Scan(
		&rm.ID, &rm.Name, &rm.RoomType, &rm.CourseID, &rm.CreatorID,
		&rm.IsActive, &rm.IsPrivate, &rm.MaxMembers, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

func directRoomName(u1, u2 int64) string {
	return "dm:" + itoa(u1) + ":" + itoa(u2)
}
