package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hives-africa/realtime-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, title, course_id, lesson_id, instructor_id, status,
	scheduled_start, scheduled_end, actual_start, actual_end,
	max_participants, allow_recording, auto_record, room_id, created_at`

func scanSession(row pgx.Row, s *domain.LiveSession) error {
	return row.Scan(&s.ID, &s.Title, &s.CourseID, &s.LessonID, &s.InstructorID, &s.Status,
		&s.ScheduledStart, &s.ScheduledEnd, &s.ActualStart, &s.ActualEnd,
		&s.MaxParticipants, &s.AllowRecording, &s.AutoRecord, &s.RoomID, &s.CreatedAt)
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.LiveSession) error {
	if s.RoomID == "" {
		s.RoomID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = domain.SessionScheduled
	}
	query := `
		INSERT INTO live_sessions
			(title, course_id, lesson_id, instructor_id, status,
			 scheduled_start, scheduled_end, max_participants,
			 allow_recording, auto_record, room_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		s.Title, s.CourseID, s.LessonID, s.InstructorID, s.Status,
		s.ScheduledStart, s.ScheduledEnd, s.MaxParticipants,
		s.AllowRecording, s.AutoRecord, s.RoomID,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.LiveSession, error) {
	var s domain.LiveSession
	query := `SELECT ` + sessionColumns + ` FROM live_sessions WHERE id=$1`
	if err := scanSession(r.db.QueryRow(ctx, query, id), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Start — compare-and-set scheduled -> live; повторный вызов состояния не меняет.
func (r *SessionRepository) Start(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id,
		`UPDATE live_sessions SET status='live', actual_start=$2
		 WHERE id=$1 AND status='scheduled'`, at)
}

// End — compare-and-set live -> ended.
func (r *SessionRepository) End(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id,
		`UPDATE live_sessions SET status='ended', actual_end=$2
		 WHERE id=$1 AND status='live'`, at)
}

// Cancel допустим только из scheduled.
func (r *SessionRepository) Cancel(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE live_sessions SET status='cancelled' WHERE id=$1 AND status='scheduled'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

func (r *SessionRepository) transition(ctx context.Context, id, query string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

func (r *SessionRepository) transitionFailure(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidState
}

const participantColumns = `session_id, user_id, role, joined_at, left_at, is_online,
	can_share_screen, can_share_audio, can_share_video, can_chat, peer_id`

func scanParticipant(row pgx.Row, p *domain.SessionParticipant) error {
	return row.Scan(&p.SessionID, &p.UserID, &p.Role, &p.JoinedAt, &p.LeftAt, &p.IsOnline,
		&p.CanShareScreen, &p.CanShareAudio, &p.CanShareVideo, &p.CanChat, &p.PeerID)
}

func (r *SessionRepository) GetParticipant(ctx context.Context, sessionID string, userID int64) (*domain.SessionParticipant, error) {
	var p domain.SessionParticipant
	query := `SELECT ` + participantColumns + ` FROM session_participants WHERE session_id=$1 AND user_id=$2`
	if err := scanParticipant(r.db.QueryRow(ctx, query, sessionID, userID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotParticipant
		}
		return nil, err
	}
	return &p, nil
}

// Join — get-or-create строки участника и отметка joined/online под блокировкой
// строки сессии: параллельные join по одной сессии не пробьют лимит онлайн-участников.
func (r *SessionRepository) Join(ctx context.Context, sessionID string, userID int64, role domain.ParticipantRole, peerID string, at time.Time) (*domain.SessionParticipant, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var max int64
	err = tx.QueryRow(ctx,
		`SELECT max_participants FROM live_sessions WHERE id=$1 FOR UPDATE`,
		sessionID).Scan(&max)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var online int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_participants WHERE session_id=$1 AND is_online=TRUE AND user_id<>$2`,
		sessionID, userID).Scan(&online); err != nil {
		return nil, err
	}
	if max > 0 && online >= max {
		return nil, domain.ErrSessionFull
	}

	var p domain.SessionParticipant
	query := `
		INSERT INTO session_participants
			(session_id, user_id, role, joined_at, is_online, peer_id)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (session_id, user_id) DO UPDATE
		SET joined_at=$4, left_at=NULL, is_online=TRUE, peer_id=$5
		RETURNING ` + participantColumns
	if err := scanParticipant(tx.QueryRow(ctx, query, sessionID, userID, role, at, peerID), &p); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SessionRepository) MarkLeft(ctx context.Context, sessionID string, userID int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE session_participants SET left_at=$3, is_online=FALSE WHERE session_id=$1 AND user_id=$2`,
		sessionID, userID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotParticipant
	}
	return nil
}

// ForceOffline помечает оффлайн всех онлайн-участников, кроме except,
// одним timestamp — используется при завершении сессии инструктором.
func (r *SessionRepository) ForceOffline(ctx context.Context, sessionID string, except int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE session_participants
		SET left_at=$3, is_online=FALSE
		WHERE session_id=$1 AND user_id<>$2 AND is_online=TRUE`,
		sessionID, except, at)
	return err
}

func (r *SessionRepository) UpdatePermissions(ctx context.Context, sessionID string, userID int64, perms domain.Permissions) (*domain.SessionParticipant, error) {
	var p domain.SessionParticipant
	query := `
		UPDATE session_participants
		SET can_share_screen = COALESCE($3, can_share_screen),
		    can_share_audio  = COALESCE($4, can_share_audio),
		    can_share_video  = COALESCE($5, can_share_video),
		    can_chat         = COALESCE($6, can_chat)
		WHERE session_id=$1 AND user_id=$2
		RETURNING ` + participantColumns
	err := scanParticipant(r.db.QueryRow(ctx, query, sessionID, userID,
		perms.CanShareScreen, perms.CanShareAudio, perms.CanShareVideo, perms.CanChat), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotParticipant
		}
		return nil, err
	}
	return &p, nil
}

func (r *SessionRepository) ListParticipants(ctx context.Context, sessionID string) ([]domain.SessionParticipant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+participantColumns+` FROM session_participants WHERE session_id=$1 ORDER BY joined_at ASC NULLS LAST`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionParticipant
	for rows.Next() {
		var p domain.SessionParticipant
		if err := scanParticipant(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveSignal — append-only журнал сигналинга; payload не интерпретируется.
func (r *SessionRepository) SaveSignal(ctx context.Context, s *domain.WebRTCSignal) error {
	query := `
		INSERT INTO webrtc_signals (session_id, from_user_id, to_user_id, signal_type, signal_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		s.SessionID, s.FromUserID, s.ToUserID, s.SignalType, s.SignalData,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *SessionRepository) SaveChat(ctx context.Context, m *domain.SessionChatMessage) error {
	query := `
		INSERT INTO session_chat_messages (session_id, user_id, message, is_private)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, m.SessionID, m.UserID, m.Message, m.IsPrivate).
		Scan(&m.ID, &m.CreatedAt)
}

// IsEnrolled — read-only проверка активной записи на курс (данные коллаборатора).
func (r *SessionRepository) IsEnrolled(ctx context.Context, userID int64, courseID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id=$1 AND course_id=$2 AND status='active')`,
		userID, courseID).Scan(&exists)
	return exists, err
}
