package domain

import "time"

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionLive      SessionStatus = "live"
	SessionEnded     SessionStatus = "ended"
	SessionCancelled SessionStatus = "cancelled"
)

type LiveSession struct {
	ID              string        `db:"id"`
	Title           string        `db:"title"`
	CourseID        string        `db:"course_id"`
	LessonID        *string       `db:"lesson_id"`
	InstructorID    int64         `db:"instructor_id"`
	Status          SessionStatus `db:"status"`
	ScheduledStart  time.Time     `db:"scheduled_start"`
	ScheduledEnd    time.Time     `db:"scheduled_end"`
	ActualStart     *time.Time    `db:"actual_start"`
	ActualEnd       *time.Time    `db:"actual_end"`
	MaxParticipants int64         `db:"max_participants"`
	AllowRecording  bool          `db:"allow_recording"`
	AutoRecord      bool          `db:"auto_record"`
	RoomID          string        `db:"room_id"` // opaque routing token
	CreatedAt       time.Time     `db:"created_at"`
}

// Start переводит scheduled -> live и фиксирует actual_start.
func (s *LiveSession) Start(now time.Time) error {
	if s.Status != SessionScheduled {
		return ErrInvalidState
	}
	s.Status = SessionLive
	s.ActualStart = &now
	return nil
}

// End переводит live -> ended и фиксирует actual_end.
func (s *LiveSession) End(now time.Time) error {
	if s.Status != SessionLive {
		return ErrInvalidState
	}
	s.Status = SessionEnded
	s.ActualEnd = &now
	return nil
}

// Cancel допустим только из scheduled.
func (s *LiveSession) Cancel() error {
	if s.Status != SessionScheduled {
		return ErrInvalidState
	}
	s.Status = SessionCancelled
	return nil
}

// Joinable: подключаться можно к scheduled и live сессиям.
func (s *LiveSession) Joinable() bool {
	return s.Status == SessionScheduled || s.Status == SessionLive
}

type ParticipantRole string

const (
	ParticipantInstructor ParticipantRole = "instructor"
	ParticipantStudent    ParticipantRole = "student"
	ParticipantModerator  ParticipantRole = "moderator"
	ParticipantObserver   ParticipantRole = "observer"
)

// SessionParticipant уникален по (session_id, user_id); строка живёт дольше соединения.
type SessionParticipant struct {
	SessionID      string          `db:"session_id"`
	UserID         int64           `db:"user_id"`
	Role           ParticipantRole `db:"role"`
	JoinedAt       *time.Time      `db:"joined_at"`
	LeftAt         *time.Time      `db:"left_at"`
	IsOnline       bool            `db:"is_online"`
	CanShareScreen bool            `db:"can_share_screen"`
	CanShareAudio  bool            `db:"can_share_audio"`
	CanShareVideo  bool            `db:"can_share_video"`
	CanChat        bool            `db:"can_chat"`
	PeerID         string          `db:"peer_id"`
}

// Permissions — распознаваемые флаги для permission_change; всё прочее игнорируется.
type Permissions struct {
	CanShareScreen *bool `json:"can_share_screen,omitempty"`
	CanShareAudio  *bool `json:"can_share_audio,omitempty"`
	CanShareVideo  *bool `json:"can_share_video,omitempty"`
	CanChat        *bool `json:"can_chat,omitempty"`
}

// Apply накладывает только заданные флаги.
func (p *SessionParticipant) Apply(perms Permissions) {
	if perms.CanShareScreen != nil {
		p.CanShareScreen = *perms.CanShareScreen
	}
	if perms.CanShareAudio != nil {
		p.CanShareAudio = *perms.CanShareAudio
	}
	if perms.CanShareVideo != nil {
		p.CanShareVideo = *perms.CanShareVideo
	}
	if perms.CanChat != nil {
		p.CanChat = *perms.CanChat
	}
}

type SignalType string

const (
	SignalOffer        SignalType = "offer"
	SignalAnswer       SignalType = "answer"
	SignalICECandidate SignalType = "ice_candidate"
	SignalJoin         SignalType = "join"
	SignalLeave        SignalType = "leave"
)

// WebRTCSignal — append-only журнал сигналинга; содержимое payload непрозрачно.
type WebRTCSignal struct {
	ID          string     `db:"id"`
	SessionID   string     `db:"session_id"`
	FromUserID  int64      `db:"from_user_id"`
	ToUserID    *int64     `db:"to_user_id"` // nil = broadcast
	SignalType  SignalType `db:"signal_type"`
	SignalData  []byte     `db:"signal_data"`
	IsProcessed bool       `db:"is_processed"`
	CreatedAt   time.Time  `db:"created_at"`
}

type SessionChatMessage struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	UserID    int64     `db:"user_id"`
	Message   string    `db:"message"`
	IsPrivate bool      `db:"is_private"`
	CreatedAt time.Time `db:"created_at"`
}
