package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hives-africa/realtime-service/internal/domain"
)

// In-memory хранилища с той же семантикой ошибок, что и internal/postgres.

type fakeRooms struct {
	rooms       map[string]*domain.Room
	memberships map[string]*domain.Membership
	direct      map[[2]int64]string
	nextID      int
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		rooms:       make(map[string]*domain.Room),
		memberships: make(map[string]*domain.Membership),
		direct:      make(map[[2]int64]string),
	}
}

func mkey(roomID string, userID int64) string {
	return fmt.Sprintf("%s|%d", roomID, userID)
}

func (f *fakeRooms) Get(_ context.Context, id string) (*domain.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRooms) Create(_ context.Context, room *domain.Room) error {
	f.nextID++
	room.ID = fmt.Sprintf("room-%d", f.nextID)
	room.CreatedAt = time.Now()
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeRooms) GetMembership(_ context.Context, roomID string, userID int64) (*domain.Membership, error) {
	m, ok := f.memberships[mkey(roomID, userID)]
	if !ok {
		return nil, domain.ErrNotAMember
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRooms) CreateMembership(_ context.Context, roomID string, userID int64, role domain.MemberRole) (*domain.Membership, error) {
	k := mkey(roomID, userID)
	if m, ok := f.memberships[k]; ok {
		cp := *m
		return &cp, nil
	}
	m := &domain.Membership{
		UserID:          userID,
		RoomID:          roomID,
		Role:            role,
		CanSendMessages: true,
		CanSendFiles:    true,
		CreatedAt:       time.Now(),
	}
	f.memberships[k] = m
	cp := *m
	return &cp, nil
}

func (f *fakeRooms) CountMembers(_ context.Context, roomID string) (int, error) {
	count := 0
	for _, m := range f.memberships {
		if m.RoomID == roomID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRooms) UpdateLastRead(_ context.Context, roomID string, userID int64, at time.Time) error {
	m, ok := f.memberships[mkey(roomID, userID)]
	if !ok {
		return domain.ErrNotAMember
	}
	if at.After(m.LastReadAt) {
		m.LastReadAt = at
	}
	return nil
}

func (f *fakeRooms) GetOrCreateDirectRoom(ctx context.Context, userA, userB int64) (*domain.Room, error) {
	a, b := domain.CanonicalPair(userA, userB)
	if id, ok := f.direct[[2]int64{a, b}]; ok {
		return f.Get(ctx, id)
	}
	room := &domain.Room{
		Name:      fmt.Sprintf("dm-%d-%d", a, b),
		RoomType:  domain.RoomDirect,
		IsActive:  true,
		IsPrivate: true,
	}
	if err := f.Create(ctx, room); err != nil {
		return nil, err
	}
	f.direct[[2]int64{a, b}] = room.ID
	if _, err := f.CreateMembership(ctx, room.ID, a, domain.RoleMember); err != nil {
		return nil, err
	}
	if _, err := f.CreateMembership(ctx, room.ID, b, domain.RoleMember); err != nil {
		return nil, err
	}
	return room, nil
}

type fakeMessages struct {
	byID   map[string]*domain.Message
	order  []string
	reads  map[string]bool // messageID|userID
	nextID int
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{
		byID:  make(map[string]*domain.Message),
		reads: make(map[string]bool),
	}
}

func (f *fakeMessages) Create(_ context.Context, m *domain.Message) error {
	f.nextID++
	m.ID = fmt.Sprintf("msg-%d", f.nextID)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	f.byID[m.ID] = &cp
	f.order = append(f.order, m.ID)
	return nil
}

func (f *fakeMessages) Get(_ context.Context, id string) (*domain.Message, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) Recent(_ context.Context, roomID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	for _, id := range f.order {
		m := f.byID[id]
		if m.RoomID == roomID && !m.IsDeleted {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessages) History(ctx context.Context, roomID, after string, limit int) ([]domain.Message, string, error) {
	msgs, err := f.Recent(ctx, roomID, limit)
	return msgs, "", err
}

func (f *fakeMessages) Edit(_ context.Context, roomID, id string, senderID int64, content string, at time.Time) (*domain.Message, error) {
	m, ok := f.byID[id]
	if !ok || m.RoomID != roomID {
		return nil, domain.ErrMessageNotFound
	}
	if m.SenderID == nil || *m.SenderID != senderID {
		return nil, domain.ErrNotSender
	}
	if m.IsDeleted {
		return nil, domain.ErrMessageDeleted
	}
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &at
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) SoftDelete(_ context.Context, roomID, id string, senderID int64, at time.Time) error {
	m, ok := f.byID[id]
	if !ok || m.RoomID != roomID {
		return domain.ErrMessageNotFound
	}
	if m.SenderID == nil || *m.SenderID != senderID {
		return domain.ErrNotSender
	}
	if m.IsDeleted {
		return domain.ErrMessageDeleted
	}
	m.IsDeleted = true
	m.DeletedAt = &at
	m.Content = domain.DeletedPlaceholder
	return nil
}

func (f *fakeMessages) MarkRead(_ context.Context, messageID string, userID int64, _ time.Time) (bool, error) {
	k := fmt.Sprintf("%s|%d", messageID, userID)
	if f.reads[k] {
		return false, nil
	}
	f.reads[k] = true
	return true, nil
}

func (f *fakeMessages) UnreadCount(_ context.Context, roomID string, userID int64, lastReadAt time.Time) (int, error) {
	count := 0
	for _, id := range f.order {
		m := f.byID[id]
		if m.RoomID != roomID || !m.CreatedAt.After(lastReadAt) {
			continue
		}
		if m.SenderID != nil && *m.SenderID == userID {
			continue
		}
		count++
	}
	return count, nil
}

type fakeSessions struct {
	sessions     map[string]*domain.LiveSession
	participants map[string]*domain.SessionParticipant
	signals      []domain.WebRTCSignal
	chats        []domain.SessionChatMessage
	enrolled     map[string]bool // userID|courseID
	nextID       int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions:     make(map[string]*domain.LiveSession),
		participants: make(map[string]*domain.SessionParticipant),
		enrolled:     make(map[string]bool),
	}
}

func (f *fakeSessions) enroll(userID int64, courseID string) {
	f.enrolled[fmt.Sprintf("%d|%s", userID, courseID)] = true
}

func (f *fakeSessions) Get(_ context.Context, id string) (*domain.LiveSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Create(_ context.Context, s *domain.LiveSession) error {
	f.nextID++
	s.ID = fmt.Sprintf("sess-%d", f.nextID)
	s.CreatedAt = time.Now()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessions) Start(_ context.Context, id string, at time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	return s.Start(at)
}

func (f *fakeSessions) End(_ context.Context, id string, at time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	return s.End(at)
}

func (f *fakeSessions) Cancel(_ context.Context, id string) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	return s.Cancel()
}

func (f *fakeSessions) GetParticipant(_ context.Context, sessionID string, userID int64) (*domain.SessionParticipant, error) {
	p, ok := f.participants[mkey(sessionID, userID)]
	if !ok {
		return nil, domain.ErrNotParticipant
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSessions) Join(_ context.Context, sessionID string, userID int64, role domain.ParticipantRole, peerID string, at time.Time) (*domain.SessionParticipant, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	online := 0
	for _, p := range f.participants {
		if p.SessionID == sessionID && p.IsOnline && p.UserID != userID {
			online++
		}
	}
	if int64(online) >= s.MaxParticipants {
		return nil, domain.ErrSessionFull
	}

	k := mkey(sessionID, userID)
	p, ok := f.participants[k]
	if !ok {
		p = &domain.SessionParticipant{
			SessionID:      sessionID,
			UserID:         userID,
			Role:           role,
			CanShareAudio:  true,
			CanShareVideo:  true,
			CanChat:        true,
			CanShareScreen: role == domain.ParticipantInstructor,
		}
		f.participants[k] = p
	}
	p.JoinedAt = &at
	p.LeftAt = nil
	p.IsOnline = true
	p.PeerID = peerID
	cp := *p
	return &cp, nil
}

func (f *fakeSessions) MarkLeft(_ context.Context, sessionID string, userID int64, at time.Time) error {
	p, ok := f.participants[mkey(sessionID, userID)]
	if !ok {
		return domain.ErrNotParticipant
	}
	p.IsOnline = false
	p.LeftAt = &at
	return nil
}

func (f *fakeSessions) ForceOffline(_ context.Context, sessionID string, except int64, at time.Time) error {
	for _, p := range f.participants {
		if p.SessionID == sessionID && p.UserID != except && p.IsOnline {
			p.IsOnline = false
			p.LeftAt = &at
		}
	}
	return nil
}

func (f *fakeSessions) UpdatePermissions(_ context.Context, sessionID string, userID int64, perms domain.Permissions) (*domain.SessionParticipant, error) {
	p, ok := f.participants[mkey(sessionID, userID)]
	if !ok {
		return nil, domain.ErrNotParticipant
	}
	p.Apply(perms)
	cp := *p
	return &cp, nil
}

func (f *fakeSessions) ListParticipants(_ context.Context, sessionID string) ([]domain.SessionParticipant, error) {
	var out []domain.SessionParticipant
	for _, p := range f.participants {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeSessions) SaveSignal(_ context.Context, s *domain.WebRTCSignal) error {
	s.ID = fmt.Sprintf("sig-%d", len(f.signals)+1)
	s.CreatedAt = time.Now()
	f.signals = append(f.signals, *s)
	return nil
}

func (f *fakeSessions) SaveChat(_ context.Context, m *domain.SessionChatMessage) error {
	m.ID = fmt.Sprintf("schat-%d", len(f.chats)+1)
	m.CreatedAt = time.Now()
	f.chats = append(f.chats, *m)
	return nil
}

func (f *fakeSessions) IsEnrolled(_ context.Context, userID int64, courseID string) (bool, error) {
	return f.enrolled[fmt.Sprintf("%d|%s", userID, courseID)], nil
}

type fakeNotifications struct {
	byID     map[string]*domain.Notification
	order    []string
	prefs    map[int64]domain.NotificationPreference
	presence map[int64]bool
	nextID   int
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{
		byID:     make(map[string]*domain.Notification),
		prefs:    make(map[int64]domain.NotificationPreference),
		presence: make(map[int64]bool),
	}
}

func (f *fakeNotifications) Create(_ context.Context, n *domain.Notification) error {
	f.nextID++
	n.ID = fmt.Sprintf("notif-%d", f.nextID)
	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}
	n.CreatedAt = time.Now()
	cp := *n
	f.byID[n.ID] = &cp
	f.order = append(f.order, n.ID)
	return nil
}

func (f *fakeNotifications) List(_ context.Context, recipientID int64, _ string, limit int) ([]domain.Notification, string, error) {
	var out []domain.Notification
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		n := f.byID[f.order[i]]
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out, "", nil
}

func (f *fakeNotifications) UnreadCount(_ context.Context, recipientID int64) (int, error) {
	count := 0
	for _, n := range f.byID {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id string, recipientID int64, at time.Time) (bool, error) {
	n, ok := f.byID[id]
	if !ok || n.RecipientID != recipientID {
		return false, domain.ErrNotificationNotFound
	}
	if n.IsRead {
		return false, nil
	}
	n.IsRead = true
	n.ReadAt = &at
	return true, nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, recipientID int64, at time.Time) (int64, error) {
	var n int64
	for _, notif := range f.byID {
		if notif.RecipientID == recipientID && !notif.IsRead {
			notif.IsRead = true
			notif.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) GetPreference(_ context.Context, userID int64) (domain.NotificationPreference, error) {
	if p, ok := f.prefs[userID]; ok {
		return p, nil
	}
	return domain.NotificationPreference{
		UserID:          userID,
		RealtimeEnabled: true,
		EmailEnabled:    true,
		PushEnabled:     true,
	}, nil
}

func (f *fakeNotifications) UpsertPresence(_ context.Context, userID int64, online bool, _ time.Time) error {
	f.presence[userID] = online
	return nil
}

type fakeUsers struct {
	names map[int64]string
}

func (f *fakeUsers) DisplayNames(_ context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	for _, id := range ids {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}
