package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hives-africa/realtime-service/internal/domain"

	"github.com/goccy/go-json"
)

type liveFixture struct {
	sessions *fakeSessions
	svc      *LiveService
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	sessions := newFakeSessions()
	svc := NewLiveService(sessions, NewAuthorizer(newFakeRooms(), sessions))
	return &liveFixture{sessions: sessions, svc: svc}
}

const instructorID = int64(10)

func (f *liveFixture) addSession(t *testing.T, status domain.SessionStatus) *domain.LiveSession {
	t.Helper()
	s := &domain.LiveSession{
		Title:           "Intro to Go",
		CourseID:        "course-1",
		InstructorID:    instructorID,
		ScheduledStart:  time.Now(),
		ScheduledEnd:    time.Now().Add(time.Hour),
		MaxParticipants: 100,
	}
	if err := f.svc.Schedule(context.Background(), s); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	f.sessions.sessions[s.ID].Status = status
	s.Status = status
	return s
}

func TestScheduleValidation(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()

	err := f.svc.Schedule(ctx, &domain.LiveSession{CourseID: "c", InstructorID: 1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing title: expected ErrValidation, got %v", err)
	}

	err = f.svc.Schedule(ctx, &domain.LiveSession{
		Title: "x", CourseID: "c", InstructorID: 1,
		ScheduledStart: time.Now().Add(time.Hour), ScheduledEnd: time.Now(),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("end before start: expected ErrValidation, got %v", err)
	}
}

func TestJoinAuthorization(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionLive)
	ctx := context.Background()

	if _, _, _, err := f.svc.Join(ctx, 20, "mallory", s.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("not enrolled: expected ErrPermissionDenied, got %v", err)
	}

	f.sessions.enroll(20, s.CourseID)
	sc, participant, events, err := f.svc.Join(ctx, 20, "student", s.ID)
	if err != nil {
		t.Fatalf("enrolled join: %v", err)
	}
	if sc.IsInstructor {
		t.Fatal("student must not be flagged instructor")
	}
	if participant.Role != domain.ParticipantStudent || !participant.IsOnline {
		t.Fatalf("unexpected participant: %#v", participant)
	}
	if participant.PeerID == "" {
		t.Fatal("peer_id must be assigned on join")
	}
	ev := events[0].Data.(SessionPeerEvent)
	if ev.Type != "user_joined" || ev.UserID != 20 {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestJoinClosedSession(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()

	for _, status := range []domain.SessionStatus{domain.SessionEnded, domain.SessionCancelled} {
		s := f.addSession(t, status)
		if _, _, _, err := f.svc.Join(ctx, instructorID, "teacher", s.ID); !errors.Is(err, domain.ErrSessionClosed) {
			t.Fatalf("%s session: expected ErrSessionClosed, got %v", status, err)
		}
	}
}

func TestInstructorAutoStart(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionScheduled)
	ctx := context.Background()

	sc, _, _, err := f.svc.Join(ctx, instructorID, "teacher", s.ID)
	if err != nil {
		t.Fatalf("instructor join: %v", err)
	}
	if !sc.IsInstructor {
		t.Fatal("instructor flag not set")
	}
	got, _ := f.sessions.Get(ctx, s.ID)
	if got.Status != domain.SessionLive {
		t.Fatalf("scheduled session must go live on instructor join, got %s", got.Status)
	}
	if got.ActualStart == nil {
		t.Fatal("actual_start must be recorded")
	}
}

func TestInstructorLeaveEndsSession(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionScheduled)
	ctx := context.Background()
	f.sessions.enroll(20, s.CourseID)

	teacher, _, _, err := f.svc.Join(ctx, instructorID, "teacher", s.ID)
	if err != nil {
		t.Fatalf("instructor join: %v", err)
	}
	if _, _, _, err := f.svc.Join(ctx, 20, "student", s.ID); err != nil {
		t.Fatalf("student join: %v", err)
	}

	events := f.svc.Leave(ctx, teacher)
	if len(events) != 2 {
		t.Fatalf("expected user_left + session_ended, got %d events", len(events))
	}
	if events[1].Data.(SessionEndedEvent).Type != "session_ended" {
		t.Fatalf("unexpected second event: %#v", events[1].Data)
	}

	got, _ := f.sessions.Get(ctx, s.ID)
	if got.Status != domain.SessionEnded {
		t.Fatalf("session must end when instructor leaves, got %s", got.Status)
	}
	p, _ := f.sessions.GetParticipant(ctx, s.ID, 20)
	if p.IsOnline {
		t.Fatal("remaining participants must be forced offline")
	}
}

func TestStudentLeaveKeepsSessionLive(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionLive)
	ctx := context.Background()
	f.sessions.enroll(20, s.CourseID)

	sc, _, _, err := f.svc.Join(ctx, 20, "student", s.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	events := f.svc.Leave(ctx, sc)
	if len(events) != 1 || events[0].Data.(SessionPeerEvent).Type != "user_left" {
		t.Fatalf("unexpected events: %#v", events)
	}
	got, _ := f.sessions.Get(ctx, s.ID)
	if got.Status != domain.SessionLive {
		t.Fatalf("session must stay live, got %s", got.Status)
	}
}

func TestSignalTargeting(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionLive)
	ctx := context.Background()

	sc, _, _, err := f.svc.Join(ctx, instructorID, "teacher", s.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	payload := json.RawMessage(`{"sdp":"v=0"}`)
	target := int64(20)
	events, err := f.svc.Signal(ctx, sc, "offer", payload, &target)
	if err != nil {
		t.Fatalf("targeted signal: %v", err)
	}
	if events[0].Group != domain.SessionUserGroup(s.ID, target) {
		t.Fatalf("targeted signal must go to the private group, got %s", events[0].Group)
	}
	ev := events[0].Data.(WebRTCSignalEvent)
	if ev.FromUserID != instructorID || ev.SignalType != "offer" {
		t.Fatalf("unexpected signal event: %#v", ev)
	}

	events, err = f.svc.Signal(ctx, sc, "ice_candidate", payload, nil)
	if err != nil {
		t.Fatalf("broadcast signal: %v", err)
	}
	if events[0].Group != domain.SessionGroup(s.ID) {
		t.Fatalf("broadcast signal must go to the session group, got %s", events[0].Group)
	}

	if len(f.sessions.signals) != 2 {
		t.Fatalf("signals must be journaled, got %d", len(f.sessions.signals))
	}

	if _, err := f.svc.Signal(ctx, sc, "", payload, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty signal_type: expected ErrValidation, got %v", err)
	}
}

func TestPermissionChangeInstructorOnly(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionLive)
	ctx := context.Background()
	f.sessions.enroll(20, s.CourseID)
	f.sessions.enroll(21, s.CourseID)

	teacher, _, _, err := f.svc.Join(ctx, instructorID, "teacher", s.ID)
	if err != nil {
		t.Fatalf("instructor join: %v", err)
	}
	student, _, _, err := f.svc.Join(ctx, 20, "student", s.ID)
	if err != nil {
		t.Fatalf("student join: %v", err)
	}
	if _, _, _, err := f.svc.Join(ctx, 21, "peer", s.ID); err != nil {
		t.Fatalf("peer join: %v", err)
	}

	// не-инструктор: молчаливый no-op
	on := true
	events, err := f.svc.PermissionChange(ctx, student, 21, domain.Permissions{CanShareScreen: &on})
	if err != nil || events != nil {
		t.Fatalf("student attempt must be a silent no-op, got events=%v err=%v", events, err)
	}
	p, _ := f.sessions.GetParticipant(ctx, s.ID, 21)
	if p.CanShareScreen {
		t.Fatal("permissions must be untouched after unauthorized attempt")
	}

	events, err = f.svc.PermissionChange(ctx, teacher, 21, domain.Permissions{CanShareScreen: &on})
	if err != nil {
		t.Fatalf("instructor change: %v", err)
	}
	if events[0].Group != domain.SessionUserGroup(s.ID, 21) {
		t.Fatalf("permission event must go only to the target, got %s", events[0].Group)
	}
	if !events[0].Data.(PermissionChangeEvent).Permissions.CanShareScreen {
		t.Fatal("updated permissions must be reflected in the event")
	}
}

func TestSessionChatRequiresCanChat(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionLive)
	ctx := context.Background()
	f.sessions.enroll(20, s.CourseID)

	sc, _, _, err := f.svc.Join(ctx, 20, "student", s.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	events, err := f.svc.ChatSend(ctx, sc, "hi all", false)
	if err != nil {
		t.Fatalf("chat send: %v", err)
	}
	if events[0].Group != domain.SessionChatGroup(s.ID) {
		t.Fatalf("chat must go to the chat group, got %s", events[0].Group)
	}

	off := false
	f.sessions.participants[mkey(s.ID, 20)].Apply(domain.Permissions{CanChat: &off})
	if _, err := f.svc.ChatSend(ctx, sc, "still here?", false); !errors.Is(err, domain.ErrChatDisabled) {
		t.Fatalf("muted participant: expected ErrChatDisabled, got %v", err)
	}

	if _, err := f.svc.ChatSend(ctx, sc, "   ", false); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank chat: expected ErrValidation, got %v", err)
	}
}

func TestCancelSession(t *testing.T) {
	f := newLiveFixture(t)
	ctx := context.Background()

	s := f.addSession(t, domain.SessionScheduled)
	if _, err := f.svc.Cancel(ctx, s.ID, 99); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("foreign cancel: expected ErrPermissionDenied, got %v", err)
	}

	events, err := f.svc.Cancel(ctx, s.ID, instructorID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if events[0].Data.(SessionEndedEvent).Type != "session_ended" {
		t.Fatalf("unexpected event: %#v", events[0].Data)
	}

	live := f.addSession(t, domain.SessionLive)
	if _, err := f.svc.Cancel(ctx, live.ID, instructorID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("cancel live: expected ErrInvalidState, got %v", err)
	}
}

func TestJoinFullSession(t *testing.T) {
	f := newLiveFixture(t)
	s := f.addSession(t, domain.SessionLive)
	f.sessions.sessions[s.ID].MaxParticipants = 1
	ctx := context.Background()
	f.sessions.enroll(20, s.CourseID)
	f.sessions.enroll(21, s.CourseID)

	if _, _, _, err := f.svc.Join(ctx, 20, "first", s.ID); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, _, _, err := f.svc.Join(ctx, 21, "second", s.ID); !errors.Is(err, domain.ErrSessionFull) {
		t.Fatalf("expected ErrSessionFull, got %v", err)
	}

	// повторный вход того же участника не упирается в лимит
	if _, _, _, err := f.svc.Join(ctx, 20, "first", s.ID); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
}
