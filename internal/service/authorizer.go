package service

import (
	"context"

	"github.com/hives-africa/realtime-service/internal/domain"
)

// Authorizer отвечает на вопросы допуска. Только чтение: побочные эффекты
// (создание membership при open-join) — дело вызывающего движка.
type Authorizer struct {
	rooms    RoomStore
	sessions SessionStore
}

func NewAuthorizer(rooms RoomStore, sessions SessionStore) *Authorizer {
	return &Authorizer{rooms: rooms, sessions: sessions}
}

// CanJoinRoom: участник всегда допускается; непубличная комната без membership —
// отказ; публичная активная комната открыта для первого join.
func (a *Authorizer) CanJoinRoom(ctx context.Context, userID int64, room *domain.Room) (bool, error) {
	if !room.IsActive {
		return false, nil
	}
	_, err := a.rooms.GetMembership(ctx, room.ID, userID)
	if err == nil {
		return true, nil
	}
	if err != domain.ErrNotAMember {
		return false, err
	}
	return !room.IsPrivate, nil
}

// CanJoinSession: инструктор допускается всегда, остальные — по активной
// записи на курс сессии.
func (a *Authorizer) CanJoinSession(ctx context.Context, userID int64, session *domain.LiveSession) (bool, error) {
	if session.InstructorID == userID {
		return true, nil
	}
	return a.sessions.IsEnrolled(ctx, userID, session.CourseID)
}

// CanManage: start/end сессии и смена чужих прав доступны только инструктору.
func (a *Authorizer) CanManage(userID int64, session *domain.LiveSession) bool {
	return session.InstructorID == userID
}
