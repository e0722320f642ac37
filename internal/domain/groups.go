package domain

import "strconv"

// Ключи групп рассылки. Вычисляются детерминированно из id сущностей.

func ChatGroup(roomID string) string {
	return "chat_" + roomID
}

func SessionGroup(sessionID string) string {
	return "session_" + sessionID
}

func SessionUserGroup(sessionID string, userID int64) string {
	return "session_" + sessionID + "_user_" + strconv.FormatInt(userID, 10)
}

func SessionChatGroup(sessionID string) string {
	return "session_" + sessionID + "_chat"
}

func NotificationGroup(userID int64) string {
	return "notifications_" + strconv.FormatInt(userID, 10)
}
