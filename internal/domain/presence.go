package domain

import "time"

// PresenceEntry — запись «пользователь онлайн»: какое соединение сейчас
// считается актуальным для userID.
type PresenceEntry struct {
	ConnID      string
	DisplayName string
	LastSeen    time.Time
}
