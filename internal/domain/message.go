package domain

import "time"

type ChatMessage struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	SenderName     string    `db:"sender_name"`
	Body           string    `db:"body"`
	CreatedAt      time.Time `db:"created_at"`
}
