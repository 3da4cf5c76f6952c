package relay

import "time"

// Типы событий WS-протокола (client -> server).
const (
	TypeAuthenticate      = "authenticate"
	TypeJoinConversation  = "join_conversation"
	TypeLeaveConversation = "leave_conversation"
	TypeSendMessage       = "send_message"
	TypeTypingStart       = "typing_start"
	TypeTypingStop        = "typing_stop"
	TypePing              = "ping"
)

// Типы событий WS-протокола (server -> client).
const (
	TypeUserOnline         = "user_online"
	TypeUserOffline        = "user_offline"
	TypeOnlineUsers        = "online_users"
	TypeConversationJoined = "conversation_joined"
	TypeConversationLeft   = "conversation_left"
	TypeNewMessage         = "new_message"
	TypeNotificationUpdate = "notification_update"
	TypeUserStartedTyping  = "user_started_typing"
	TypeUserStoppedTyping  = "user_stopped_typing"
	TypeMessageSent        = "message_sent"
	TypeError              = "error"
	TypePong               = "pong"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type AuthenticatePayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Token    string `json:"token,omitempty"`
}

type ConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	TempID         string `json:"tempId,omitempty"`
	SenderName     string `json:"senderName,omitempty"`
}

type UserOnlinePayload struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

type UserOfflinePayload struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type NewMessagePayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	Content        string `json:"content"`
	TempID         string `json:"tempId,omitempty"`
	Timestamp      string `json:"timestamp"`
	IsRead         bool   `json:"isRead"`
}

type NotificationPayload struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName,omitempty"`
}

type TypingPayload struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	ConversationID string `json:"conversationId"`
}

type MessageSentPayload struct {
	TempID         string `json:"tempId,omitempty"`
	ConversationID string `json:"conversationId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}
