package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/metrics"
	"github.com/cwrk-planet/presence-service/internal/ratelimit"
)

const maxContentLen = 4000

// Sender — живое соединение глазами ядра. Реализуется транспортом (ws).
type Sender interface {
	ID() string
	Send(ev Event) error
	Close() error
}

// Appender — внешнее хранилище истории. Вызывается out-of-band: рассылка
// не ждёт записи и не зависит от её исхода.
type Appender interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
}

type session struct {
	userID      string
	displayName string
}

// Core владеет всем состоянием реле: реестр presence, членство в комнатах,
// наборы «печатает», живые соединения. Каждое входящее событие выполняется
// под одним мьютексом от начала до конца — внутри обработчиков нет точек
// ожидания, поэтому состояние всегда взаимно согласовано.
type Core struct {
	mu       sync.Mutex
	senders  map[string]Sender
	sessions map[string]*session // connID -> auth state, только после authenticate
	registry *registry
	rooms    *roomIndex
	typing   *typingSets

	store   Appender // nil — работаем без хранилища
	limiter *ratelimit.PerKey
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(store Appender, limiter *ratelimit.PerKey, m *metrics.Metrics, now func() time.Time) *Core {
	if now == nil {
		now = time.Now
	}
	return &Core{
		senders:  make(map[string]Sender),
		sessions: make(map[string]*session),
		registry: newRegistry(),
		rooms:    newRoomIndex(),
		typing:   newTypingSets(),
		store:    store,
		limiter:  limiter,
		metrics:  m,
		now:      now,
	}
}

// Connect регистрирует транспортное соединение. До authenticate оно не
// участвует ни в presence, ни в комнатах.
func (c *Core) Connect(s Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.senders[s.ID()] = s
	c.metrics.ConnOpened()
}

// Authenticate привязывает userID к соединению, вводит его в комнату
// уведомлений и рассылает presence. Валидность userID проверяет транспорт
// до вызова.
func (c *Core) Authenticate(connID, userID, displayName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.InboundEvent(TypeAuthenticate)

	s, ok := c.senders[connID]
	if !ok {
		return
	}

	// Повторная аутентификация под другим пользователем: прежняя личность
	// уходит оффлайн тем же путём, что и при disconnect, иначе её запись
	// в реестре навсегда останется висеть на этом соединении.
	if prev, ok := c.sessions[connID]; ok && prev.userID != userID {
		c.rooms.leave(connID, userRoom(prev.userID))
		c.dropPresence(prev, connID)
	}

	now := c.now()
	c.sessions[connID] = &session{userID: userID, displayName: displayName}
	c.registry.register(userID, connID, displayName, now)
	c.rooms.join(connID, userRoom(userID))

	c.broadcastAll(connID, Event{
		Type: TypeUserOnline,
		Payload: UserOnlinePayload{
			UserID:    userID,
			UserName:  displayName,
			Timestamp: now,
		},
	})
	_ = s.Send(Event{Type: TypeOnlineUsers, Payload: c.registry.listOnlineUserIDs()})

	c.metrics.SetOnlineUsers(c.registry.size())
}

// JoinConversation вводит соединение в комнату беседы. Вход снимает
// флаг «печатает» для входящего: отсутствующий участник не должен значиться
// печатающим, и только что вошедший — тоже.
func (c *Core) JoinConversation(connID, conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.InboundEvent(TypeJoinConversation)

	s, sess := c.authedSender(connID)
	if s == nil {
		return
	}
	if conversationID == "" {
		c.sendError(s, "Conversation ID is required")
		return
	}

	c.rooms.join(connID, conversationRoom(conversationID))
	c.typing.stop(conversationID, sess.userID)

	_ = s.Send(Event{
		Type:    TypeConversationJoined,
		Payload: ConversationPayload{ConversationID: conversationID},
	})
}

// LeaveConversation выводит соединение из комнаты беседы. Любая операция,
// убирающая участника, обязана чистить и его typing-состояние.
func (c *Core) LeaveConversation(connID, conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.InboundEvent(TypeLeaveConversation)

	s, sess := c.authedSender(connID)
	if s == nil {
		return
	}
	if conversationID == "" {
		c.sendError(s, "Conversation ID is required")
		return
	}

	room := conversationRoom(conversationID)
	c.rooms.leave(connID, room)
	if c.typing.stop(conversationID, sess.userID) {
		c.broadcastRoom(room, connID, Event{
			Type:    TypeUserStoppedTyping,
			Payload: TypingPayload{UserID: sess.userID, ConversationID: conversationID},
		})
	}

	_ = s.Send(Event{
		Type:    TypeConversationLeft,
		Payload: ConversationPayload{ConversationID: conversationID},
	})
}

// TypingStart добавляет пользователя в набор печатающих. Повторный start —
// no-op по состоянию, но рассылка уходит снова: для UI-индикатора
// at-least-once достаточно.
func (c *Core) TypingStart(connID, conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.InboundEvent(TypeTypingStart)

	s, sess := c.authedSender(connID)
	if s == nil || conversationID == "" {
		return
	}

	c.typing.start(conversationID, sess.userID)
	c.broadcastRoom(conversationRoom(conversationID), connID, Event{
		Type: TypeUserStartedTyping,
		Payload: TypingPayload{
			UserID:         sess.userID,
			UserName:       sess.displayName,
			ConversationID: conversationID,
		},
	})
}

// TypingStop убирает пользователя из набора; рассылка — только если
// удаление было действительным.
func (c *Core) TypingStop(connID, conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.InboundEvent(TypeTypingStop)

	s, sess := c.authedSender(connID)
	if s == nil || conversationID == "" {
		return
	}

	if c.typing.stop(conversationID, sess.userID) {
		c.broadcastRoom(conversationRoom(conversationID), connID, Event{
			Type:    TypeUserStoppedTyping,
			Payload: TypingPayload{UserID: sess.userID, ConversationID: conversationID},
		})
	}
}

// SendMessage валидирует и рассылает сообщение: конверт в комнату беседы
// (без отправителя), компактный notification_update всем остальным
// соединениям, ack отправителю. Persistence — out-of-band.
func (c *Core) SendMessage(connID string, p SendMessagePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.InboundEvent(TypeSendMessage)

	s, sess := c.authedSender(connID)
	if s == nil {
		return
	}

	// Любой внутренний сбой реле не должен ронять соединение и не должен
	// оставить отправителя без ответа.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("relay send panic", "conn", connID, "panic", r)
			c.sendError(s, "Failed to send message")
		}
	}()

	if p.ConversationID == "" {
		c.sendError(s, "Conversation ID is required")
		return
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		c.sendError(s, "Message content is required")
		return
	}
	if len(content) > maxContentLen {
		c.sendError(s, "Message too long")
		return
	}

	now := c.now()
	if !c.limiter.Allow(connID, now) {
		c.sendError(s, "Too many messages")
		return
	}

	senderName := sess.displayName
	if p.SenderName != "" {
		senderName = p.SenderName
	}

	out := NewMessagePayload{
		ID:             fmt.Sprintf("temp-%d-%s", now.UnixMilli(), connID),
		ConversationID: p.ConversationID,
		SenderID:       sess.userID,
		SenderName:     senderName,
		Content:        content,
		TempID:         p.TempID,
		Timestamp:      now.Format("3:04 PM"),
		IsRead:         false,
	}

	room := conversationRoom(p.ConversationID)
	c.broadcastRoom(room, connID, Event{Type: TypeNewMessage, Payload: out})

	// Глобально, не по комнате: пользователи вне беседы тоже узнают,
	// что сообщение пришло.
	c.broadcastAll(connID, Event{
		Type: TypeNotificationUpdate,
		Payload: NotificationPayload{
			ConversationID: p.ConversationID,
			SenderID:       sess.userID,
			SenderName:     senderName,
		},
	})

	// Отправка перекрывает «печатает».
	if c.typing.stop(p.ConversationID, sess.userID) {
		c.broadcastRoom(room, connID, Event{
			Type:    TypeUserStoppedTyping,
			Payload: TypingPayload{UserID: sess.userID, ConversationID: p.ConversationID},
		})
	}

	_ = s.Send(Event{
		Type:    TypeMessageSent,
		Payload: MessageSentPayload{TempID: p.TempID, ConversationID: p.ConversationID},
	})
	c.metrics.MessageRelayed()

	if c.store != nil {
		msg := domain.ChatMessage{
			ConversationID: p.ConversationID,
			SenderID:       sess.userID,
			SenderName:     senderName,
			Body:           content,
			CreatedAt:      now,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.store.Append(ctx, msg); err != nil {
				slog.Warn("history append failed", "conversation", msg.ConversationID, "err", err)
			}
		}()
	}
}

// Ping отвечает pong с серверным временем; аутентификация не требуется.
func (c *Core) Ping(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.InboundEvent(TypePing)

	if s, ok := c.senders[connID]; ok {
		_ = s.Send(Event{Type: TypePong, Payload: PongPayload{Timestamp: c.now()}})
	}
}

// Disconnect — сверка состояния при закрытии соединения. Выполняется
// синхронно: после возврата ни presence, ни typing не ссылаются на
// ушедшее соединение. Если реестр уже указывает на более новое соединение
// того же пользователя, его presence/typing не трогаем — guard сработал.
func (c *Core) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.senders[connID]; !ok {
		return
	}
	delete(c.senders, connID)
	c.rooms.dropConn(connID)
	c.limiter.Forget(connID)
	c.metrics.ConnClosed()

	sess, ok := c.sessions[connID]
	if ok {
		delete(c.sessions, connID)
	}
	if !ok {
		return
	}

	c.dropPresence(sess, connID)
}

// dropPresence — шаги сверки для пользователя sess, привязанного к connID:
// guarded unregister, очистка typing с рассылкой по затронутым беседам,
// user_offline и свежий online_users. Если запись реестра уже указывает на
// более новое соединение, не делает ничего — пользователь онлайн.
func (c *Core) dropPresence(sess *session, connID string) {
	if !c.registry.unregister(sess.userID, connID) {
		return
	}

	for _, conversationID := range c.typing.sweep(sess.userID) {
		c.broadcastRoom(conversationRoom(conversationID), connID, Event{
			Type:    TypeUserStoppedTyping,
			Payload: TypingPayload{UserID: sess.userID, ConversationID: conversationID},
		})
	}

	c.broadcastAll(connID, Event{
		Type:    TypeUserOffline,
		Payload: UserOfflinePayload{UserID: sess.userID, Timestamp: c.now()},
	})
	c.broadcastAll(connID, Event{Type: TypeOnlineUsers, Payload: c.registry.listOnlineUserIDs()})

	c.metrics.SetOnlineUsers(c.registry.size())
}

// Shutdown закрывает все живые соединения; каждое закрытие прогоняет
// обычный путь Disconnect через транспорт.
func (c *Core) Shutdown() {
	c.mu.Lock()
	snapshot := make([]Sender, 0, len(c.senders))
	for _, s := range c.senders {
		snapshot = append(snapshot, s)
	}
	c.mu.Unlock()

	for _, s := range snapshot {
		_ = s.Close()
	}
}

type Stats struct {
	OnlineUsers   int `json:"onlineUsers"`
	Connections   int `json:"connections"`
	Conversations int `json:"conversations"`
}

func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	conversations := 0
	for roomID := range c.rooms.byRoom {
		if strings.HasPrefix(roomID, "conversation-") {
			conversations++
		}
	}
	return Stats{
		OnlineUsers:   c.registry.size(),
		Connections:   len(c.senders),
		Conversations: conversations,
	}
}

// authedSender возвращает соединение и его сессию; неаутентифицированному
// отправляет "Authentication required" и возвращает nil.
func (c *Core) authedSender(connID string) (Sender, *session) {
	s, ok := c.senders[connID]
	if !ok {
		return nil, nil
	}
	sess, ok := c.sessions[connID]
	if !ok {
		c.sendError(s, "Authentication required")
		return nil, nil
	}
	return s, sess
}

func (c *Core) sendError(s Sender, msg string) {
	_ = s.Send(Event{Type: TypeError, Payload: ErrorPayload{Message: msg}})
	c.metrics.RelayError()
}

func (c *Core) send(connID string, ev Event) {
	if s, ok := c.senders[connID]; ok {
		_ = s.Send(ev)
	}
}

func (c *Core) broadcastRoom(roomID, exceptConnID string, ev Event) {
	for connID := range c.rooms.conns(roomID) {
		if connID == exceptConnID {
			continue
		}
		c.send(connID, ev)
	}
}

func (c *Core) broadcastAll(exceptConnID string, ev Event) {
	for connID, s := range c.senders {
		if connID == exceptConnID {
			continue
		}
		_ = s.Send(ev)
	}
}
