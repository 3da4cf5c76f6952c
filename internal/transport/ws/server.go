package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/presence-service/internal/relay"
	"github.com/cwrk-planet/presence-service/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Server struct {
	upgrader websocket.Upgrader
	core     *relay.Core
	verifier *security.Verifier // nil — payload authenticate принимается как есть

	pingEvery time.Duration
}

func NewServer(core *relay.Core, verifier *security.Verifier, allowedOrigin string, pingEvery time.Duration) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		core:     core,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		pingEvery: pingEvery,
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(uuid.NewString(), conn)
	s.core.Connect(c)

	go s.writeLoop(c)
	s.readLoop(c)

	// Сверка состояния до того, как соединение будет забыто.
	s.core.Disconnect(c.ID())

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.ID(), "err", err)
	}
}

func (s *Server) readLoop(c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var ev relay.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		s.dispatch(c, ev)
	}
}

// dispatch выполняет одно входящее событие до конца. Паника обработчика
// логируется и превращается в error-событие клиенту; соединение живёт
// дальше, следующие события обрабатываются как обычно.
func (s *Server) dispatch(c *wsConn, ev relay.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ws handler panic", "conn", c.ID(), "type", ev.Type, "panic", r)
			_ = c.Send(relay.Event{
				Type:    relay.TypeError,
				Payload: relay.ErrorPayload{Message: "Internal error"},
			})
		}
	}()

	switch ev.Type {
	case relay.TypeAuthenticate:
		var p relay.AuthenticatePayload
		if decode(ev.Payload, &p) != nil {
			s.sendError(c, "Invalid payload")
			return
		}
		s.authenticate(c, p)

	case relay.TypeJoinConversation:
		s.core.JoinConversation(c.ID(), conversationID(ev.Payload))

	case relay.TypeLeaveConversation:
		s.core.LeaveConversation(c.ID(), conversationID(ev.Payload))

	case relay.TypeSendMessage:
		var p relay.SendMessagePayload
		if decode(ev.Payload, &p) != nil {
			s.sendError(c, "Invalid payload")
			return
		}
		s.core.SendMessage(c.ID(), p)

	case relay.TypeTypingStart:
		s.core.TypingStart(c.ID(), conversationID(ev.Payload))

	case relay.TypeTypingStop:
		s.core.TypingStop(c.ID(), conversationID(ev.Payload))

	case relay.TypePing:
		s.core.Ping(c.ID())

	default:
		// незнакомые события игнорируем
	}
}

// authenticate проверяет вход до реестра: ядро получает уже валидную
// пару userID/имя. С настроенным verifier источником истины о userID
// становится sub токена.
func (s *Server) authenticate(c *wsConn, p relay.AuthenticatePayload) {
	userID := p.UserID
	displayName := p.UserName

	if s.verifier != nil {
		if p.Token == "" {
			s.sendError(c, "Authentication required")
			return
		}
		claims, err := s.verifier.ParseAndValidate(p.Token)
		if err != nil {
			slog.Warn("ws token rejected", "conn", c.ID(), "err", err)
			s.sendError(c, "Invalid token")
			return
		}
		userID = claims.Subject
		if claims.Name != "" {
			displayName = claims.Name
		}
	}

	if userID == "" {
		s.sendError(c, "User ID is required")
		return
	}
	if displayName == "" {
		displayName = userID
	}

	s.core.Authenticate(c.ID(), userID, displayName)
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

func (s *Server) sendError(c *wsConn, msg string) {
	_ = c.Send(relay.Event{Type: relay.TypeError, Payload: relay.ErrorPayload{Message: msg}})
}

// --- helpers ---

func decode(payload any, dst any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

// conversationID принимает и голую строку, и объект {conversationId}.
func conversationID(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	var p relay.ConversationPayload
	if decode(payload, &p) == nil {
		return p.ConversationID
	}
	return ""
}
