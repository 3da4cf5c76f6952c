package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/relay"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	core := relay.New(nil, nil, nil, nil)
	s := NewServer(core, nil, "", time.Second)

	srv := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	t.Cleanup(srv.Close)

	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, wantType string) relay.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var ev relay.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read %s: %v", wantType, err)
		}
		if ev.Type == wantType {
			return ev
		}
	}
	t.Fatalf("no %s event before deadline", wantType)
	return relay.Event{}
}

func send(t *testing.T, conn *websocket.Conn, ev relay.Event) {
	t.Helper()
	if err := conn.WriteJSON(ev); err != nil {
		t.Fatalf("write %s: %v", ev.Type, err)
	}
}

func TestEndToEndAuthenticateAndRelay(t *testing.T) {
	_, url := newTestServer(t)

	alice := dial(t, url)
	send(t, alice, relay.Event{
		Type:    relay.TypeAuthenticate,
		Payload: relay.AuthenticatePayload{UserID: "1", UserName: "Alice"},
	})
	readEvent(t, alice, relay.TypeOnlineUsers)

	bob := dial(t, url)
	send(t, bob, relay.Event{
		Type:    relay.TypeAuthenticate,
		Payload: relay.AuthenticatePayload{UserID: "2", UserName: "Bob"},
	})
	readEvent(t, bob, relay.TypeOnlineUsers)
	readEvent(t, alice, relay.TypeUserOnline)

	send(t, alice, relay.Event{Type: relay.TypeJoinConversation, Payload: "42"})
	readEvent(t, alice, relay.TypeConversationJoined)
	send(t, bob, relay.Event{Type: relay.TypeJoinConversation, Payload: "42"})
	readEvent(t, bob, relay.TypeConversationJoined)

	send(t, alice, relay.Event{
		Type: relay.TypeSendMessage,
		Payload: relay.SendMessagePayload{
			ConversationID: "42",
			Content:        "hello",
			TempID:         "t1",
		},
	})

	msg := readEvent(t, bob, relay.TypeNewMessage)
	var p relay.NewMessagePayload
	if err := decode(msg.Payload, &p); err != nil {
		t.Fatalf("decode new_message: %v", err)
	}
	if p.Content != "hello" || p.SenderID != "1" || p.TempID != "t1" {
		t.Fatalf("unexpected new_message: %+v", p)
	}

	ack := readEvent(t, alice, relay.TypeMessageSent)
	var ap relay.MessageSentPayload
	if err := decode(ack.Payload, &ap); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ap.TempID != "t1" || ap.ConversationID != "42" {
		t.Fatalf("unexpected ack: %+v", ap)
	}
}

func TestEndToEndUnauthenticatedJoinRejected(t *testing.T) {
	_, url := newTestServer(t)

	conn := dial(t, url)
	send(t, conn, relay.Event{Type: relay.TypeJoinConversation, Payload: "42"})

	ev := readEvent(t, conn, relay.TypeError)
	var p relay.ErrorPayload
	if err := decode(ev.Payload, &p); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if p.Message != "Authentication required" {
		t.Fatalf("error message = %q", p.Message)
	}
}

func TestEndToEndPing(t *testing.T) {
	_, url := newTestServer(t)

	conn := dial(t, url)
	send(t, conn, relay.Event{Type: relay.TypePing})
	readEvent(t, conn, relay.TypePong)
}

func TestEndToEndDisconnectReconciliation(t *testing.T) {
	_, url := newTestServer(t)

	alice := dial(t, url)
	send(t, alice, relay.Event{
		Type:    relay.TypeAuthenticate,
		Payload: relay.AuthenticatePayload{UserID: "1", UserName: "Alice"},
	})
	readEvent(t, alice, relay.TypeOnlineUsers)

	bob := dial(t, url)
	send(t, bob, relay.Event{
		Type:    relay.TypeAuthenticate,
		Payload: relay.AuthenticatePayload{UserID: "2", UserName: "Bob"},
	})
	readEvent(t, bob, relay.TypeOnlineUsers)

	send(t, alice, relay.Event{Type: relay.TypeJoinConversation, Payload: "42"})
	readEvent(t, alice, relay.TypeConversationJoined)
	send(t, bob, relay.Event{Type: relay.TypeJoinConversation, Payload: "42"})
	readEvent(t, bob, relay.TypeConversationJoined)

	send(t, alice, relay.Event{Type: relay.TypeTypingStart, Payload: "42"})
	readEvent(t, bob, relay.TypeUserStartedTyping)

	// обрыв без typing_stop: bob должен получить и stopped_typing,
	// и user_offline в рамках сверки
	_ = alice.Close()

	stopped := readEvent(t, bob, relay.TypeUserStoppedTyping)
	var tp relay.TypingPayload
	if err := decode(stopped.Payload, &tp); err != nil {
		t.Fatalf("decode typing payload: %v", err)
	}
	if tp.UserID != "1" || tp.ConversationID != "42" {
		t.Fatalf("unexpected stopped_typing: %+v", tp)
	}

	off := readEvent(t, bob, relay.TypeUserOffline)
	var op relay.UserOfflinePayload
	if err := decode(off.Payload, &op); err != nil {
		t.Fatalf("decode offline payload: %v", err)
	}
	if op.UserID != "1" {
		t.Fatalf("user_offline for %q, want 1", op.UserID)
	}
}
