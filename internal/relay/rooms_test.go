package relay

import "testing"

func TestRoomIndexJoinLeave(t *testing.T) {
	ri := newRoomIndex()

	ri.join("conn-a", "conversation-42")
	ri.join("conn-b", "conversation-42")
	ri.join("conn-a", "user-1")

	if !ri.contains("conn-a", "conversation-42") {
		t.Fatal("conn-a must be in conversation-42")
	}
	if got := len(ri.conns("conversation-42")); got != 2 {
		t.Fatalf("room has %d conns, want 2", got)
	}

	ri.leave("conn-a", "conversation-42")
	if ri.contains("conn-a", "conversation-42") {
		t.Fatal("conn-a must have left")
	}
	if !ri.contains("conn-a", "user-1") {
		t.Fatal("other memberships must be untouched")
	}
}

func TestRoomIndexEmptyRoomsAreDropped(t *testing.T) {
	ri := newRoomIndex()

	ri.join("conn-a", "conversation-42")
	ri.leave("conn-a", "conversation-42")

	if _, ok := ri.byRoom["conversation-42"]; ok {
		t.Fatal("empty room must be garbage-collected")
	}
	if _, ok := ri.byConn["conn-a"]; ok {
		t.Fatal("empty membership set must be garbage-collected")
	}
}

func TestRoomIndexDropConn(t *testing.T) {
	ri := newRoomIndex()

	ri.join("conn-a", "user-1")
	ri.join("conn-a", "conversation-42")
	ri.join("conn-b", "conversation-42")

	left := ri.dropConn("conn-a")
	if len(left) != 2 {
		t.Fatalf("dropConn left %d rooms, want 2", len(left))
	}
	if ri.contains("conn-a", "conversation-42") || ri.contains("conn-a", "user-1") {
		t.Fatal("dropped connection must not remain anywhere")
	}
	if !ri.contains("conn-b", "conversation-42") {
		t.Fatal("other members must be untouched")
	}

	if got := ri.dropConn("conn-a"); got != nil {
		t.Fatalf("second dropConn = %v, want nil", got)
	}
}
