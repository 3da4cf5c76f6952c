package relay

import "testing"

func TestTypingStartIdempotent(t *testing.T) {
	ts := newTypingSets()

	if !ts.start("42", "1") {
		t.Fatal("first start must report a new member")
	}
	if ts.start("42", "1") {
		t.Fatal("second start must be a state no-op")
	}
	if got := ts.size("42"); got != 1 {
		t.Fatalf("set size = %d, want 1", got)
	}
}

func TestTypingStopDeletesEmptySet(t *testing.T) {
	ts := newTypingSets()

	ts.start("42", "1")
	if !ts.stop("42", "1") {
		t.Fatal("stop of a typing user must be effective")
	}
	if _, ok := ts.byConversation["42"]; ok {
		t.Fatal("empty set must be deleted, no dangling sets")
	}

	if ts.stop("42", "1") {
		t.Fatal("stop of an absent user must be a no-op")
	}
	if ts.stop("no-such", "1") {
		t.Fatal("stop on an unknown conversation must be a no-op")
	}
}

func TestTypingSweep(t *testing.T) {
	ts := newTypingSets()

	ts.start("42", "1")
	ts.start("42", "2")
	ts.start("43", "1")

	affected := ts.sweep("1")
	if len(affected) != 2 {
		t.Fatalf("sweep affected %v, want 2 conversations", affected)
	}
	if ts.isTyping("42", "1") || ts.isTyping("43", "1") {
		t.Fatal("user must be gone from every set")
	}
	if !ts.isTyping("42", "2") {
		t.Fatal("other users must be untouched")
	}
	if _, ok := ts.byConversation["43"]; ok {
		t.Fatal("set emptied by sweep must be deleted")
	}

	if got := ts.sweep("1"); got != nil {
		t.Fatalf("second sweep = %v, want nil", got)
	}
}
