package relay

import (
	"testing"
	"time"
)

func TestRegistryRegisterIsUpsert(t *testing.T) {
	r := newRegistry()
	now := time.Now()

	r.register("1", "conn-a", "Alice", now)
	r.register("1", "conn-b", "Alice", now.Add(time.Second))

	e, ok := r.get("1")
	if !ok {
		t.Fatal("user must stay registered")
	}
	if e.ConnID != "conn-b" {
		t.Fatalf("registry points at %q, want conn-b (last writer wins)", e.ConnID)
	}
	if got := r.size(); got != 1 {
		t.Fatalf("size = %d, want 1", got)
	}
}

func TestRegistryUnregisterGuard(t *testing.T) {
	r := newRegistry()
	now := time.Now()

	r.register("1", "conn-a", "Alice", now)
	r.register("1", "conn-b", "Alice", now)

	if r.unregister("1", "conn-a") {
		t.Fatal("stale connection must not pass the guard")
	}
	if _, ok := r.get("1"); !ok {
		t.Fatal("entry must survive a stale unregister")
	}

	if !r.unregister("1", "conn-b") {
		t.Fatal("current connection must pass the guard")
	}
	if _, ok := r.get("1"); ok {
		t.Fatal("entry must be gone after a guarded unregister")
	}

	if r.unregister("1", "conn-b") {
		t.Fatal("second unregister must be a no-op")
	}
}

func TestRegistryListIsSorted(t *testing.T) {
	r := newRegistry()
	now := time.Now()

	r.register("7", "c7", "G", now)
	r.register("2", "c2", "B", now)
	r.register("11", "c11", "K", now)

	got := r.listOnlineUserIDs()
	want := []string{"11", "2", "7"} // лексикографически
	if len(got) != len(want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list = %v, want %v", got, want)
		}
	}
}
