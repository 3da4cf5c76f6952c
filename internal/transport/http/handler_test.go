package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/cwrk-planet/presence-service/internal/relay"
)

func TestGetStats(t *testing.T) {
	core := relay.New(nil, nil, nil, nil)
	h := NewHandler(nil, core)

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest("GET", "/stats", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var st relay.Stats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.OnlineUsers != 0 || st.Connections != 0 || st.Conversations != 0 {
		t.Fatalf("fresh core stats = %+v", st)
	}
}

func TestGetHistoryWithoutStore(t *testing.T) {
	h := NewHandler(nil, relay.New(nil, nil, nil, nil))

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest("GET", "/conversations/42/messages", nil))

	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503 when history store is disabled", rec.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("error body must explain the refusal")
	}
}
