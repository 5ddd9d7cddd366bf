package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/payfone/pkg/call"
)

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r)
	}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.OnCallEvent(call.Event{
		Kind:  call.EventState,
		Time:  time.Now(),
		State: "CONNECTING",
	})

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got call.Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != call.EventState || got.State != "CONNECTING" {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestHubBroadcastWithNoClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	// Must not block or panic.
	hub.OnCallEvent(call.Event{Kind: call.EventSpeaking, Time: time.Now(), Speaking: true})
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients, got %d", hub.ClientCount())
	}
}
