package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"medportal/pkg/client"
)

// The assistant's REST endpoint validates its body strictly: message and
// userId are required. A payload missing either is rejected, so the
// fallback channel must always carry both.
func TestRESTAgentChannel_SendsRequiredFields(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/message" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if received["message"] == nil || received["userId"] == nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"noted"}`))
	}))
	defer srv.Close()

	channel := NewRESTAgentChannel(client.NewHttpClient(srv.URL))
	reply, err := channel.Send(context.Background(), AgentRequest{
		Text:      "what are my appointments?",
		UserID:    "u1",
		SessionID: "s1",
		FileID:    "f1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "noted" {
		t.Errorf("expected agent reply, got %q", reply)
	}

	if received["message"] != "what are my appointments?" {
		t.Errorf("expected message field, got %v", received["message"])
	}
	if received["userId"] != "u1" {
		t.Errorf("expected userId field, got %v", received["userId"])
	}
	if received["sessionId"] != "s1" {
		t.Errorf("expected sessionId field, got %v", received["sessionId"])
	}
	if received["fileId"] != "f1" {
		t.Errorf("expected fileId field, got %v", received["fileId"])
	}
}

func TestRESTAgentChannel_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	channel := NewRESTAgentChannel(client.NewHttpClient(srv.URL))
	if _, err := channel.Send(context.Background(), AgentRequest{Text: "hi", UserID: "u1"}); err == nil {
		t.Fatal("expected error for rejected payload")
	}
}

// The websocket endpoint reads {type, text, fileId} frames; the file
// reference must travel under fileId or attachments are silently dropped.
func TestWSAgentChannel_FrameShape(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var frame map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.ReadJSON(&frame); err != nil {
			t.Errorf("failed to read frame: %v", err)
			return
		}
		_ = conn.WriteJSON(map[string]string{"response": "got it"})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	channel := NewWSAgentChannel(wsURL)
	reply, err := channel.Send(context.Background(), AgentRequest{
		Text:   "review this report",
		UserID: "u1",
		FileID: "f1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "got it" {
		t.Errorf("expected agent reply, got %q", reply)
	}

	if frame["type"] != "user_message" {
		t.Errorf("expected user_message frame, got %v", frame["type"])
	}
	if frame["text"] != "review this report" {
		t.Errorf("expected text field, got %v", frame["text"])
	}
	if frame["fileId"] != "f1" {
		t.Errorf("expected fileId field, got %v", frame["fileId"])
	}
}
