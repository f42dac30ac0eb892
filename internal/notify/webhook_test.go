package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/uncovercity/BistroHunter/internal/search"
)

func TestWebhookNotifier_PostsResults(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		received <- body
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	done := make(chan struct{})
	n.afterSend = func() { close(done) }

	n.NotifyResults("Madrid", []search.Restaurant{{Titulo: "Casa Paca", Distancia: "0.42 km"}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook delivery never completed")
	}

	var payload struct {
		City       string              `json:"city"`
		Resultados []search.Restaurant `json:"resultados"`
	}
	if err := json.Unmarshal(<-received, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.City != "Madrid" || len(payload.Resultados) != 1 || payload.Resultados[0].Titulo != "Casa Paca" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestWebhookNotifier_FailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	done := make(chan struct{})
	n.afterSend = func() { close(done) }

	// Must not panic or block the caller.
	n.NotifyResults("Madrid", nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook attempt never completed")
	}
}

func TestWebhookNotifier_EmptyURLIsNoop(t *testing.T) {
	n := NewWebhookNotifier("")
	n.afterSend = func() { t.Error("no delivery should be attempted without a URL") }
	n.NotifyResults("Madrid", nil)
	time.Sleep(50 * time.Millisecond)
}
