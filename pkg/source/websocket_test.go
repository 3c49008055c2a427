package source

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func wsURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http")
}

// quoteServer upgrades each connection and streams the given payloads.
func quoteServer(t *testing.T, payloads []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestWebSocketStreamsMessages(t *testing.T) {
	srv := quoteServer(t, []string{
		`{"symbol":"ACME","price":10.5}`,
		`{"symbol":"ACME","price":11.0}`,
	})
	defer srv.Close()

	ws := &WebSocket[quote]{
		URL: wsURL(srv.URL),
		Decode: func(data []byte) (quote, error) {
			var q quote
			err := json.Unmarshal(data, &q)
			return q, err
		},
	}

	got := make(chan quote, 8)
	cancel, err := ws.Subscribe(func(q quote) { got <- q })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	for _, want := range []float64{10.5, 11.0} {
		select {
		case q := <-got:
			if q.Symbol != "ACME" || q.Price != want {
				t.Errorf("expected ACME at %v, got %+v", want, q)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for price %v", want)
		}
	}
}

func TestWebSocketSkipsUndecodableMessages(t *testing.T) {
	srv := quoteServer(t, []string{
		`not json`,
		`{"symbol":"ACME","price":12.0}`,
	})
	defer srv.Close()

	ws := &WebSocket[quote]{
		URL: wsURL(srv.URL),
		Decode: func(data []byte) (quote, error) {
			var q quote
			err := json.Unmarshal(data, &q)
			return q, err
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	got := make(chan quote, 8)
	cancel, err := ws.Subscribe(func(q quote) { got <- q })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	select {
	case q := <-got:
		if q.Price != 12.0 {
			t.Errorf("expected the decodable message, got %+v", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("decode failure should not kill the read pump")
	}
}

func TestWebSocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusNotFound)
	}))
	defer srv.Close()

	ws := &WebSocket[quote]{
		URL:    wsURL(srv.URL),
		Decode: func([]byte) (quote, error) { return quote{}, nil },
	}

	if _, err := ws.Subscribe(func(quote) {}); err == nil {
		t.Error("expected dial failure against a non-websocket endpoint")
	}
}

func TestWebSocketValidation(t *testing.T) {
	ws := &WebSocket[quote]{Decode: func([]byte) (quote, error) { return quote{}, nil }}
	if _, err := ws.Subscribe(func(quote) {}); err == nil {
		t.Error("expected error when URL is empty")
	}

	ws = &WebSocket[quote]{URL: "ws://localhost:0"}
	if _, err := ws.Subscribe(func(quote) {}); err == nil {
		t.Error("expected error when Decode is nil")
	}
}

func TestWebSocketCancelClosesConnection(t *testing.T) {
	connClosed := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		// Reads fail once the client closes.
		if _, _, err := conn.ReadMessage(); err != nil {
			close(connClosed)
		}
	}))
	defer srv.Close()

	ws := &WebSocket[quote]{
		URL:    wsURL(srv.URL),
		Decode: func([]byte) (quote, error) { return quote{}, nil },
	}

	cancel, err := ws.Subscribe(func(quote) {})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	cancel()
	cancel() // idempotent

	select {
	case <-connClosed:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel should close the connection")
	}
}
