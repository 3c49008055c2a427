package source

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket streams decoded messages from a websocket endpoint.
//
// The dial happens inside Subscribe, so an unreachable endpoint surfaces as
// a subscribe failure instead of a silently dead subscription. One read
// pump goroutine decodes incoming messages and hands them to the
// subscriber; cancelling the subscription closes the connection, which ends
// the pump.
type WebSocket[T any] struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// Decode turns one websocket message into a value. Messages that fail
	// to decode are logged and skipped.
	Decode func(data []byte) (T, error)

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Header is sent with the handshake request.
	Header http.Header

	// ReadTimeout bounds each read. Zero means no deadline.
	ReadTimeout time.Duration

	// Logger receives read and decode failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Subscribe dials the endpoint and starts the read pump.
func (w *WebSocket[T]) Subscribe(fn func(T)) (func(), error) {
	if w.URL == "" {
		return nil, errors.New("source: websocket requires a URL")
	}
	if w.Decode == nil {
		return nil, errors.New("source: websocket requires a Decode function")
	}
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, resp, err := dialer.Dial(w.URL, w.Header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("source: websocket dial %s: status %d: %w", w.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("source: websocket dial %s: %w", w.URL, err)
	}

	done := make(chan struct{})
	go w.readLoop(conn, fn, done, logger)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			conn.Close()
		})
	}, nil
}

func (w *WebSocket[T]) readLoop(conn *websocket.Conn, fn func(T), done <-chan struct{}, logger *slog.Logger) {
	defer conn.Close()

	for {
		if w.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// Cancelled: the read error is the connection we closed.
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					logger.Error("websocket read failed", "url", w.URL, "error", err)
				}
			}
			return
		}

		v, err := w.Decode(data)
		if err != nil {
			logger.Warn("websocket message decode failed", "url", w.URL, "error", err)
			continue
		}

		select {
		case <-done:
			return
		default:
		}
		fn(v)
	}
}
