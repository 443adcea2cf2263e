// Package testhelpers provides utilities shared by the relay's end-to-end tests:
// a fully wired test server, WebSocket dialing and frame helpers.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/config"
	"github.com/Tyrowin/roomchat/internal/message"
	"github.com/Tyrowin/roomchat/internal/moderation"
	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/internal/session"
)

// TestOrigin is allowed by the config returned from TestConfig.
const TestOrigin = "http://localhost:3000"

const readTimeout = 2 * time.Second

// Stack is a running relay behind an httptest server.
type Stack struct {
	Server   *httptest.Server
	Hub      *server.Hub
	Registry *session.Registry
	Config   config.Config
}

// TestConfig returns defaults with the given overrides applied.
func TestConfig(mutate func(*config.Config)) config.Config {
	cfg := config.Default()
	cfg.AllowedOrigins = []string{TestOrigin}
	if mutate != nil {
		mutate(&cfg)
	}
	return config.Sanitize(cfg)
}

// NewStack wires the relay the way cmd/server does and serves it. Everything
// is torn down when the test ends.
func NewStack(t *testing.T, cfg config.Config) *Stack {
	t.Helper()

	log := logs.GetLoggerFromString("ERROR")
	filter, err := moderation.NewFilter(slices.Concat(moderation.DefaultWords, cfg.ProfanityWords))
	require.NoError(t, err)

	registry := session.NewRegistry()
	hub := server.NewHub(log)
	go hub.Run()

	orchestrator := chat.NewOrchestrator(log, registry, message.NewFormatter(message.WithMapBaseURL(cfg.MapBaseURL)), filter, hub)
	handler := server.NewHandler(log, cfg, hub, orchestrator, registry)
	ts := httptest.NewServer(server.SetupRoutes(handler))

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(time.Second)
		registry.Close()
	})

	return &Stack{Server: ts, Hub: hub, Registry: registry, Config: cfg}
}

// WebSocketURL returns the ws:// URL of the stack's /ws endpoint.
func (s *Stack) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http") + "/ws"
}

// Connect dials the stack with the allowed test origin.
func (s *Stack) Connect(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(s.WebSocketURL(), TestOrigin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ConnectWebSocket creates a WebSocket connection to url, sending origin
// when it is non-empty.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendFrame encodes payload and writes it as one frame.
func SendFrame(t *testing.T, conn *websocket.Conn, frameType, requestID string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(server.Frame{Type: frameType, RequestID: requestID, Payload: raw}))
}

// ReadFrame reads the next frame, failing the test after a short deadline.
func ReadFrame(t *testing.T, conn *websocket.Conn) server.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	var frame server.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// ReadUntil reads frames until one of frameType arrives and returns it along
// with the frames skipped on the way.
func ReadUntil(t *testing.T, conn *websocket.Conn, frameType string) (server.Frame, []server.Frame) {
	t.Helper()
	var skipped []server.Frame
	for {
		frame := ReadFrame(t, conn)
		if frame.Type == frameType {
			return frame, skipped
		}
		skipped = append(skipped, frame)
	}
}

// ReadAck reads up to the next ack and decodes it.
func ReadAck(t *testing.T, conn *websocket.Conn) (server.AckPayload, server.Frame) {
	t.Helper()
	frame, _ := ReadUntil(t, conn, server.FrameAck)
	var ack server.AckPayload
	require.NoError(t, json.Unmarshal(frame.Payload, &ack))
	return ack, frame
}

// DecodePayload unmarshals a frame payload into T.
func DecodePayload[T any](t *testing.T, frame server.Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(frame.Payload, &v))
	return v
}

// ExpectNoFrame asserts nothing arrives on conn within wait.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", raw)
}
