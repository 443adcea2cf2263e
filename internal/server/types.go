package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/chaterr"
)

// FrameAck is the type of the single response frame sent for every inbound frame.
const FrameAck = "ack"

// Frame is the JSON envelope of every WebSocket message in both directions.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AckPayload is empty on success.
type AckPayload struct {
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Dispatcher handles decoded requests for one connection at a time.
// *chat.Orchestrator implements it.
type Dispatcher interface {
	Join(connectionID string, req chat.JoinRequest) error
	SendMessage(connectionID, text string) error
	SendLocation(connectionID string, loc chat.Location) error
	Disconnect(connectionID string)
}

type locationPayload struct {
	Lat  *float64 `json:"lat" validate:"required"`
	Long *float64 `json:"long" validate:"required"`
}

var (
	payloadValidator = validator.New()
	errEmptyPayload  = errors.New("empty payload")
)

func encodeFrame(frameType, requestID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, RequestID: requestID, Payload: raw})
}

func decodePayload(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errEmptyPayload
	}
	return json.Unmarshal(trimmed, v)
}

func decodeLocation(raw json.RawMessage) (chat.Location, error) {
	var p locationPayload
	if err := decodePayload(raw, &p); err != nil {
		return chat.Location{}, chaterr.Validation(chaterr.MsgInvalidLocation)
	}
	if err := payloadValidator.Struct(p); err != nil {
		return chat.Location{}, chaterr.Validation(chaterr.MsgInvalidLocation)
	}
	return chat.Location{Lat: *p.Lat, Long: *p.Long}, nil
}

// ackFor converts a dispatcher result into the ack payload.
func ackFor(err error) AckPayload {
	if err == nil {
		return AckPayload{}
	}
	var chatErr *chaterr.Error
	if errors.As(err, &chatErr) {
		return AckPayload{Error: chatErr.Message, Code: string(chatErr.Kind)}
	}
	return AckPayload{Error: "Internal error", Code: "INTERNAL"}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
