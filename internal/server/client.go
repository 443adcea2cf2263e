package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/chaterr"
	"github.com/Tyrowin/roomchat/internal/config"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client is one WebSocket connection. Its read pump decodes frames and hands
// them to the dispatcher one at a time; its write pump drains the send queue.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	dispatcher     Dispatcher
	addr           string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	log            *slog.Logger
}

// NewClient creates a Client for an upgraded connection. The id must be
// unique among live connections.
func NewClient(conn *websocket.Conn, hub *Hub, dispatcher Dispatcher, id, addr string, cfg config.Config) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		dispatcher:     dispatcher,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		log:            hub.log.With("connection_id", id, "addr", addr),
	}
}

// ID returns the connection id the session registry knows this client by.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's outgoing frame queue.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// logReadError logs the reason the read loop is ending.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "max_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("Client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("Client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("Unexpected WebSocket close", "error", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.dispatcher.Disconnect(c.id)
		c.hub.unregisterClient(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Error("Error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		c.processFrame(raw)
	}
}

// processFrame answers every inbound frame with exactly one ack, queued after
// any events the request produced. Frames are charged to the rate limiter
// before decoding, so a rate-limited ack carries no requestId.
func (c *Client) processFrame(raw []byte) {
	if !c.rateLimiter.allow() {
		c.log.Warn("Rate limit exceeded; discarding frame", "bytes", len(raw))
		c.reply("", chaterr.RateLimited(chaterr.MsgRateLimited))
		return
	}

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Debug("Invalid frame", "error", err)
		c.reply("", chaterr.Validation(chaterr.MsgInvalidPayload))
		return
	}

	c.reply(frame.RequestID, c.dispatch(frame))
}

func (c *Client) dispatch(frame Frame) error {
	switch frame.Type {
	case chat.EventJoin:
		var req chat.JoinRequest
		if err := decodePayload(frame.Payload, &req); err != nil {
			return chaterr.Validation(chaterr.MsgInvalidPayload)
		}
		return c.dispatcher.Join(c.id, req)

	case chat.EventSendMessage:
		var text string
		if err := decodePayload(frame.Payload, &text); err != nil {
			return chaterr.Validation(chaterr.MsgInvalidPayload)
		}
		return c.dispatcher.SendMessage(c.id, text)

	case chat.EventSendLocation:
		loc, err := decodeLocation(frame.Payload)
		if err != nil {
			return err
		}
		return c.dispatcher.SendLocation(c.id, loc)

	default:
		c.log.Debug("Unsupported frame type", "type", frame.Type)
		return chaterr.Validation(chaterr.MsgUnsupportedEvent)
	}
}

func (c *Client) reply(requestID string, err error) {
	payload, encErr := encodeFrame(FrameAck, requestID, ackFor(err))
	if encErr != nil {
		c.log.Error("Failed to encode ack", "error", encErr)
		return
	}
	c.hub.reply(c, payload)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Error("Error closing connection in writePump", "error", err)
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeFrame(frame, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeFrame writes one queued frame per WebSocket message. A closed queue
// produces a close message and ends the pump.
func (c *Client) writeFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline", "error", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("Error writing close message", "error", err)
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.log.Warn("Error writing frame", "error", err)
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("Error writing ping", "error", err)
		return false
	}
	return true
}
