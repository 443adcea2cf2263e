package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Hub tracks connected clients by connection id and delivers encoded events
// to them. Registration and unregistration go through the Run loop; delivery
// happens on the caller's goroutine so a connection's acks and the events its
// requests produced are queued in order.
type Hub struct {
	log        *slog.Logger
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub. Call Run in its own goroutine before registering clients.
func NewHub(log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a new client to the Run loop, which starts its pumps.
// It returns false when the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("Received nil client registration; skipping")
				continue
			}
			count := h.addClient(client)
			h.log.Info("Client registered", "connection_id", client.id, "addr", client.addr, "clients", count)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			if h.removeClient(client) {
				h.log.Info("Client unregistered", "connection_id", client.id, "addr", client.addr, "clients", h.ConnectionCount())
			}
		}
	}
}

func (h *Hub) addClient(client *Client) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	client.closed = false
	h.clients[client.id] = client
	return len(h.clients)
}

// removeClient drops the client and closes its queue. It reports false when
// the client was already gone.
func (h *Hub) removeClient(client *Client) bool {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client.id)
	client.closed = true
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	return true
}

// ConnectionCount reports the number of registered clients.
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Send implements chat.Broadcaster. Unknown recipients are skipped and a
// client whose queue is full is dropped.
func (h *Hub) Send(recipients []string, event chat.Event) {
	payload, err := encodeFrame(event.Name, "", event.Payload)
	if err != nil {
		h.log.Error("Failed to encode event", "event", event.Name, "error", err)
		return
	}
	h.log.Debug("Delivering event", "event", event.Name, "recipients", len(recipients))

	var failed []*Client
	for _, id := range recipients {
		client := h.lookup(id)
		if client == nil {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// reply queues a frame for a single client.
func (h *Hub) reply(client *Client, payload []byte) {
	if !h.safeSend(client, payload) {
		h.removeFailedClients([]*Client{client})
	}
}

func (h *Hub) lookup(id string) *Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[id]
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send so the queue cannot be closed underneath us
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	current, exists := h.clients[client.id]
	if !exists || current != client || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// removeFailedClients drops clients that could not take a message. Closing
// their queue makes the write pump close the connection, which in turn ends
// the read pump and disconnects the session.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if current, exists := h.clients[client.id]; exists && current == client {
			delete(h.clients, client.id)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			h.log.Warn("Client removed due to full send buffer", "connection_id", client.id, "addr", client.addr)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients closes every queue and connection so both pumps of each
// client return.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		delete(h.clients, id)
		client.closed = true
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Error("Error closing client connection", "connection_id", client.id, "error", err)
			}
		}
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops the Run loop and waits for every client goroutine, up to
// timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
