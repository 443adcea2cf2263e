// Package chat binds connection lifecycle events to the session registry and
// the room broadcasts. Each operation is one request and one response: a nil
// error or a *chaterr.Error meant for the requesting connection only.
package chat

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/roomchat/internal/chaterr"
	"github.com/Tyrowin/roomchat/internal/message"
	"github.com/Tyrowin/roomchat/internal/session"
)

// Orchestrator is safe for concurrent use across connections. Calls for one
// connection must be made sequentially, in arrival order.
type Orchestrator struct {
	log         *slog.Logger
	registry    *session.Registry
	formatter   *message.Formatter
	filter      ContentFilter
	broadcaster Broadcaster
	validate    *validator.Validate
}

// NewOrchestrator wires the registry, formatter, filter and broadcaster. A nil
// filter accepts all text.
func NewOrchestrator(log *slog.Logger, registry *session.Registry, formatter *message.Formatter,
	filter ContentFilter, broadcaster Broadcaster) *Orchestrator {
	return &Orchestrator{
		log:         log,
		registry:    registry,
		formatter:   formatter,
		filter:      filter,
		broadcaster: broadcaster,
		validate:    validator.New(),
	}
}

// Join adds the connection to a room. On success the joiner gets a private
// welcome, the other members get a notice, and everyone in the room
// including the joiner gets the new snapshot.
func (o *Orchestrator) Join(connectionID string, req JoinRequest) error {
	s, err := o.registry.AddSession(connectionID, req.Username, req.Room)
	if err != nil {
		o.log.Debug("Join rejected", "connection_id", connectionID, "error", err)
		return err
	}
	o.log.Info("User joined", "connection_id", connectionID, "username", s.Username, "room", s.Room)

	members := o.registry.ListSessionsInRoom(s.Room)

	o.broadcaster.Send([]string{connectionID}, textEvent(o.formatter.Welcome()))
	if others := connectionIDsExcept(members, connectionID); len(others) > 0 {
		o.broadcaster.Send(others, textEvent(o.formatter.Joined(s.Username)))
	}
	o.broadcaster.Send(connectionIDs(members), roomDataEvent(s.Room, members))
	return nil
}

// SendMessage broadcasts text to the sender's room, sender included.
func (o *Orchestrator) SendMessage(connectionID, text string) error {
	s, ok := o.registry.GetSession(connectionID)
	if !ok {
		o.log.Debug("Message from connection without session", "connection_id", connectionID)
		return chaterr.SessionNotFound(chaterr.MsgNotJoined)
	}
	if o.filter != nil && o.filter.IsProfane(text) {
		o.log.Info("Message rejected by content filter", "connection_id", connectionID, "room", s.Room)
		return chaterr.ContentRejected(chaterr.MsgProfanity)
	}

	members := o.registry.ListSessionsInRoom(s.Room)
	o.broadcaster.Send(connectionIDs(members), textEvent(o.formatter.FormatText(s.Username, text)))
	return nil
}

// SendLocation broadcasts a map link to the sender's room, sender included.
// Location payloads are not run through the content filter.
func (o *Orchestrator) SendLocation(connectionID string, loc Location) error {
	s, ok := o.registry.GetSession(connectionID)
	if !ok {
		o.log.Debug("Location from connection without session", "connection_id", connectionID)
		return chaterr.SessionNotFound(chaterr.MsgNotJoined)
	}
	if err := o.validate.Struct(loc); err != nil {
		o.log.Debug("Location rejected", "connection_id", connectionID, "error", err)
		return chaterr.Validation(chaterr.MsgInvalidLocation)
	}

	members := o.registry.ListSessionsInRoom(s.Room)
	o.broadcaster.Send(connectionIDs(members), locationEvent(o.formatter.FormatLocation(s.Username, loc.Lat, loc.Long)))
	return nil
}

// Disconnect removes the connection's session, if any, and tells the rest of
// the room. A connection that never joined produces no broadcast.
func (o *Orchestrator) Disconnect(connectionID string) {
	s, ok := o.registry.RemoveSession(connectionID)
	if !ok {
		return
	}
	o.log.Info("User left", "connection_id", connectionID, "username", s.Username, "room", s.Room)

	remaining := o.registry.ListSessionsInRoom(s.Room)
	if len(remaining) == 0 {
		return
	}
	recipients := connectionIDs(remaining)
	o.broadcaster.Send(recipients, textEvent(o.formatter.Left(s.Username)))
	o.broadcaster.Send(recipients, roomDataEvent(s.Room, remaining))
}
