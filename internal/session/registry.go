// Package session keeps the in-memory directory of joined connections. It is
// the only owner of session state: callers get copies keyed by connection id.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/Tyrowin/roomchat/internal/chaterr"
)

// ReservedUsername is held by the system sender and cannot be joined with.
const ReservedUsername = "admin"

// Session binds one live connection to a username within a room.
type Session struct {
	ConnectionID string `json:"-" validate:"required"`
	Username     string `json:"username" validate:"required"`
	Room         string `json:"room" validate:"required"`
}

// Registry is safe for concurrent use. Mutations take the write lock for the
// whole read-check-insert sequence so two joins for the same room and
// username can never both succeed.
type Registry struct {
	mu       sync.RWMutex
	sessions []Session
	validate *validator.Validate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{validate: validator.New()}
}

// Normalize trims and case-folds a username or room name.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// AddSession normalizes and stores a new session. A failed call leaves the
// registry unchanged.
func (r *Registry) AddSession(connectionID, rawUsername, rawRoom string) (Session, error) {
	s := Session{
		ConnectionID: connectionID,
		Username:     Normalize(rawUsername),
		Room:         Normalize(rawRoom),
	}
	if err := r.validateSession(s); err != nil {
		return Session{}, err
	}
	if s.Username == ReservedUsername {
		return Session{}, chaterr.Conflict(chaterr.MsgUsernameInUse)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if lo.ContainsBy(r.sessions, func(existing Session) bool {
		return existing.ConnectionID == s.ConnectionID
	}) {
		return Session{}, chaterr.Conflict(chaterr.MsgAlreadyJoined)
	}
	if lo.ContainsBy(r.sessions, func(existing Session) bool {
		return existing.Room == s.Room && existing.Username == s.Username
	}) {
		return Session{}, chaterr.Conflict(chaterr.MsgUsernameInUse)
	}

	r.sessions = append(r.sessions, s)
	return s, nil
}

func (r *Registry) validateSession(s Session) error {
	err := r.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Field() == "ConnectionID" {
				return chaterr.Validation("connection id is required")
			}
		}
	}
	return chaterr.Validation(chaterr.MsgUsernameAndRoomRequired)
}

// RemoveSession removes and returns the session owned by connectionID.
// Removing an unknown id is a no-op.
func (r *Registry) RemoveSession(connectionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, idx, ok := lo.FindIndexOf(r.sessions, func(item Session) bool {
		return item.ConnectionID == connectionID
	})
	if !ok {
		return Session{}, false
	}
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
	return s, true
}

// GetSession looks up the session owned by connectionID.
func (r *Registry) GetSession(connectionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Find(r.sessions, func(item Session) bool {
		return item.ConnectionID == connectionID
	})
}

// ListSessionsInRoom returns the sessions of a room in insertion order.
func (r *Registry) ListSessionsInRoom(rawRoom string) []Session {
	room := Normalize(rawRoom)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Filter(r.sessions, func(item Session, _ int) bool {
		return item.Room == room
	})
}

// Len reports the number of joined sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Rooms lists the rooms that currently have at least one member, in the
// order they were first joined.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Uniq(lo.Map(r.sessions, func(item Session, _ int) string {
		return item.Room
	}))
}

// Close drops every session. It is called once at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	r.sessions = nil
	r.mu.Unlock()
}
