// Package chaterr defines the tagged errors returned to a single requesting
// connection. None of them are fatal to the server and none are broadcast.
package chaterr

import "errors"

// Kind classifies a request failure. The value is sent to clients as the ack
// error code.
type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindConflict        Kind = "CONFLICT"
	KindContentRejected Kind = "CONTENT_REJECTED"
	KindSessionNotFound Kind = "SESSION_NOT_FOUND"
	KindRateLimited     Kind = "RATE_LIMITED"
)

// Client facing messages.
const (
	MsgUsernameAndRoomRequired = "Username and room are required!"
	MsgUsernameInUse           = "Username is in use!"
	MsgAlreadyJoined           = "You have already joined a room!"
	MsgProfanity               = "Profanity is not allowed"
	MsgNotJoined               = "You must join a room first!"
	MsgInvalidLocation         = "Invalid location!"
	MsgInvalidPayload          = "Invalid payload!"
	MsgUnsupportedEvent        = "Unsupported event!"
	MsgRateLimited             = "Too many requests!"
)

// Error is a request failure with a kind and a message safe to show to the
// requesting client.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so the Err* sentinels below work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrContentRejected = &Error{Kind: KindContentRejected}
	ErrSessionNotFound = &Error{Kind: KindSessionNotFound}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
)

// Validation reports malformed or incomplete input.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Conflict reports a request clashing with existing state.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// ContentRejected reports text refused by the content filter.
func ContentRejected(msg string) *Error {
	return &Error{Kind: KindContentRejected, Message: msg}
}

// SessionNotFound reports a request from a connection that has not joined.
func SessionNotFound(msg string) *Error {
	return &Error{Kind: KindSessionNotFound, Message: msg}
}

// RateLimited reports a frame over the connection's rate limit.
func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

// KindOf returns the kind of err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
