// Package message builds the timestamped envelopes broadcast to rooms.
// Formatting never fails; callers validate sessions and content first.
package message

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SystemSender is the display name used for server notices.
const SystemSender = "Admin"

// DefaultMapBaseURL is the map service used for location links.
const DefaultMapBaseURL = "https://google.com/maps"

const welcomeText = "Welcome!"

// Kind tells text envelopes from location envelopes.
type Kind string

const (
	KindText     Kind = "text"
	KindLocation Kind = "location"
)

// Envelope is one immutable unit of broadcast content.
type Envelope struct {
	Kind      Kind
	Sender    string
	Payload   string
	CreatedAt time.Time
}

// TextMessage is the wire shape of a text envelope.
type TextMessage struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// LocationMessage is the wire shape of a location envelope.
type LocationMessage struct {
	Username  string `json:"username"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// TextView renders the envelope for the "message" event.
func (e Envelope) TextView() TextMessage {
	return TextMessage{Username: e.Sender, Text: e.Payload, CreatedAt: e.CreatedAt.UnixMilli()}
}

// LocationView renders the envelope for the "locationMessage" event.
func (e Envelope) LocationView() LocationMessage {
	return LocationMessage{Username: e.Sender, URL: e.Payload, CreatedAt: e.CreatedAt.UnixMilli()}
}

// Clock returns the current time. Tests replace it to pin CreatedAt.
type Clock func() time.Time

// Formatter stamps envelopes with its clock. The zero value is not usable;
// build one with NewFormatter.
type Formatter struct {
	now     Clock
	mapBase string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(f *Formatter) {
		if c != nil {
			f.now = c
		}
	}
}

// WithMapBaseURL overrides DefaultMapBaseURL. Invalid or empty values are
// ignored.
func WithMapBaseURL(base string) Option {
	return func(f *Formatter) {
		base = strings.TrimRight(strings.TrimSpace(base), "?/")
		if base == "" {
			return
		}
		if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
			return
		}
		f.mapBase = base
	}
}

// NewFormatter returns a Formatter using the wall clock and the default map
// service unless overridden by opts.
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{now: time.Now, mapBase: DefaultMapBaseURL}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FormatText builds a text envelope.
func (f *Formatter) FormatText(sender, text string) Envelope {
	return Envelope{Kind: KindText, Sender: sender, Payload: text, CreatedAt: f.now()}
}

// FormatLocation builds a location envelope whose payload is a map link.
func (f *Formatter) FormatLocation(sender string, latitude, longitude float64) Envelope {
	return Envelope{
		Kind:      KindLocation,
		Sender:    sender,
		Payload:   f.MapLink(latitude, longitude),
		CreatedAt: f.now(),
	}
}

// MapLink builds <base>?q=<lat>,<long>. Coordinates use the shortest
// decimal form, so 40.7 stays "40.7" and -74.0 becomes "-74".
func (f *Formatter) MapLink(latitude, longitude float64) string {
	return fmt.Sprintf("%s?q=%s,%s", f.mapBase, formatCoordinate(latitude), formatCoordinate(longitude))
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Welcome is the private greeting sent to a user who just joined.
func (f *Formatter) Welcome() Envelope {
	return f.FormatText(SystemSender, welcomeText)
}

// Joined announces username to the rest of the room.
func (f *Formatter) Joined(username string) Envelope {
	return f.FormatText(SystemSender, username+" has joined!")
}

// Left announces that username left the room.
func (f *Formatter) Left(username string) Envelope {
	return f.FormatText(SystemSender, username+" has left.")
}
