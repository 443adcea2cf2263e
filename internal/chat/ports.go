//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=../mocks/mock_chat.go -package=mocks
package chat

// Broadcaster delivers an outbound event to an explicit set of connection
// ids. Delivery is fire-and-forget: Send does not wait for the peers and
// unknown ids are skipped.
type Broadcaster interface {
	Send(recipients []string, event Event)
}

// ContentFilter decides whether a text message may be broadcast.
type ContentFilter interface {
	IsProfane(text string) bool
}
