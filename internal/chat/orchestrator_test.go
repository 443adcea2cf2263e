package chat_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/chaterr"
	"github.com/Tyrowin/roomchat/internal/message"
	"github.com/Tyrowin/roomchat/internal/mocks"
	"github.com/Tyrowin/roomchat/internal/session"
)

const (
	connA = "conn-a"
	connB = "conn-b"
	connC = "conn-c"
)

var now = time.Date(2024, time.March, 1, 12, 30, 0, 0, time.UTC)

type fixture struct {
	orchestrator *chat.Orchestrator
	registry     *session.Registry
	broadcaster  *mocks.MockBroadcaster
	filter       *mocks.MockContentFilter
	formatter    *message.Formatter
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := session.NewRegistry()
	formatter := message.NewFormatter(message.WithClock(func() time.Time { return now }))
	broadcaster := mocks.NewMockBroadcaster(ctrl)
	filter := mocks.NewMockContentFilter(ctrl)
	return fixture{
		orchestrator: chat.NewOrchestrator(log, registry, formatter, filter, broadcaster),
		registry:     registry,
		broadcaster:  broadcaster,
		filter:       filter,
		formatter:    formatter,
	}
}

func text(sender, body string) chat.Event {
	return chat.Event{Name: chat.EventMessage, Payload: message.TextMessage{
		Username: sender, Text: body, CreatedAt: now.UnixMilli(),
	}}
}

func roomData(room string, usernames ...string) chat.Event {
	users := make([]chat.Member, 0, len(usernames))
	for _, u := range usernames {
		users = append(users, chat.Member{Username: u, Room: room})
	}
	return chat.Event{Name: chat.EventRoomData, Payload: chat.RoomData{Room: room, Users: users}}
}

func TestOrchestrator_Join_First(t *testing.T) {
	f := newFixture(t)

	gomock.InOrder(
		f.broadcaster.EXPECT().Send([]string{connA}, text(message.SystemSender, "Welcome!")),
		f.broadcaster.EXPECT().Send([]string{connA}, roomData("lobby", "alice")),
	)

	err := f.orchestrator.Join(connA, chat.JoinRequest{Username: "Alice", Room: " Lobby"})

	require.NoError(t, err)
	require.Len(t, f.registry.ListSessionsInRoom("lobby"), 1)
}

func TestOrchestrator_Join_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		request chat.JoinRequest
		kind    error
		message string
	}{
		{name: "missing username", request: chat.JoinRequest{Room: "lobby"}, kind: chaterr.ErrValidation, message: chaterr.MsgUsernameAndRoomRequired},
		{name: "blank room", request: chat.JoinRequest{Username: "bob", Room: "   "}, kind: chaterr.ErrValidation, message: chaterr.MsgUsernameAndRoomRequired},
		{name: "reserved name", request: chat.JoinRequest{Username: "ADMIN", Room: "lobby"}, kind: chaterr.ErrConflict, message: chaterr.MsgUsernameInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.orchestrator.Join(connA, tt.request)

			require.ErrorIs(t, err, tt.kind)
			require.Equal(t, tt.message, err.Error())
			require.Zero(t, f.registry.Len())
		})
	}
}

func TestOrchestrator_Join_Twice(t *testing.T) {
	f := newFixture(t)
	f.broadcaster.EXPECT().Send(gomock.Any(), gomock.Any()).Times(2)
	require.NoError(t, f.orchestrator.Join(connA, chat.JoinRequest{Username: "alice", Room: "lobby"}))

	err := f.orchestrator.Join(connA, chat.JoinRequest{Username: "alice", Room: "garden"})

	require.ErrorIs(t, err, chaterr.ErrConflict)
	require.Equal(t, chaterr.MsgAlreadyJoined, err.Error())
	require.Empty(t, f.registry.ListSessionsInRoom("garden"))
}

// Scenario: alice and bob share a room, alice shares a location, then leaves.
func TestOrchestrator_RoomScenario(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Alice joins the lobby
	gomock.InOrder(
		f.broadcaster.EXPECT().Send([]string{connA}, text(message.SystemSender, "Welcome!")),
		f.broadcaster.EXPECT().Send([]string{connA}, roomData("lobby", "alice")),
	)
	req.NoError(f.orchestrator.Join(connA, chat.JoinRequest{Username: "alice", Room: "lobby"}))
	req.Equal(1, f.registry.Len())

	// Bob tries to take alice's name
	err := f.orchestrator.Join(connB, chat.JoinRequest{Username: "alice", Room: "lobby"})
	req.ErrorIs(err, chaterr.ErrConflict)
	req.Equal(1, f.registry.Len())

	// Bob joins with his own name
	gomock.InOrder(
		f.broadcaster.EXPECT().Send([]string{connB}, text(message.SystemSender, "Welcome!")),
		f.broadcaster.EXPECT().Send([]string{connA}, text(message.SystemSender, "bob has joined!")),
		f.broadcaster.EXPECT().Send([]string{connA, connB}, roomData("lobby", "alice", "bob")),
	)
	req.NoError(f.orchestrator.Join(connB, chat.JoinRequest{Username: "bob", Room: "lobby"}))

	// Alice shares her location with everyone, herself included
	f.broadcaster.EXPECT().Send([]string{connA, connB}, chat.Event{
		Name: chat.EventLocationMessage,
		Payload: message.LocationMessage{
			Username:  "alice",
			URL:       "https://google.com/maps?q=40.7,-74",
			CreatedAt: now.UnixMilli(),
		},
	})
	req.NoError(f.orchestrator.SendLocation(connA, chat.Location{Lat: 40.7, Long: -74.0}))

	// Alice disconnects
	gomock.InOrder(
		f.broadcaster.EXPECT().Send([]string{connB}, text(message.SystemSender, "alice has left.")),
		f.broadcaster.EXPECT().Send([]string{connB}, roomData("lobby", "bob")),
	)
	f.orchestrator.Disconnect(connA)

	_, ok := f.registry.GetSession(connA)
	req.False(ok)
	req.Len(f.registry.ListSessionsInRoom("lobby"), 1)
}

func TestOrchestrator_SendMessage(t *testing.T) {
	f := newFixture(t)
	f.broadcaster.EXPECT().Send(gomock.Any(), gomock.Any()).AnyTimes()
	require.NoError(t, f.orchestrator.Join(connA, chat.JoinRequest{Username: "alice", Room: "lobby"}))
	require.NoError(t, f.orchestrator.Join(connB, chat.JoinRequest{Username: "bob", Room: "lobby"}))
	require.NoError(t, f.orchestrator.Join(connC, chat.JoinRequest{Username: "carol", Room: "garden"}))

	ctrl := gomock.NewController(t)
	broadcaster := mocks.NewMockBroadcaster(ctrl)
	orchestrator := chat.NewOrchestrator(logs.GetLoggerFromLevel(slog.LevelDebug), f.registry, f.formatter, f.filter, broadcaster)

	f.filter.EXPECT().IsProfane("hello lobby").Return(false)
	broadcaster.EXPECT().Send([]string{connA, connB}, text("alice", "hello lobby"))

	require.NoError(t, orchestrator.SendMessage(connA, "hello lobby"))
}

func TestOrchestrator_SendMessage_Profane(t *testing.T) {
	f := newFixture(t)
	f.broadcaster.EXPECT().Send(gomock.Any(), gomock.Any()).Times(2)
	require.NoError(t, f.orchestrator.Join(connA, chat.JoinRequest{Username: "alice", Room: "lobby"}))

	// No further Send is expected: the controller fails the test on any broadcast.
	f.filter.EXPECT().IsProfane("some bad words").Return(true)

	err := f.orchestrator.SendMessage(connA, "some bad words")

	require.ErrorIs(t, err, chaterr.ErrContentRejected)
	require.Equal(t, chaterr.MsgProfanity, err.Error())
}

func TestOrchestrator_ActionsWithoutSession(t *testing.T) {
	f := newFixture(t)

	err := f.orchestrator.SendMessage(connA, "hello?")
	require.ErrorIs(t, err, chaterr.ErrSessionNotFound)
	require.Equal(t, chaterr.MsgNotJoined, err.Error())

	err = f.orchestrator.SendLocation(connA, chat.Location{Lat: 1, Long: 2})
	require.ErrorIs(t, err, chaterr.ErrSessionNotFound)

	// Disconnect before join never broadcasts
	f.orchestrator.Disconnect(connA)
}

func TestOrchestrator_GhostSessionAfterDisconnect(t *testing.T) {
	f := newFixture(t)
	f.broadcaster.EXPECT().Send(gomock.Any(), gomock.Any()).Times(2)
	require.NoError(t, f.orchestrator.Join(connA, chat.JoinRequest{Username: "alice", Room: "lobby"}))

	// Last member leaving: nobody left to notify
	f.orchestrator.Disconnect(connA)
	f.orchestrator.Disconnect(connA)

	err := f.orchestrator.SendMessage(connA, "still there?")
	require.ErrorIs(t, err, chaterr.ErrSessionNotFound)
}

func TestOrchestrator_SendLocation_OutOfRange(t *testing.T) {
	f := newFixture(t)
	f.broadcaster.EXPECT().Send(gomock.Any(), gomock.Any()).Times(2)
	require.NoError(t, f.orchestrator.Join(connA, chat.JoinRequest{Username: "alice", Room: "lobby"}))

	for _, loc := range []chat.Location{{Lat: 91, Long: 0}, {Lat: -90.5, Long: 0}, {Lat: 0, Long: 180.1}, {Lat: 0, Long: -181}} {
		err := f.orchestrator.SendLocation(connA, loc)
		require.ErrorIs(t, err, chaterr.ErrValidation, "location=%+v", loc)
		require.Equal(t, chaterr.MsgInvalidLocation, err.Error())
	}
}
