package chat

import (
	"github.com/samber/lo"

	"github.com/Tyrowin/roomchat/internal/message"
	"github.com/Tyrowin/roomchat/internal/session"
)

// Inbound event names.
const (
	EventJoin         = "join"
	EventSendMessage  = "sendMessage"
	EventSendLocation = "sendLocation"
)

// Outbound event names.
const (
	EventMessage         = "message"
	EventLocationMessage = "locationMessage"
	EventRoomData        = "roomData"
)

// Event is an outbound event ready to be encoded by the transport.
type Event struct {
	Name    string
	Payload any
}

// JoinRequest is the payload of a join event.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// Location is the payload of a sendLocation event.
type Location struct {
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Long float64 `json:"long" validate:"gte=-180,lte=180"`
}

// Member is one entry of a room snapshot.
type Member struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomData is the membership snapshot sent after every membership change.
type RoomData struct {
	Room  string   `json:"room"`
	Users []Member `json:"users"`
}

func textEvent(env message.Envelope) Event {
	return Event{Name: EventMessage, Payload: env.TextView()}
}

func locationEvent(env message.Envelope) Event {
	return Event{Name: EventLocationMessage, Payload: env.LocationView()}
}

func roomDataEvent(room string, members []session.Session) Event {
	users := lo.Map(members, func(s session.Session, _ int) Member {
		return Member{Username: s.Username, Room: s.Room}
	})
	return Event{Name: EventRoomData, Payload: RoomData{Room: room, Users: users}}
}

func connectionIDs(members []session.Session) []string {
	return lo.Map(members, func(s session.Session, _ int) string {
		return s.ConnectionID
	})
}

func connectionIDsExcept(members []session.Session, connectionID string) []string {
	return lo.Without(connectionIDs(members), connectionID)
}
