package domain

import "encoding/json"

// Event is a single real-time event read from the datafeed.
type Event struct {
	ID        string          `json:"id"`
	MessageID string          `json:"messageId,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Type      string          `json:"type"`
	Initiator *Initiator      `json:"initiator,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Initiator identifies who caused the event.
type Initiator struct {
	User *User `json:"user,omitempty"`
}

// User is the subset of user attributes carried by events.
type User struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Username    string `json:"username,omitempty"`
}

// InitiatorUsername returns the username of the initiating user, or "" if unknown.
func (e *Event) InitiatorUsername() string {
	if e == nil || e.Initiator == nil || e.Initiator.User == nil {
		return ""
	}
	return e.Initiator.User.Username
}

// EventType is the closed set of datafeed event types this build understands.
type EventType string

const (
	EventTypeUnknown                    EventType = ""
	EventTypeMessageSent                EventType = "MESSAGESENT"
	EventTypeMessageSuppressed          EventType = "MESSAGESUPPRESSED"
	EventTypeSymphonyElementsAction     EventType = "SYMPHONYELEMENTSACTION"
	EventTypeSharedPost                 EventType = "SHAREDPOST"
	EventTypeInstantMessageCreated      EventType = "INSTANTMESSAGECREATED"
	EventTypeRoomCreated                EventType = "ROOMCREATED"
	EventTypeRoomUpdated                EventType = "ROOMUPDATED"
	EventTypeRoomDeactivated            EventType = "ROOMDEACTIVATED"
	EventTypeRoomReactivated            EventType = "ROOMREACTIVATED"
	EventTypeUserRequestedToJoinRoom    EventType = "USERREQUESTEDTOJOINROOM"
	EventTypeUserJoinedRoom             EventType = "USERJOINEDROOM"
	EventTypeUserLeftRoom               EventType = "USERLEFTROOM"
	EventTypeRoomMemberPromotedToOwner  EventType = "ROOMMEMBERPROMOTEDTOOWNER"
	EventTypeRoomMemberDemotedFromOwner EventType = "ROOMMEMBERDEMOTEDFROMOWNER"
	EventTypeConnectionRequested        EventType = "CONNECTIONREQUESTED"
	EventTypeConnectionAccepted         EventType = "CONNECTIONACCEPTED"
)

var knownEventTypes = map[EventType]struct{}{
	EventTypeMessageSent:                {},
	EventTypeMessageSuppressed:          {},
	EventTypeSymphonyElementsAction:     {},
	EventTypeSharedPost:                 {},
	EventTypeInstantMessageCreated:      {},
	EventTypeRoomCreated:                {},
	EventTypeRoomUpdated:                {},
	EventTypeRoomDeactivated:            {},
	EventTypeRoomReactivated:            {},
	EventTypeUserRequestedToJoinRoom:    {},
	EventTypeUserJoinedRoom:             {},
	EventTypeUserLeftRoom:               {},
	EventTypeRoomMemberPromotedToOwner:  {},
	EventTypeRoomMemberDemotedFromOwner: {},
	EventTypeConnectionRequested:        {},
	EventTypeConnectionAccepted:         {},
}

// ParseEventType resolves a raw type tag. Tags introduced by the remote system after
// this build resolve to EventTypeUnknown, false.
func ParseEventType(raw string) (EventType, bool) {
	t := EventType(raw)
	if _, ok := knownEventTypes[t]; !ok {
		return EventTypeUnknown, false
	}
	return t, true
}

// EventTypes returns every known event type.
func EventTypes() []EventType {
	out := make([]EventType, 0, len(knownEventTypes))
	for t := range knownEventTypes {
		out = append(out, t)
	}
	return out
}
