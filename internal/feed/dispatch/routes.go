package dispatch

import (
	"context"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/feed/listener"
)

type handlerFunc func(l listener.Listener, ctx context.Context, event *domain.Event) error

// routes maps each known event type to the listener method handling it.
var routes = map[domain.EventType]handlerFunc{
	domain.EventTypeMessageSent:                listener.Listener.OnMessageSent,
	domain.EventTypeMessageSuppressed:          listener.Listener.OnMessageSuppressed,
	domain.EventTypeSymphonyElementsAction:     listener.Listener.OnSymphonyElementsAction,
	domain.EventTypeSharedPost:                 listener.Listener.OnSharedPost,
	domain.EventTypeInstantMessageCreated:      listener.Listener.OnInstantMessageCreated,
	domain.EventTypeRoomCreated:                listener.Listener.OnRoomCreated,
	domain.EventTypeRoomUpdated:                listener.Listener.OnRoomUpdated,
	domain.EventTypeRoomDeactivated:            listener.Listener.OnRoomDeactivated,
	domain.EventTypeRoomReactivated:            listener.Listener.OnRoomReactivated,
	domain.EventTypeUserRequestedToJoinRoom:    listener.Listener.OnUserRequestedToJoinRoom,
	domain.EventTypeUserJoinedRoom:             listener.Listener.OnUserJoinedRoom,
	domain.EventTypeUserLeftRoom:               listener.Listener.OnUserLeftRoom,
	domain.EventTypeRoomMemberPromotedToOwner:  listener.Listener.OnRoomMemberPromotedToOwner,
	domain.EventTypeRoomMemberDemotedFromOwner: listener.Listener.OnRoomMemberDemotedFromOwner,
	domain.EventTypeConnectionRequested:        listener.Listener.OnConnectionRequested,
	domain.EventTypeConnectionAccepted:         listener.Listener.OnConnectionAccepted,
}

// route resolves a raw type tag to its handler.
func route(raw string) (domain.EventType, handlerFunc, bool) {
	t, ok := domain.ParseEventType(raw)
	if !ok {
		return domain.EventTypeUnknown, nil, false
	}
	h, ok := routes[t]
	return t, h, ok
}
