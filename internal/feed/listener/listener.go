// Package listener defines the datafeed listener capability and the registry that
// holds the listeners subscribed to a datafeed loop.
package listener

import (
	"context"

	"github.com/vietddude/datafeed/internal/core/domain"
)

// Listener reacts to datafeed events. Accepts filters events before any handler runs;
// exactly one handler is invoked per accepted event, chosen by the event type.
//
// Implementations must be comparable (typically pointers) since the registry uses
// reference equality to unsubscribe them.
type Listener interface {
	// Accepts reports whether the listener wants the event. identity is the username
	// the loop reads the feed as.
	Accepts(event *domain.Event, identity string) bool

	OnMessageSent(ctx context.Context, event *domain.Event) error
	OnMessageSuppressed(ctx context.Context, event *domain.Event) error
	OnSymphonyElementsAction(ctx context.Context, event *domain.Event) error
	OnSharedPost(ctx context.Context, event *domain.Event) error
	OnInstantMessageCreated(ctx context.Context, event *domain.Event) error
	OnRoomCreated(ctx context.Context, event *domain.Event) error
	OnRoomUpdated(ctx context.Context, event *domain.Event) error
	OnRoomDeactivated(ctx context.Context, event *domain.Event) error
	OnRoomReactivated(ctx context.Context, event *domain.Event) error
	OnUserRequestedToJoinRoom(ctx context.Context, event *domain.Event) error
	OnUserJoinedRoom(ctx context.Context, event *domain.Event) error
	OnUserLeftRoom(ctx context.Context, event *domain.Event) error
	OnRoomMemberPromotedToOwner(ctx context.Context, event *domain.Event) error
	OnRoomMemberDemotedFromOwner(ctx context.Context, event *domain.Event) error
	OnConnectionRequested(ctx context.Context, event *domain.Event) error
	OnConnectionAccepted(ctx context.Context, event *domain.Event) error
}

// Base is meant to be embedded. It accepts every event not initiated by the identity
// itself and ignores every event type.
type Base struct{}

var _ Listener = (*Base)(nil)

// Accepts drops events the bot generated itself.
func (Base) Accepts(event *domain.Event, identity string) bool {
	return event.InitiatorUsername() != identity
}

func (Base) OnMessageSent(context.Context, *domain.Event) error                { return nil }
func (Base) OnMessageSuppressed(context.Context, *domain.Event) error          { return nil }
func (Base) OnSymphonyElementsAction(context.Context, *domain.Event) error     { return nil }
func (Base) OnSharedPost(context.Context, *domain.Event) error                 { return nil }
func (Base) OnInstantMessageCreated(context.Context, *domain.Event) error      { return nil }
func (Base) OnRoomCreated(context.Context, *domain.Event) error                { return nil }
func (Base) OnRoomUpdated(context.Context, *domain.Event) error                { return nil }
func (Base) OnRoomDeactivated(context.Context, *domain.Event) error            { return nil }
func (Base) OnRoomReactivated(context.Context, *domain.Event) error            { return nil }
func (Base) OnUserRequestedToJoinRoom(context.Context, *domain.Event) error    { return nil }
func (Base) OnUserJoinedRoom(context.Context, *domain.Event) error             { return nil }
func (Base) OnUserLeftRoom(context.Context, *domain.Event) error               { return nil }
func (Base) OnRoomMemberPromotedToOwner(context.Context, *domain.Event) error  { return nil }
func (Base) OnRoomMemberDemotedFromOwner(context.Context, *domain.Event) error { return nil }
func (Base) OnConnectionRequested(context.Context, *domain.Event) error        { return nil }
func (Base) OnConnectionAccepted(context.Context, *domain.Event) error         { return nil }
