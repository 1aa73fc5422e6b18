package listener

import (
	"context"
	"log/slog"

	"github.com/vietddude/datafeed/internal/core/domain"
)

// Logging writes every accepted event to a slog logger. It is subscribed by the CLI so a
// bare deployment shows what the feed delivers.
type Logging struct {
	Base
	log *slog.Logger
}

// NewLogging creates a logging listener. A nil logger uses slog.Default().
func NewLogging(log *slog.Logger) *Logging {
	if log == nil {
		log = slog.Default()
	}
	return &Logging{log: log.With("component", "logging_listener")}
}

func (l *Logging) record(ctx context.Context, event *domain.Event) error {
	l.log.InfoContext(ctx, "Event received",
		"id", event.ID,
		"type", event.Type,
		"initiator", event.InitiatorUsername(),
		"timestamp", event.Timestamp,
	)
	return nil
}

func (l *Logging) OnMessageSent(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnMessageSuppressed(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnSymphonyElementsAction(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnSharedPost(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnInstantMessageCreated(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnRoomCreated(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnRoomUpdated(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnRoomDeactivated(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnRoomReactivated(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnUserRequestedToJoinRoom(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnUserJoinedRoom(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnUserLeftRoom(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnRoomMemberPromotedToOwner(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnRoomMemberDemotedFromOwner(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnConnectionRequested(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}

func (l *Logging) OnConnectionAccepted(ctx context.Context, e *domain.Event) error {
	return l.record(ctx, e)
}
