package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/King47-code/safe-ride-backend/internal/models"
	"github.com/King47-code/safe-ride-backend/internal/observability"
)

// LocationSink receives live driver positions arriving over the socket so
// they can feed the geo index and the location pipeline.
type LocationSink interface {
	Record(ctx context.Context, loc models.DriverLocation)
}

// RoomKey names the chat room for one ride.
func RoomKey(rideID string) string { return "ride_" + rideID }

// envelope is one unit of fan-out work. An empty room means every
// connection; otherwise only the room's members.
type envelope struct {
	room    string
	payload []byte
}

// Hub fans events out to connected clients. Ride lifecycle events go to
// everyone; chat stays inside its ride room. Delivery is best effort and
// at-most-once: there is no replay, the REST surface remains the source
// of truth.
type Hub struct {
	Registry  *Registry
	Logger    *slog.Logger
	Locations LocationSink // optional

	queue chan envelope
}

func New(reg *Registry, logger *slog.Logger) *Hub {
	return &Hub{
		Registry: reg,
		Logger:   logger,
		queue:    make(chan envelope, 256),
	}
}

// Run drains the event queue until ctx is cancelled. Start it exactly once,
// on its own goroutine, before the first Broadcast.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-h.queue:
			h.deliver(env)
		}
	}
}

// Broadcast queues v for every connection. It never blocks: when the queue
// is full the event is dropped and counted.
func (h *Hub) Broadcast(v any) { h.enqueue("", v) }

// BroadcastRoom queues v for the members of room only.
func (h *Hub) BroadcastRoom(room string, v any) { h.enqueue(room, v) }

// Join adds the client to a room. Membership dies with the connection.
func (h *Hub) Join(c *Client, room string) { h.Registry.join(c, room) }

func (h *Hub) enqueue(room string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.Logger.Error("event marshal failed", "error", err)
		return
	}
	select {
	case h.queue <- envelope{room: room, payload: payload}:
	default:
		observability.EventsDropped.Inc()
		h.Logger.Warn("event queue full, dropping event", "room", room)
	}
}

func (h *Hub) deliver(env envelope) {
	var targets []*Client
	if env.room == "" {
		targets = h.Registry.all()
	} else {
		targets = h.Registry.room(env.room)
	}
	for _, c := range targets {
		c.trySend(env.payload)
	}
}
