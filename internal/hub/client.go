package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/King47-code/safe-ride-backend/internal/geo"
	"github.com/King47-code/safe-ride-backend/internal/models"
	"github.com/King47-code/safe-ride-backend/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second // must stay below pongWait
	maxMessageSize = 8 << 10
	sendBuffer     = 32
)

// Client is one live websocket connection and its authenticated identity.
type Client struct {
	UserID string
	Role   models.Role

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// inbound is the flat client-to-server message shape. Unused fields stay
// zero for events that do not carry them.
type inbound struct {
	Event   string  `json:"event"`
	RideID  string  `json:"rideId"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Message string  `json:"message"`
}

type locationEvent struct {
	Event  string  `json:"event"`
	UserID string  `json:"userId"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

type chatEvent struct {
	Event   string `json:"event"`
	RideID  string `json:"rideId"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// Attach wraps an upgraded connection, registers it and starts the read and
// write pumps. The caller must have authenticated the user already.
func (h *Hub) Attach(conn *websocket.Conn, userID string, role models.Role) *Client {
	c := &Client{
		UserID: userID,
		Role:   role,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	h.Registry.add(c)
	go c.writePump()
	go c.readPump()
	return c
}

// trySend hands the payload to the write pump without blocking. A slow
// client simply misses the event. The send channel is never closed, so a
// delivery racing a disconnect lands in a buffer nobody drains.
func (c *Client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		observability.EventsDropped.Inc()
	}
}

func (c *Client) close() {
	if c.hub.Registry.remove(c) {
		close(c.done)
	}
	_ = c.conn.Close()
}

func (c *Client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.Logger.Debug("socket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.handleInbound(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleInbound(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.Logger.Debug("unparseable client message", "user_id", c.UserID, "error", err)
		return
	}
	switch msg.Event {
	case models.EventJoinRide:
		if msg.RideID == "" {
			return
		}
		c.hub.Join(c, RoomKey(msg.RideID))
	case models.EventDriverLocation:
		c.handleLocation(msg)
	case models.EventChatMessage:
		c.handleChat(msg)
	default:
		c.hub.Logger.Debug("unknown client event", "event", msg.Event, "user_id", c.UserID)
	}
}

// handleLocation feeds a driver position into the location pipeline and
// rebroadcasts it to everyone. Non-driver senders and junk coordinates are
// dropped silently; a misbehaving client gets no error channel to probe.
func (c *Client) handleLocation(msg inbound) {
	if c.Role != models.RoleDriver {
		return
	}
	loc := models.Coordinate{Lat: msg.Lat, Lng: msg.Lng}
	if err := geo.ValidateCoordinate(loc); err != nil {
		return
	}
	if c.hub.Locations != nil {
		c.hub.Locations.Record(context.Background(), models.DriverLocation{
			DriverID: c.UserID,
			Loc:      loc,
			Online:   true,
			Updated:  time.Now().UTC(),
		})
	}
	c.hub.Broadcast(locationEvent{
		Event:  models.EventDriverLocation,
		UserID: c.UserID,
		Lat:    msg.Lat,
		Lng:    msg.Lng,
	})
}

// handleChat relays a message to the ride's room. The sender must have
// joined the room first; without that check any client could spray chat
// into rides it has no part in.
func (c *Client) handleChat(msg inbound) {
	if msg.RideID == "" || msg.Message == "" {
		return
	}
	room := RoomKey(msg.RideID)
	if !c.hub.Registry.inRoom(c, room) {
		c.hub.Logger.Debug("chat for unjoined ride dropped", "user_id", c.UserID, "ride_id", msg.RideID)
		return
	}
	c.hub.BroadcastRoom(room, chatEvent{
		Event:   models.EventChatMessage,
		RideID:  msg.RideID,
		UserID:  c.UserID,
		Message: msg.Message,
	})
}
