package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 2048

	locationWriteTimeout = 5 * time.Second
)

// Client represents a WebSocket client connection
type Client struct {
	UserID   string
	UserRole string // "driver" or "admin"
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// LocationPayload is the body of a location_update frame
type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Heading   *float64 `json:"heading"`
	Speed     *float64 `json:"speed"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

func NewClient(userID, userRole string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID:   userID,
		UserRole: userRole,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, 256),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg IncomingMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Invalid message format: %v", err)
		return
	}

	switch msg.Type {
	case "ping":
		response, _ := json.Marshal(map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		select {
		case c.send <- response:
		default:
		}

	case "location_update":
		if c.UserRole != models.RoleDriver {
			return
		}
		var p LocationPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			log.Printf("❌ Invalid location_update from %s: %v", c.UserID, err)
			return
		}
		c.handleLocationUpdate(p)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleLocationUpdate stores the driver's position and relays it to managers
func (c *Client) handleLocationUpdate(p LocationPayload) {
	if c.hub.locations == nil {
		return
	}
	if p.Latitude == nil || p.Longitude == nil {
		log.Printf("❌ location_update from %s without coordinates", c.UserID)
		return
	}

	loc := &models.DriverLocation{
		DriverID:  c.UserID,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Heading:   p.Heading,
		Speed:     p.Speed,
		Accuracy:  p.Accuracy,
		Timestamp: p.Timestamp,
	}

	ctx, cancel := context.WithTimeout(context.Background(), locationWriteTimeout)
	defer cancel()
	if err := c.hub.locations.Update(ctx, loc); err != nil {
		log.Printf("❌ Error saving location for driver %s: %v", c.UserID, err)
		return
	}

	c.hub.BroadcastToRole(models.RoleAdmin, Envelope{Type: "driver_location_update", Data: loc})
}
