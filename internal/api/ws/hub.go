// Package ws pushes live recognition output to WebSocket clients. The
// hub is wired into the recognition loop as a sink, so every frame
// result and enrollment lands on connected dashboards as it happens.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/observability"
	"github.com/SYNOVA-LABS/ADA/pkg/dto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a connected WebSocket client.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains active WebSocket clients and broadcasts recognition
// output to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			observability.WSConnections.Dec()
			slog.Debug("ws client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client buffer full, disconnect it
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// OnFrame broadcasts one frame's recognition output. Implements the
// recognition loop's sink contract.
func (h *Hub) OnFrame(result models.FrameResult) {
	h.push(dto.WSMessage{Type: "frame", Frame: frameUpdate(result)})
}

// OnEnrollment broadcasts a newly created identity.
func (h *Hub) OnEnrollment(enr models.Enrollment) {
	h.push(dto.WSMessage{Type: "enrollment", Enrollment: enrollmentEvent(enr)})
}

func (h *Hub) push(msg dto.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal ws message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Hub congested; frame updates are disposable
	}
}

func frameUpdate(result models.FrameResult) *dto.FrameUpdate {
	upd := &dto.FrameUpdate{
		Index:     result.Frame.Index,
		Timestamp: result.Frame.Timestamp.Format(time.RFC3339Nano),
		Width:     result.Frame.Width,
		Height:    result.Frame.Height,
		Sampled:   result.Sampled,
	}
	for _, obs := range result.Observations {
		upd.Faces = append(upd.Faces, dto.FaceUpdate{
			TrackID:     obs.TrackID,
			BBox:        obs.BBox,
			Confidence:  obs.Confidence,
			Known:       obs.Known,
			IdentityID:  obs.IdentityID,
			Name:        obs.Label.Name,
			Placeholder: obs.Label.Placeholder,
			Access:      string(obs.Access),
			Distance:    obs.Distance,
			Enrolled:    obs.Enrolled,
		})
	}
	return upd
}

func enrollmentEvent(enr models.Enrollment) *dto.EnrollmentEvent {
	ident := enr.Identity
	resp := dto.IdentityResponse{
		ID:          ident.ID,
		Name:        ident.Label.Name,
		Placeholder: ident.Label.Placeholder,
		Access:      string(ident.Access),
		CreatedAt:   ident.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if ident.ImageKey != "" {
		resp.ImageURL = "/v1/identities/" + ident.ID.String() + "/image"
	}
	return &dto.EnrollmentEvent{
		Identity:  resp,
		TrackID:   enr.TrackID,
		Timestamp: enr.Timestamp.Format(time.RFC3339Nano),
	}
}

// HandleWS handles WebSocket upgrade requests.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// We don't process incoming messages from clients.
		// This loop exists to detect disconnection.
	}
}
