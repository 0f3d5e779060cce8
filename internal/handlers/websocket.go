package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"feedhub/internal/models"
	"feedhub/internal/services"
)

// WebSocketHandler pushes live feed updates to connected clients.
type WebSocketHandler struct {
	connManager *services.ConnectionManager
	feedService *services.FeedService
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(connManager *services.ConnectionManager, feedService *services.FeedService) *WebSocketHandler {
	return &WebSocketHandler{
		connManager: connManager,
		feedService: feedService,
	}
}

// Handle handles a new WebSocket feed subscription. Auth middleware ran on
// the upgrade request, so user_id is already validated.
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	recipient, err := models.NewEntity(userID, models.EntityUser)
	if err != nil {
		c.WriteJSON(models.PushMessage{Type: "error", Error: "invalid user identity"})
		c.Close()
		return
	}

	conn := &models.FeedConnection{
		ConnID:    uuid.New().String(),
		Recipient: recipient.String(),
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.PushMessage, 64),
	}

	done := make(chan struct{})
	h.connManager.Add(conn)
	defer func() {
		close(done)
		h.connManager.Remove(conn.ConnID)
	}()

	c.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	go h.pingLoop(conn, done)
	go h.writeLoop(conn)

	// Greet with the current unseen count so clients can badge immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	unseen, err := h.feedService.ForRecipient(recipient).UnseenCount(ctx)
	cancel()
	if err != nil {
		log.Printf("Unseen count failed for %s: %v", conn.ConnID, err)
	}
	conn.SafeSend(models.PushMessage{Type: "connected", Feed: conn.Recipient, Unseen: unseen})

	h.readLoop(conn)
}

// Deliver pushes a fanout event to every connected subscriber of the
// affected feeds. Registered as a PubSubService handler.
func (h *WebSocketHandler) Deliver(event *services.FanoutEvent) {
	note, err := models.Deserialize(event.Note)
	if err != nil {
		log.Printf("Dropping undecodable fanout push: %v", err)
		return
	}
	h.connManager.Push(event.Recipients, models.PushMessage{
		Type: "notification",
		Note: note.UserView(),
	})
}

func (h *WebSocketHandler) pingLoop(conn *models.FeedConnection, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.Mutex.Lock()
			err := conn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			conn.Mutex.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) readLoop(conn *models.FeedConnection) {
	for {
		_, _, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error for %s: %v", conn.ConnID, err)
			}
			return
		}
		conn.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}

func (h *WebSocketHandler) writeLoop(conn *models.FeedConnection) {
	defer func() {
		recover()
	}()
	for msg := range conn.WriteChan {
		conn.Mutex.Lock()
		err := conn.Conn.WriteJSON(msg)
		conn.Mutex.Unlock()
		if err != nil {
			log.Printf("WebSocket write error for %s: %v", conn.ConnID, err)
			return
		}
	}
}
