package services

import (
	"log"
	"sync"

	"feedhub/internal/models"
)

// ConnectionManager tracks all live feed subscriptions. Connections are
// indexed by recipient so fanout events can be pushed without scanning.
type ConnectionManager struct {
	connections map[string]*models.FeedConnection
	byRecipient map[string]map[string]*models.FeedConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.FeedConnection),
		byRecipient: make(map[string]map[string]*models.FeedConnection),
	}
}

// Add registers a new connection.
func (cm *ConnectionManager) Add(conn *models.FeedConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	if cm.byRecipient[conn.Recipient] == nil {
		cm.byRecipient[conn.Recipient] = make(map[string]*models.FeedConnection)
	}
	cm.byRecipient[conn.Recipient][conn.ConnID] = conn
	log.Printf("Feed connection added: %s feed=%s (total: %d)", conn.ConnID, conn.Recipient, len(cm.connections))
}

// Remove drops a connection and closes its write channel.
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	conn, exists := cm.connections[connID]
	if !exists {
		return
	}
	conn.CloseWrites()
	delete(cm.connections, connID)
	if recips := cm.byRecipient[conn.Recipient]; recips != nil {
		delete(recips, connID)
		if len(recips) == 0 {
			delete(cm.byRecipient, conn.Recipient)
		}
	}
	log.Printf("Feed connection removed: %s (total: %d)", connID, len(cm.connections))
}

// Get retrieves a connection by ID.
func (cm *ConnectionManager) Get(connID string) (*models.FeedConnection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, exists := cm.connections[connID]
	return conn, exists
}

// Count returns the number of active connections.
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// ForRecipients returns every connection subscribed to any of the given
// recipient feeds.
func (cm *ConnectionManager) ForRecipients(recipients []string) []*models.FeedConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	seen := make(map[string]bool)
	var conns []*models.FeedConnection
	for _, recipient := range recipients {
		for connID, conn := range cm.byRecipient[recipient] {
			if seen[connID] {
				continue
			}
			seen[connID] = true
			conns = append(conns, conn)
		}
	}
	return conns
}

// Push delivers a message to every subscriber of the given feeds.
func (cm *ConnectionManager) Push(recipients []string, msg models.PushMessage) {
	for _, conn := range cm.ForRecipients(recipients) {
		if !conn.SafeSend(msg) {
			log.Printf("Push dropped for slow connection %s", conn.ConnID)
		}
	}
}
