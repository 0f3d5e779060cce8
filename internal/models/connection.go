package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// PushMessage is the frame sent to a connected feed client.
type PushMessage struct {
	Type   string      `json:"type"`
	Feed   string      `json:"feed,omitempty"`
	Note   interface{} `json:"note,omitempty"`
	Error  string      `json:"error,omitempty"`
	Unseen int64       `json:"unseen,omitempty"`
}

// FeedConnection is a live websocket subscription to one recipient feed.
type FeedConnection struct {
	ConnID    string
	Recipient string
	Conn      *websocket.Conn
	CreatedAt time.Time
	WriteChan chan PushMessage
	Mutex     sync.Mutex

	closeOnce sync.Once
}

// CloseWrites shuts the write channel down exactly once.
func (fc *FeedConnection) CloseWrites() {
	fc.closeOnce.Do(func() {
		close(fc.WriteChan)
	})
}

// SafeSend sends a message without panicking if the connection is closing.
func (fc *FeedConnection) SafeSend(msg PushMessage) bool {
	defer func() {
		recover()
	}()
	select {
	case fc.WriteChan <- msg:
		return true
	default:
		return false
	}
}
