package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"feedhub/internal/models"
)

// FanoutChannel is the Redis channel fanout events are published on.
// Every server instance subscribes so its connected websocket clients get
// pushed to regardless of which instance performed the insert.
const FanoutChannel = "feedhub:fanout"

// FanoutEvent is the cross-instance broadcast emitted after each insert.
// The note travels in its dense serialized form.
type FanoutEvent struct {
	Recipients []string        `json:"recipients"`
	Note       json.RawMessage `json:"note"`
}

// PubSubService bridges fanout inserts to the live push layer via Redis.
type PubSubService struct {
	redis  *RedisService
	pubsub *redis.PubSub

	mu       sync.RWMutex
	handlers []func(*FanoutEvent)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPubSubService creates the pub/sub bridge.
func NewPubSubService(redisService *RedisService) *PubSubService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubService{
		redis:  redisService,
		ctx:    ctx,
		cancel: cancel,
	}
}

// PublishFanout pushes a fanout event to all instances. Implements
// FanoutPublisher.
func (s *PubSubService) PublishFanout(ctx context.Context, note *models.Notification, audience []models.Entity) error {
	raw, err := note.Serialize()
	if err != nil {
		return err
	}
	event := FanoutEvent{
		Recipients: models.EntityList(audience).Strings(),
		Note:       raw,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.redis.Client().Publish(ctx, FanoutChannel, payload).Err()
}

// OnFanout registers a handler for incoming fanout events.
func (s *PubSubService) OnFanout(handler func(*FanoutEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins listening for fanout events.
func (s *PubSubService) Start() error {
	client := s.redis.Client()
	s.pubsub = client.Subscribe(s.ctx, FanoutChannel)

	if _, err := s.pubsub.Receive(s.ctx); err != nil {
		return err
	}

	go s.processMessages()
	log.Println("Pub/sub fanout listener started")
	return nil
}

func (s *PubSubService) processMessages() {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event FanoutEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Dropping malformed fanout event: %v", err)
				continue
			}
			s.mu.RLock()
			handlers := append([]func(*FanoutEvent){}, s.handlers...)
			s.mu.RUnlock()
			for _, handler := range handlers {
				handler(&event)
			}
		}
	}
}

// Stop shuts the listener down.
func (s *PubSubService) Stop() {
	s.cancel()
	if s.pubsub != nil {
		s.pubsub.Close()
	}
}
