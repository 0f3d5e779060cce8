// Package kafka consumes notification events published by upstream
// platform services and feeds them into the fanout pipeline.
package kafka

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/segmentio/kafka-go"

	"feedhub/internal/models"
	"feedhub/internal/services"
)

// Consumer reads dense-form notifications off one or more topics. One
// reader goroutine runs per topic; all share a consumer group so multiple
// server instances split partitions.
type Consumer struct {
	brokers             []string
	topics              []string
	groupID             string
	notificationService *services.NotificationService

	readers []*kafka.Reader
	wg      sync.WaitGroup
}

// NewConsumer creates a consumer over the given topics.
func NewConsumer(brokers, topics []string, groupID string, notificationService *services.NotificationService) *Consumer {
	return &Consumer{
		brokers:             brokers,
		topics:              topics,
		groupID:             groupID,
		notificationService: notificationService,
	}
}

// Start launches one reader per topic. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	for _, topic := range c.topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.brokers,
			Topic:    topic,
			GroupID:  c.groupID,
			MaxBytes: 10e6, // 10MB
		})
		c.readers = append(c.readers, reader)

		c.wg.Add(1)
		go func(reader *kafka.Reader, topic string) {
			defer c.wg.Done()
			c.consume(ctx, reader, topic)
		}(reader, topic)
	}
	c.wg.Wait()
}

// Close shuts all readers down.
func (c *Consumer) Close() {
	for _, reader := range c.readers {
		reader.Close()
	}
}

func (c *Consumer) consume(ctx context.Context, reader *kafka.Reader, topic string) {
	log.Printf("Kafka consumer started: topic=%s group=%s", topic, c.groupID)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				log.Printf("Kafka consumer stopped: topic=%s", topic)
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			if m := services.GetMetrics(); m != nil {
				m.RecordKafkaMessage(topic, "failed")
			}
			continue
		}
		c.handle(ctx, topic, msg.Value)
	}
}

// handle decodes one dense-form notification and routes it. A malformed
// message is logged and dropped; it would never decode on retry either.
func (c *Consumer) handle(ctx context.Context, topic string, payload []byte) {
	note, err := models.Deserialize(payload)
	if err != nil {
		log.Printf("Dropping malformed notification from %s: %v", topic, err)
		if m := services.GetMetrics(); m != nil {
			m.RecordKafkaMessage(topic, "invalid")
		}
		return
	}

	if err := c.notificationService.RouteAndStore(ctx, note); err != nil {
		log.Printf("Failed to store notification %s from %s: %v", note.ID, topic, err)
		if m := services.GetMetrics(); m != nil {
			m.RecordKafkaMessage(topic, "failed")
		}
		return
	}
	if m := services.GetMetrics(); m != nil {
		m.RecordKafkaMessage(topic, "ok")
	}
}
