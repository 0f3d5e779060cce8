// Package jobs holds the scheduled maintenance work for the feed store.
package jobs

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"feedhub/internal/database"
)

// RetentionSweepJob deletes notifications that expired long enough ago
// that no feed query can ever return them again. Live and freshly expired
// documents are never touched; only documents past the retention window go.
type RetentionSweepJob struct {
	mongoDB       *database.MongoDB
	notifications *mongo.Collection
	retentionDays int
}

// NewRetentionSweepJob creates a retention sweep over the notification store.
func NewRetentionSweepJob(mongoDB *database.MongoDB, retentionDays int) *RetentionSweepJob {
	var notifications *mongo.Collection
	if mongoDB != nil {
		notifications = mongoDB.Collection(database.CollectionNotifications)
	}
	return &RetentionSweepJob{
		mongoDB:       mongoDB,
		notifications: notifications,
		retentionDays: retentionDays,
	}
}

// Run executes one sweep pass.
func (j *RetentionSweepJob) Run(ctx context.Context) error {
	if j.mongoDB == nil || j.retentionDays <= 0 {
		log.Println("[SWEEP] Retention sweep disabled")
		return nil
	}

	start := time.Now()
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays).UnixMilli()

	result, err := j.notifications.DeleteMany(ctx, bson.M{
		"expires": bson.M{"$lt": cutoff},
	})
	if err != nil {
		log.Printf("[SWEEP] Retention sweep failed: %v", err)
		return err
	}

	log.Printf("[SWEEP] Deleted %d notifications expired before %d in %v",
		result.DeletedCount, cutoff, time.Since(start))
	return nil
}
