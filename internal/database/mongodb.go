package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Collection names
const (
	CollectionNotifications = "notifications"
)

// NewMongoDB creates a new MongoDB connection with connection pooling
func NewMongoDB(uri string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	if dbName == "" {
		dbName = "feedhub"
	}

	db := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	log.Printf("Connected to MongoDB database: %s", dbName)

	return db, nil
}

// extractDBName extracts the database name from MongoDB URI
func extractDBName(uri string) string {
	// mongodb://localhost:27017/feedhub?authSource=admin -> feedhub
	lastSlash := -1
	questionMark := -1

	for i, c := range uri {
		if c == '/' {
			lastSlash = i
		}
		if c == '?' && questionMark == -1 {
			questionMark = i
		}
	}

	if lastSlash != -1 {
		start := lastSlash + 1
		end := len(uri)
		if questionMark != -1 && questionMark > lastSlash {
			end = questionMark
		}
		if start < end {
			return uri[start:end]
		}
	}

	return "feedhub"
}

// Initialize creates the indexes every timeline query leans on. All queries
// are recipient-scoped first, so `users` leads each compound index.
func (m *MongoDB) Initialize(ctx context.Context) error {
	if err := m.createIndexes(ctx, CollectionNotifications, []mongo.IndexModel{
		{Keys: bson.D{{Key: "users", Value: 1}}},
		{Keys: bson.D{{Key: "users", Value: 1}, {Key: "expires", Value: 1}}},
		{Keys: bson.D{{Key: "users", Value: 1}, {Key: "unseen", Value: 1}, {Key: "created", Value: -1}}},
		{Keys: bson.D{{Key: "users", Value: 1}, {Key: "level", Value: 1}, {Key: "created", Value: -1}}},
		{Keys: bson.D{{Key: "users", Value: 1}, {Key: "verb", Value: 1}, {Key: "created", Value: -1}}},
		{Keys: bson.D{{Key: "users", Value: 1}, {Key: "source", Value: 1}, {Key: "created", Value: -1}}},
		{
			Keys:    bson.D{{Key: "external_key", Value: 1}, {Key: "source", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}); err != nil {
		return fmt.Errorf("failed to create notifications indexes: %w", err)
	}

	log.Println("MongoDB indexes initialized")
	return nil
}

// createIndexes creates indexes for a collection
func (m *MongoDB) createIndexes(ctx context.Context, collectionName string, indexes []mongo.IndexModel) error {
	collection := m.database.Collection(collectionName)
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Collection returns a collection handle
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Client returns the underlying MongoDB client
func (m *MongoDB) Client() *mongo.Client {
	return m.client
}

// Database returns the underlying MongoDB database
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping checks if the database connection is alive
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}
