package repository

import (
	"context"
	"time"

	"github.com/example/obelisco/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditLog records cart mutations and order events in MongoDB.
type AuditLog struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewAuditLog(cfg *config.MongoDBConfig) (*AuditLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &AuditLog{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (a *AuditLog) Ping(ctx context.Context) error {
	return a.client.Ping(ctx, nil)
}

func (a *AuditLog) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}

// AuditEntry is one recorded cart or order event.
type AuditEntry struct {
	ID        string    `bson:"_id,omitempty"`
	Action    string    `bson:"action"`
	Entity    string    `bson:"entity"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

func (a *AuditLog) Record(ctx context.Context, action, entity string, data map[string]interface{}) error {
	collection := a.database.Collection(a.config.Collection)
	entry := &AuditEntry{
		Action:    action,
		Entity:    entity,
		Data:      bson.M(data),
		CreatedAt: time.Now(),
	}
	_, err := collection.InsertOne(ctx, entry)
	return err
}

func (a *AuditLog) Recent(ctx context.Context, entity string, limit int64) ([]*AuditEntry, error) {
	collection := a.database.Collection(a.config.Collection)

	filter := bson.M{"entity": entity}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*AuditEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}
