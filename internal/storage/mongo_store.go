package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/logger"
)

const collectionDocuments = "documents"

type mongoDocument struct {
	Name      string      `bson:"_id"`
	Body      interface{} `bson:"body"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

type mongoStoredDocument struct {
	Body bson.RawValue `bson:"body"`
}

// MongoDocumentStore keeps each document in the documents collection under
// its name
type MongoDocumentStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *logger.Logger
}

// NewMongoDocumentStore connects to uri and checks the connection
func NewMongoDocumentStore(ctx context.Context, uri, database string, log *logger.Logger) (*MongoDocumentStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoDocumentStore{
		client:     client,
		collection: client.Database(database).Collection(collectionDocuments),
		logger:     log,
	}, nil
}

// Load decodes the named document into v
func (s *MongoDocumentStore) Load(ctx context.Context, name string, v any) error {
	var doc mongoStoredDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("mongodb find %s: %w", name, err)
	}

	if err := doc.Body.Unmarshal(v); err != nil {
		return fmt.Errorf("mongodb decode %s: %w", name, err)
	}
	return nil
}

// Save replaces the named document with v
func (s *MongoDocumentStore) Save(ctx context.Context, name string, v any) error {
	doc := mongoDocument{
		Name:      name,
		Body:      v,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb save %s: %w", name, err)
	}

	s.logger.Debug("document saved", "name", name)
	return nil
}

// Close disconnects the client
func (s *MongoDocumentStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
