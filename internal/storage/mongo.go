// internal/storage/mongo.go - MongoDB draft store
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/DropScrapexter/internal/product"
)

// draftDocument is the stored shape of a draft
type draftDocument struct {
	ID        string          `bson:"_id"`
	Status    string          `bson:"status"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
	Product   product.Product `bson:"product"`
}

func toDocument(d *product.Draft) draftDocument {
	return draftDocument{
		ID:        d.ID,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Product:   d.Product,
	}
}

func (doc draftDocument) draft() *product.Draft {
	return &product.Draft{
		ID:        doc.ID,
		Status:    product.Status(doc.Status),
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
		Product:   doc.Product,
	}
}

// MongoStore keeps drafts in a MongoDB collection
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongo connects, pings and ensures the listing index exists
func OpenMongo(ctx context.Context, cfg Config) (*MongoStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if err := ValidateIdentifier(cfg.Table); err != nil {
		return nil, fmt.Errorf("invalid collection name: %w", err)
	}

	clientOptions := options.Client().
		ApplyURI(cfg.DSN).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Table)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("status_created_at"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoStore{client: client, collection: collection}, nil
}

// Save inserts the draft or replaces an existing one
func (s *MongoStore) Save(ctx context.Context, draft *product.Draft) error {
	if draft == nil || draft.ID == "" {
		return fmt.Errorf("draft ID is required")
	}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": draft.ID},
		toDocument(draft),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}
	return nil
}

// Get returns the draft with the given ID or ErrNotFound
func (s *MongoStore) Get(ctx context.Context, id string) (*product.Draft, error) {
	var doc draftDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft %s: %w", id, err)
	}
	return doc.draft(), nil
}

// List returns drafts newest first, optionally filtered by status
func (s *MongoStore) List(ctx context.Context, opts ListOptions) ([]*product.Draft, error) {
	cursor, err := s.collection.Find(ctx, listFilter(opts), listOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer cursor.Close(ctx)

	drafts := make([]*product.Draft, 0)
	for cursor.Next(ctx) {
		var doc draftDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to read draft: %w", err)
		}
		drafts = append(drafts, doc.draft())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}

func listFilter(opts ListOptions) bson.M {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	return filter
}

func listOptions(opts ListOptions) *options.FindOptions {
	find := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		find.SetLimit(int64(opts.Limit))
		if opts.Offset > 0 {
			find.SetSkip(int64(opts.Offset))
		}
	}
	return find
}

// UpdateStatus changes the editorial status of a draft
func (s *MongoStore) UpdateStatus(ctx context.Context, id string, status product.Status, now time.Time) (*product.Draft, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	var doc draftDocument
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(status), "updated_at": now.UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update draft %s: %w", id, err)
	}
	return doc.draft(), nil
}

// Delete removes a draft
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
