// Package mongo loads datasets stored as documents in MongoDB.
//
// Each document carries the fields of [dataset.Document] plus an "_id"
// string identifying the recording:
//
//	{
//	  "_id": "session-3",
//	  "unit": "ms",
//	  "timestamps": [12.5, 40.1, 88.0],
//	  "trials": ["t1", "t1", "t2"],
//	  "groups": ["A", "B", "A"]
//	}
//
// [Source] implements pipeline.Source, so stored datasets flow through the
// same validation, layout and render stages as files:
//
//	store, err := mongo.Connect(ctx, mongo.Config{URI: "mongodb://localhost:27017"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close(ctx)
//	result, err := runner.Execute(ctx, store.Source("session-3"), opts)
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/errors"
)

const (
	// DefaultDatabase is used when Config.Database is empty.
	DefaultDatabase = "spikeraster"

	// DefaultCollection is used when Config.Collection is empty.
	DefaultCollection = "datasets"

	// DefaultTimeout bounds connecting and each query attempt.
	DefaultTimeout = 10 * time.Second
)

// Config configures a Store.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

func (c *Config) setDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the URI and collection name.
func (c Config) Validate() error {
	if err := errors.ValidateMongoURI(c.URI); err != nil {
		return err
	}
	if c.Collection != "" {
		return errors.ValidateCollectionName(c.Collection)
	}
	return nil
}

// Store reads and writes datasets in one collection.
type Store struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// Connect opens a client and pings the server.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Store{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.Timeout,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// record is the stored shape of a dataset.
type record struct {
	ID               string `bson:"_id"`
	dataset.Document `bson:",inline"`
}

// Get loads the dataset with the given id.
func (s *Store) Get(ctx context.Context, id string) (*dataset.Dataset, error) {
	if err := errors.ValidateDatasetID(id); err != nil {
		return nil, err
	}

	var rec record
	err := withRetry(ctx, func() error {
		qctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.coll.FindOne(qctx, bson.M{"_id": id}).Decode(&rec)
	})
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeDatasetNotFound, "dataset %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset %q: %w", id, err)
	}

	if rec.Name == "" {
		rec.Name = id
	}
	return dataset.FromDocument(rec.Document)
}

// Put stores ds under id, replacing any previous document.
func (s *Store) Put(ctx context.Context, id string, ds *dataset.Dataset) error {
	if err := errors.ValidateDatasetID(id); err != nil {
		return err
	}
	rec := record{ID: id, Document: dataset.ToDocument(ds)}

	return withRetry(ctx, func() error {
		qctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		_, err := s.coll.ReplaceOne(qctx, bson.M{"_id": id}, rec, options.Replace().SetUpsert(true))
		return err
	})
}

// List returns stored dataset ids in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(qctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer cur.Close(qctx)

	var ids []string
	for cur.Next(qctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode dataset id: %w", err)
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// Source returns a pipeline source for the dataset with the given id.
func (s *Store) Source(id string) Source {
	return Source{store: s, id: id}
}

// Source loads one stored dataset.
type Source struct {
	store *Store
	id    string
}

// Load implements pipeline.Source.
func (s Source) Load(ctx context.Context) (*dataset.Dataset, error) {
	return s.store.Get(ctx, s.id)
}

func (s Source) String() string { return "mongo:" + s.id }
