package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultMongoDatabase = "foodstand"
	mongoCollection      = "documents"
	mongoUpdateAttempts  = 5
)

// mongoDocument is the stored form of one path. The document JSON is kept
// as a string so it round-trips byte for byte.
type mongoDocument struct {
	Path      string    `bson:"_id"`
	Value     string    `bson:"value"`
	Revision  int64     `bson:"revision"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo is a Ledger backed by a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	hub    *hub
	opts   options
}

// OpenMongo connects to uri and uses the database named in its path
// (default "foodstand").
func OpenMongo(ctx context.Context, uri string, opts ...Option) (*Mongo, error) {
	dbName, err := mongoDatabaseName(uri)
	if err != nil {
		return nil, fmt.Errorf("open mongo ledger: %w", err)
	}

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("open mongo ledger: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("open mongo ledger: ping: %w", err)
	}

	return &Mongo{
		client: client,
		coll:   client.Database(dbName).Collection(mongoCollection),
		hub:    newHub(),
		opts:   buildOptions(opts),
	}, nil
}

func mongoDatabaseName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return defaultMongoDatabase, nil
	}
	return name, nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Set(ctx context.Context, path string, value []byte) (int64, error) {
	if err := checkPath(path); err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}

	now := m.opts.now().UTC()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "value", Value: string(value)},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$inc", Value: bson.D{{Key: "revision", Value: int64(1)}}},
	}
	opts := mongooptions.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(mongooptions.After)

	var doc mongoDocument
	if err := m.coll.FindOneAndUpdate(ctx, bson.M{"_id": path}, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}

	m.hub.publish(doc.change())
	return doc.Revision, nil
}

// Update merges with optimistic concurrency on the revision field and
// retries a few times before giving up with ErrConflict.
func (m *Mongo) Update(ctx context.Context, path string, partial map[string]json.RawMessage) (int64, error) {
	if err := checkPath(path); err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}

	for attempt := 0; attempt < mongoUpdateAttempts; attempt++ {
		current, err := m.read(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("update: %w", err)
		}
		merged, err := mergeObject(current.Value, partial)
		if err != nil {
			return 0, fmt.Errorf("update: %w", err)
		}

		doc := mongoDocument{
			Path:      path,
			Value:     string(merged),
			Revision:  current.Revision + 1,
			UpdatedAt: m.opts.now().UTC(),
		}

		if !current.Exists() {
			_, err := m.coll.InsertOne(ctx, doc)
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return 0, fmt.Errorf("update: %w", err)
			}
		} else {
			res, err := m.coll.ReplaceOne(ctx, bson.M{"_id": path, "revision": current.Revision}, doc)
			if err != nil {
				return 0, fmt.Errorf("update: %w", err)
			}
			if res.MatchedCount == 0 {
				slog.Debug("mongo update lost race, retrying", "path", path, "attempt", attempt+1)
				continue
			}
		}

		m.hub.publish(doc.change())
		return doc.Revision, nil
	}
	return 0, fmt.Errorf("update %s: %w", path, ErrConflict)
}

func (m *Mongo) ReadOnce(ctx context.Context, path string) (Change, error) {
	if err := checkPath(path); err != nil {
		return Change{}, fmt.Errorf("read: %w", err)
	}
	c, err := m.read(ctx, path)
	if err != nil {
		return Change{}, fmt.Errorf("read: %w", err)
	}
	return c, nil
}

func (m *Mongo) read(ctx context.Context, path string) (Change, error) {
	var doc mongoDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Change{Path: path}, nil
	}
	if err != nil {
		return Change{}, err
	}
	return doc.change(), nil
}

func (m *Mongo) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	if err := checkPath(path); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	read := func(ctx context.Context) (Change, error) {
		return m.read(ctx, path)
	}
	onErr := func(err error) {
		slog.Warn("mongo poll failed", "path", path, "error", err)
	}
	sub, err := subscribe(ctx, m.hub, path, read, m.opts.pollInterval, onErr)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}

// Paths lists stored document paths, most recently written first.
func (m *Mongo) Paths(ctx context.Context) ([]string, error) {
	opts := mongooptions.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1})
	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer cursor.Close(ctx)

	var paths []string
	for cursor.Next(ctx) {
		var row struct {
			Path string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("list paths: %w", err)
		}
		paths = append(paths, row.Path)
	}
	return paths, cursor.Err()
}

func (d mongoDocument) change() Change {
	return Change{
		Path:      d.Path,
		Value:     []byte(d.Value),
		Revision:  d.Revision,
		UpdatedAt: d.UpdatedAt,
	}
}
