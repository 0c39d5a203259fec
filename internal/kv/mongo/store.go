// Package mongo implements kv.Store on a MongoDB collection. Each key is one
// document, so every operation stays within MongoDB's single-document
// atomicity guarantee, matching the contract. Session expiry rides on a TTL
// index.
package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
)

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type kvDoc struct {
	Key       string     `bson:"_id"`
	Value     []byte     `bson:"value"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
}

// Connect establishes the MongoDB connection with OpenTelemetry
// instrumentation and prepares the kv collection.
func Connect(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	s := &Store{
		client: client,
		coll:   client.Database(dbName).Collection("kv"),
		now:    time.Now,
	}

	// expireAfterSeconds=0 makes the reaper honor the per-document expiresAt.
	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expiresAt"),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, kv.ErrKeyNotFound
		}
		return nil, err
	}
	if s.lapsed(doc) {
		// The TTL reaper runs on a coarse interval; treat lapsed docs as gone.
		return nil, kv.ErrKeyNotFound
	}
	return doc.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	doc := kvDoc{Key: key, Value: value}
	if ttl > 0 {
		expires := s.now().UTC().Add(ttl)
		doc.ExpiresAt = &expires
	}

	_, err := s.coll.ReplaceOne(
		ctx,
		bson.M{"_id": key},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	cur, err := s.coll.Find(
		ctx,
		prefixFilter(prefix),
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []kv.Entry
	for cur.Next(ctx) {
		var doc kvDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		if s.lapsed(doc) {
			continue
		}
		out = append(out, kv.Entry{Key: doc.Key, Value: doc.Value})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.coll.DeleteMany(ctx, prefixFilter(prefix))
	return err
}

func prefixFilter(prefix string) bson.M {
	return bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
}

func (s *Store) lapsed(doc kvDoc) bool {
	return doc.ExpiresAt != nil && s.now().UTC().After(doc.ExpiresAt.UTC())
}
