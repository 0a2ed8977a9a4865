package layout

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
)

const (
	mongoDatabase   = "repairgraph"
	mongoCollection = "layouts"
)

// layoutDoc is a stored layout keyed by group.
type layoutDoc struct {
	Group        string `bson:"_id"`
	graph.Layout `bson:",inline"`
}

// MongoStore keeps one document per group, keyed by the group name.
// CompareAndSwap replaces the document filtered by its version; the first
// write inserts and relies on the _id uniqueness to detect races.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to the MongoDB deployment at url.
func NewMongoStore(ctx context.Context, url string) (*MongoStore, error) {
	if err := errors.ValidateStoreURL(StoreMongo, url); err != nil {
		return nil, err
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}
	return NewMongoStoreFromCollection(client, client.Database(mongoDatabase).Collection(mongoCollection)), nil
}

// NewMongoStoreFromCollection wraps an existing collection. The client is
// disconnected on Close when non-nil.
func NewMongoStoreFromCollection(client *mongo.Client, coll *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, coll: coll}
}

// Load reads the layout of group.
func (s *MongoStore) Load(ctx context.Context, group string) (graph.Layout, bool, error) {
	var doc layoutDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": group}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return graph.Layout{}, false, nil
	}
	if err != nil {
		return graph.Layout{}, false, errors.Wrap(errors.ErrCodeStorage, err, "load layout %s", group)
	}
	return doc.Layout, true, nil
}

// CompareAndSwap writes the layout of group if its version is prevVersion.
func (s *MongoStore) CompareAndSwap(ctx context.Context, group, prevVersion string, l graph.Layout) error {
	doc := layoutDoc{Group: group, Layout: l}
	if prevVersion == "" {
		_, err := s.coll.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return s.conflict(ctx, group, prevVersion)
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "insert layout %s", group)
		}
		return nil
	}

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": group, "version": prevVersion}, doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "replace layout %s", group)
	}
	if res.MatchedCount == 0 {
		return s.conflict(ctx, group, prevVersion)
	}
	return nil
}

func (s *MongoStore) conflict(ctx context.Context, group, expected string) error {
	cur, _, err := s.Load(ctx, group)
	if err != nil {
		return err
	}
	return conflict(group, expected, cur.Version)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
