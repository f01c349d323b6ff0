package layer

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "transitmap"
	DefaultMongoCollection = "layers"
)

// layerDoc is the stored form of a layer. Segments holds segment JSON.
type layerDoc struct {
	ID        string    `bson:"_id"`
	Segments  []byte    `bson:"segments"`
	Count     int       `bson:"segment_count"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per layer.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and pings the primary. An empty database
// uses DefaultMongoDatabase.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, storageErr(err, "connect for", database)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, storageErr(err, "ping for", database)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(DefaultMongoCollection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*network.Network, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var doc layerDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "read", id)
	}
	return decode(id, doc.Segments)
}

func (s *MongoStore) Set(ctx context.Context, id string, n *network.Network) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	data, err := encode(id, n)
	if err != nil {
		return err
	}
	doc := layerDoc{ID: id, Segments: data, Count: len(n.Segments), UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return storageErr(err, "write", id)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return storageErr(err, "remove", id)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr(err, "list", DefaultMongoCollection)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, storageErr(err, "list", DefaultMongoCollection)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, storageErr(err, "list", DefaultMongoCollection)
	}
	return ids, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
