package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"recipe-server/core"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// positionField keeps the array order of a collection; it never leaves this package.
const positionField = "_pos"

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	// transactions is set when the deployment is a replica set or sharded cluster.
	transactions bool
}

// NewStore connects to MongoDB and maps every collection to a Mongo collection of the same name.
func NewStore(ctx context.Context, uri, database string) (*mongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &mongoStore{client: client, db: client.Database(database)}
	s.transactions = supportsTransactions(connectCtx, client)
	if !s.transactions {
		logrus.Warn("MongoDB is a standalone server, a failed collection write can leave the collection empty")
	}
	return s, nil
}

func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello bson.M
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		logrus.WithError(err).Warn("Failed to query MongoDB topology")
		return false
	}
	_, replicaSet := hello["setName"]
	return replicaSet || hello["msg"] == "isdbgrid"
}

func (s *mongoStore) ReadAll(ctx context.Context, c core.Collection) ([]json.RawMessage, error) {
	log := logrus.WithField("collection", c)

	cursor, err := s.db.Collection(string(c)).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: positionField, Value: 1}}))
	if err != nil {
		log.WithError(err).Error("Failed to query collection")
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		log.WithError(err).Warn("Failed to decode collection, returning empty collection")
		return []json.RawMessage{}, nil
	}

	records := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		delete(doc, positionField)
		data, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			log.WithError(err).Warn("Skipping document that cannot be converted to JSON")
			continue
		}
		records = append(records, data)
	}
	return records, nil
}

func (s *mongoStore) WriteAll(ctx context.Context, c core.Collection, records []json.RawMessage) error {
	log := logrus.WithFields(logrus.Fields{"collection": c, "records": len(records)})

	docs := make([]interface{}, 0, len(records))
	for i, r := range records {
		var doc bson.M
		if err := bson.UnmarshalExtJSON(r, false, &doc); err != nil {
			return fmt.Errorf("failed to convert %s record %d: %w", c, i, err)
		}
		doc[positionField] = i
		docs = append(docs, doc)
	}

	coll := s.db.Collection(string(c))
	replace := func(ctx context.Context) error {
		if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
			log.WithError(err).Error("Failed to clear collection")
			return err
		}
		if len(docs) > 0 {
			if _, err := coll.InsertMany(ctx, docs); err != nil {
				log.WithError(err).Error("Failed to insert collection")
				return err
			}
		}
		return nil
	}

	if !s.transactions {
		if err := replace(ctx); err != nil {
			return err
		}
		log.Debug("Collection written")
		return nil
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongodb session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, replace(sc)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", c, err)
	}

	log.Debug("Collection written")
	return nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
