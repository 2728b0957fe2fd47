// Package mongo adapts a MongoDB database to remote.DocumentStore. Collection
// snapshots come from change streams, which need a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindlab/cardshop/internal/remote"
)

const (
	idField       = "_id"
	codeForbidden = 13
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", classify(err))
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %v", remote.ErrNotFound, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeForbidden) {
		return fmt.Errorf("%w: %v", remote.ErrPermissionDenied, err)
	}
	return err
}

// fromBSON turns a decoded document into plain Go values.
func fromBSON(v any) any {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = fromBSON(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = fromBSON(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = fromBSON(val)
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	default:
		return v
	}
}

func toDocument(m bson.M) remote.Document {
	data := fromBSON(m).(map[string]any)
	id, _ := data[idField].(string)
	delete(data, idField)
	return remote.Document{ID: id, Data: remote.NormalizeMap(data)}
}

func encode(data map[string]any, now time.Time) bson.M {
	out := make(bson.M, len(data))
	for k, v := range data {
		if k == idField {
			continue
		}
		switch x := v.(type) {
		case map[string]any:
			out[k] = encode(x, now)
		default:
			if remote.IsServerTimestamp(v) {
				out[k] = now
				continue
			}
			out[k] = v
		}
	}
	return out
}

// flatten turns nested maps into dotted $set paths so nested fields merge.
func flatten(prefix string, in bson.M, out bson.M) bson.M {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(bson.M); ok && len(sub) > 0 {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
	return out
}

func mergeUpdate(data map[string]any) bson.M {
	set := flatten("", encode(data, time.Now().UTC()), bson.M{})
	return bson.M{"$set": set}
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	var m bson.M
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{idField: id}).Decode(&m); err != nil {
		return remote.Document{}, classify(err)
	}
	return toDocument(m), nil
}

func (s *Store) FindByField(ctx context.Context, collection, field string, value any) (remote.Document, error) {
	var m bson.M
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{field: value}).Decode(&m); err != nil {
		return remote.Document{}, classify(err)
	}
	return toDocument(m), nil
}

func (s *Store) List(ctx context.Context, collection string, q remote.Query) ([]remote.Document, error) {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	} else {
		opts.SetSort(bson.D{{Key: idField, Value: 1}})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, classify(err)
	}
	docs := make([]remote.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, toDocument(r))
	}
	return docs, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{idField: id}, mergeUpdate(data), options.Update().SetUpsert(true))
	return classify(err)
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := primitive.NewObjectID().Hex()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{idField: id})
	return classify(err)
}

func writeModels(writes []remote.Write) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(writes))
	for _, w := range writes {
		if w.Delete {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{idField: w.ID}))
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{idField: w.ID}).
			SetUpdate(mergeUpdate(w.Data)).
			SetUpsert(true))
	}
	return models
}

// Commit runs the writes as one bulk write inside a transaction.
func (s *Store) Commit(ctx context.Context, collection string, writes []remote.Write) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > remote.MaxBatchWrites {
		return remote.ErrBatchTooLarge
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return classify(err)
	}
	defer sess.EndSession(ctx)

	models := writeModels(writes)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.db.Collection(collection).BulkWrite(sc, models, options.BulkWrite().SetOrdered(true))
	})
	return classify(err)
}

// Watch lists the collection on start and again after every change event,
// delivering the full result each time.
func (s *Store) Watch(ctx context.Context, collection string, fn remote.SnapshotFunc) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := s.db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		err = classify(err)
		fn(nil, err)
		return func() {}, nil
	}

	go func() {
		defer stream.Close(context.Background())

		deliver := func() bool {
			docs, err := s.List(ctx, collection, remote.Query{})
			if err != nil {
				if ctx.Err() == nil {
					fn(nil, err)
				}
				return false
			}
			fn(docs, nil)
			return true
		}

		if !deliver() {
			return
		}
		for stream.Next(ctx) {
			if !deliver() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			fn(nil, classify(err))
		}
	}()

	return cancel, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
