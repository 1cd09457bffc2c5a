// Package mongostore implements the document store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/example/student-affairs/internal/docstore"
)

const orderField = "_order"

// Error codes a standalone server answers to transactions and change streams.
const (
	codeIllegalOperation         = 20
	codeChangeStreamNotSupported = 40573
)

// Store implements docstore.Store and docstore.Transactor. Transactions and
// live Watch updates need a replica set deployment; on a standalone server
// RunTransaction reports docstore.ErrTransactionsUnsupported and Watch
// delivers a single snapshot.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	now         func() time.Time
	idGenerator func() string
}

// Connect dials uri and selects database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	return &Store{
		client:      client,
		db:          client.Database(database),
		now:         time.Now,
		idGenerator: func() string { return uuid.NewString() },
	}, nil
}

// SetClock overrides the clock used for ServerTimestamp.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// DropDatabase removes the selected database.
func (s *Store) DropDatabase(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Get retrieves a document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("mongostore: get %s/%s: %w", collection, id, err)
	}
	return toDocument(raw), nil
}

// List returns every document of the collection in insertion order.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.find(ctx, collection, bson.M{})
}

// Where returns the documents whose field equals the filter value.
func (s *Store) Where(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	return s.find(ctx, collection, bson.M{filter.Field: filter.Value})
}

func (s *Store) find(ctx context.Context, collection string, filter bson.M) ([]docstore.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: orderField, Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: find %s: %w", collection, err)
	}
	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: decode %s: %w", collection, err)
	}
	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, toDocument(row))
	}
	return docs, nil
}

// Add inserts a document under a generated id.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := s.idGenerator()
	doc := s.prepare(data)
	doc["_id"] = id
	doc[orderField] = primitive.NewObjectID()
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongostore: insert %s: %w", collection, err)
	}
	return id, nil
}

// Set creates or replaces a document under a caller supplied id, keeping its
// original position in insertion order.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if id == "" {
		return fmt.Errorf("mongostore: empty document id")
	}
	coll := s.db.Collection(collection)

	order := primitive.NewObjectID()
	var existing bson.M
	err := coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{orderField: 1})).Decode(&existing)
	switch {
	case err == nil:
		if previous, ok := existing[orderField].(primitive.ObjectID); ok {
			order = previous
		}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("mongostore: set %s/%s: %w", collection, id, err)
	}

	doc := s.prepare(data)
	doc["_id"] = id
	doc[orderField] = order
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("mongostore: set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return update(ctx, s.db, collection, id, s.prepare(fields))
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongostore: delete %s/%s: %w", collection, id, err)
	}
	if result.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// Watch opens a change stream on the collection and emits a fresh snapshot
// after every change. The channel closes when ctx is done or the stream fails.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	stream, err := s.db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		if unsupportedOnStandalone(err) {
			return s.staticSnapshot(ctx, collection)
		}
		return nil, fmt.Errorf("mongostore: watch %s: %w", collection, err)
	}
	initial, err := s.List(ctx, collection)
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}

	ch := make(chan docstore.Snapshot, 1)
	ch <- docstore.Snapshot{Collection: collection, Documents: initial}

	go func() {
		defer close(ch)
		defer stream.Close(context.Background()) //nolint:errcheck

		for stream.Next(ctx) {
			docs, err := s.List(ctx, collection)
			if err != nil {
				return
			}
			snap := docstore.Snapshot{Collection: collection, Documents: docs}
			// Replace a snapshot the reader has not consumed yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// staticSnapshot emits the current collection once and keeps the channel
// open until ctx is done.
func (s *Store) staticSnapshot(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	ch := make(chan docstore.Snapshot, 1)
	ch <- docstore.Snapshot{Collection: collection, Documents: docs}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// RunTransaction executes fn inside a multi-document transaction.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongostore: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &storeTx{store: s})
	})
	return classifyTransactionError(err)
}

// classifyTransactionError maps the standalone server refusal to
// docstore.ErrTransactionsUnsupported.
func classifyTransactionError(err error) error {
	if err == nil || !unsupportedOnStandalone(err) {
		return err
	}
	return fmt.Errorf("mongostore: %w: %v", docstore.ErrTransactionsUnsupported, err)
}

func unsupportedOnStandalone(err error) bool {
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	return serverErr.HasErrorCode(codeIllegalOperation) || serverErr.HasErrorCode(codeChangeStreamNotSupported)
}

func (s *Store) prepare(data map[string]any) bson.M {
	resolved := docstore.ResolveTimestamps(data, s.now().UTC())
	doc := make(bson.M, len(resolved)+2)
	for key, value := range resolved {
		doc[key] = value
	}
	return doc
}

type storeTx struct {
	store *Store
}

func (t *storeTx) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return t.store.Get(ctx, collection, id)
}

func (t *storeTx) Where(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	return t.store.Where(ctx, collection, filter)
}

func (t *storeTx) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	return t.store.Add(ctx, collection, data)
}

func (t *storeTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return t.store.Update(ctx, collection, id, fields)
}

func update(ctx context.Context, db *mongo.Database, collection, id string, fields bson.M) error {
	result, err := db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("mongostore: update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func toDocument(raw bson.M) docstore.Document {
	doc := docstore.Document{Data: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "_id":
			doc.ID = fmt.Sprint(normalize(value))
		case orderField:
		default:
			doc.Data[key] = normalize(value)
		}
	}
	return doc
}

// normalize converts driver specific values into the plain Go types the
// persistence layer decodes.
func normalize(value any) any {
	switch v := value.(type) {
	case bson.M:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(v))
		for _, elem := range v {
			out[elem.Key] = normalize(elem.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.ObjectID:
		return v.Hex()
	case int32:
		return int64(v)
	default:
		return v
	}
}
