package docstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rosec/backend/internal/config"
	"github.com/rosec/backend/internal/grading"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ScanCollection receives raw records returned by the scanning device.
const ScanCollection = "scan_results"

// ResultCollections are the differently shaped collections that hold
// result records.
var ResultCollections = []string{ScanCollection, "exam_results", "results", "student_results"}

// Connect opens and pings a mongo client.
func Connect(ctx context.Context, cfg config.DocStoreConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}
	return client, nil
}

// Store reads result records as loosely typed documents.
type Store struct {
	db          *mongo.Database
	collections []string
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db, collections: ResultCollections}
}

// Collections lists the result collections in merge order.
func (s *Store) Collections() []string {
	return s.collections
}

// FetchResults returns every record of collection. When studentID is set,
// only records whose student alias field matches are returned.
func (s *Store) FetchResults(ctx context.Context, collection, studentID string) ([]grading.Record, error) {
	filter := bson.M{}
	if studentID != "" {
		filter = StudentFilter(studentID)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	records := make([]grading.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, ToRecord(doc))
	}
	return records, nil
}

// SaveScan stores a raw scan record and returns its id. A scannedAt field is
// added when the record carries no timestamp of its own.
func (s *Store) SaveScan(ctx context.Context, rec grading.Record) (string, error) {
	doc := bson.M{}
	for k, v := range rec {
		doc[k] = v
	}
	if !grading.Normalize(ScanCollection, rec).HasTimestamp() {
		doc["scannedAt"] = time.Now().UTC()
	}

	res, err := s.db.Collection(ScanCollection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert scan result: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

// StudentFilter matches any of the student id alias fields. Ids written by
// the device as JSON numbers are stored as numbers, so an id in canonical
// integer form also matches its numeric value.
func StudentFilter(studentID string) bson.M {
	values := bson.A{studentID}
	if n, err := strconv.ParseInt(studentID, 10, 64); err == nil && strconv.FormatInt(n, 10) == studentID {
		values = append(values, n, float64(n))
	}

	clauses := make(bson.A, 0, len(grading.StudentIDFields)*len(values))
	for _, field := range grading.StudentIDFields {
		for _, v := range values {
			clauses = append(clauses, bson.M{field: v})
		}
	}
	return bson.M{"$or": clauses}
}

// ToRecord converts a decoded document into a plain record, flattening the
// driver's document and array types so nested values look like JSON.
func ToRecord(doc bson.M) grading.Record {
	rec := make(grading.Record, len(doc))
	for k, v := range doc {
		rec[k] = plain(v)
	}
	return rec
}

func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = plain(val)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	default:
		return v
	}
}
