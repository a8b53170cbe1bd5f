package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/portfolio-site/portfolio-api/internal/document"
)

// MongoRepo maps each gateway collection onto the MongoDB collection of the
// same name. Documents are stored with an ObjectID _id which is exposed to
// callers as the hex "id" field.
type MongoRepo struct {
	db  *mongo.Database
	now func() time.Time
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }}
}

func (m *MongoRepo) col(name string) *mongo.Collection { return m.db.Collection(name) }

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func (m *MongoRepo) List(ctx context.Context, collection string, q document.Query) ([]document.Document, error) {
	dir := -1
	if q.Asc {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: q.SortField(), Value: dir}, {Key: "_id", Value: dir}})
	cur, err := m.col(collection).Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cur.Close(ctx)
	out := []document.Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		out = append(out, fromBSON(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor %s: %w", collection, err)
	}
	return out, nil
}

func (m *MongoRepo) Get(ctx context.Context, collection, id string) (document.Document, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	if err := m.col(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

func (m *MongoRepo) Insert(ctx context.Context, collection string, fields document.Document) (document.Document, error) {
	doc := bson.M{}
	for k, v := range fields.WritableFields() {
		doc[k] = v
	}
	doc["_id"] = primitive.NewObjectID()
	doc[document.FieldCreatedAt] = m.now()
	if _, err := m.col(collection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert %s: %w", collection, err)
	}
	return fromBSON(doc), nil
}

func (m *MongoRepo) setClause(fields document.Document) bson.M {
	set := bson.M{}
	for k, v := range fields.WritableFields() {
		set[k] = v
	}
	set[document.FieldUpdatedAt] = m.now()
	return bson.M{"$set": set}
}

func (m *MongoRepo) Update(ctx context.Context, collection, id string, fields document.Document) (document.Document, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var raw bson.M
	err = m.col(collection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, m.setClause(fields), opts).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

func (m *MongoRepo) Upsert(ctx context.Context, collection string, fields document.Document, conflictKeys []string) (document.Document, error) {
	if filter := conflictFilter(fields, conflictKeys); len(filter) > 0 {
		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetSort(bson.D{{Key: document.FieldCreatedAt, Value: 1}, {Key: "_id", Value: 1}})
		var raw bson.M
		err := m.col(collection).FindOneAndUpdate(ctx, bson.M(filter), m.setClause(fields), opts).Decode(&raw)
		switch {
		case err == nil:
			return fromBSON(raw), nil
		case !errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("upsert %s: %w", collection, err)
		}
	}
	return m.Insert(ctx, collection, fields)
}

func (m *MongoRepo) Delete(ctx context.Context, collection, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := m.col(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Increment(ctx context.Context, collection string, key document.Document, field string, delta int64) (document.Document, error) {
	update := bson.M{
		"$inc":         bson.M{field: delta},
		"$setOnInsert": bson.M{document.FieldCreatedAt: m.now()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var raw bson.M
	if err := m.col(collection).FindOneAndUpdate(ctx, bson.M(key.WritableFields()), update, opts).Decode(&raw); err != nil {
		return nil, fmt.Errorf("increment %s.%s: %w", collection, field, err)
	}
	return fromBSON(raw), nil
}

// listFilter translates q's candidates into $in clauses. A null candidate
// would also match documents lacking the field, so the field must exist.
func listFilter(q document.Query) bson.M {
	filter := bson.M{}
	for field, candidates := range q.Filter {
		clause := bson.M{"$in": candidates}
		for _, c := range candidates {
			if c == nil {
				clause["$exists"] = true
				break
			}
		}
		filter[field] = clause
	}
	return filter
}

// fromBSON converts a decoded MongoDB document into the gateway's JSON-safe form.
func fromBSON(raw bson.M) document.Document {
	d := make(document.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				d[document.FieldID] = oid.Hex()
			} else {
				d[document.FieldID] = fmt.Sprint(normalize(v))
			}
			continue
		}
		d[k] = normalize(v)
	}
	return d
}

func normalize(v any) any {
	switch vv := v.(type) {
	case primitive.ObjectID:
		return vv.Hex()
	case primitive.DateTime:
		return vv.Time().UTC()
	case time.Time:
		return vv.UTC()
	case int32:
		return int64(vv)
	case primitive.Decimal128:
		return vv.String()
	case primitive.A:
		out := make([]any, len(vv))
		for i, x := range vv {
			out[i] = normalize(x)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, x := range vv {
			out[i] = normalize(x)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(vv))
		for k, x := range vv {
			out[k] = normalize(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, x := range vv {
			out[k] = normalize(x)
		}
		return out
	case document.Document:
		return normalize(map[string]any(vv))
	case primitive.D:
		out := make(map[string]any, len(vv))
		for _, e := range vv {
			out[e.Key] = normalize(e.Value)
		}
		return out
	}
	return v
}
