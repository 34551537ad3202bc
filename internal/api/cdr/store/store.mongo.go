package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cdr_api/config"
	"cdr_api/internal/api/cdr/models"
	"cdr_api/internal/api/cdr/query"
	"cdr_api/internal/common"
	"cdr_api/internal/database"
	"cdr_api/internal/logger"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// recordDocument is the stored shape of a record. The reference is the _id.
type recordDocument struct {
	Reference string               `bson:"_id"`
	CallerID  string               `bson:"callerId" index:"compound:callerId_callDate"`
	Recipient string               `bson:"recipient"`
	CallDate  time.Time            `bson:"callDate" index:"single;compound:callerId_callDate"`
	EndTime   string               `bson:"endTime"`
	Currency  string               `bson:"currency"`
	Duration  int64                `bson:"duration"`
	Cost      primitive.Decimal128 `bson:"cost" index:"single,order:-1"`
	Type      int                  `bson:"type" index:"single"`
}

func toDocument(r models.CallDetailRecord) (recordDocument, error) {
	cost, err := primitive.ParseDecimal128(r.Cost.String())
	if err != nil {
		return recordDocument{}, fmt.Errorf("cost %s of %s: %w", r.Cost, r.Reference, err)
	}
	return recordDocument{
		Reference: r.Reference,
		CallerID:  r.CallerID,
		Recipient: r.Recipient,
		CallDate:  r.CallDate.UTC(),
		EndTime:   r.EndTime.String(),
		Currency:  r.Currency,
		Duration:  int64(r.Duration),
		Cost:      cost,
		Type:      int(r.Type),
	}, nil
}

func (d recordDocument) toRecord() (models.CallDetailRecord, error) {
	cost, err := decimal.NewFromString(d.Cost.String())
	if err != nil {
		return models.CallDetailRecord{}, fmt.Errorf("cost of %s: %w", d.Reference, err)
	}
	endTime, err := models.ParseTimeOfDay(d.EndTime)
	if err != nil {
		return models.CallDetailRecord{}, err
	}
	return models.CallDetailRecord{
		Reference: d.Reference,
		CallerID:  d.CallerID,
		Recipient: d.Recipient,
		CallDate:  d.CallDate.UTC(),
		EndTime:   endTime,
		Currency:  d.Currency,
		Duration:  int(d.Duration),
		Cost:      cost,
		Type:      models.CallType(d.Type),
	}, nil
}

var mongoFields = map[query.Field]string{
	query.FieldReference: "_id",
	query.FieldCallerID:  "callerId",
	query.FieldCallDate:  "callDate",
	query.FieldType:      "type",
	query.FieldCost:      "cost",
	query.FieldDuration:  "duration",
}

// toBSON renders a predicate as a MongoDB filter document.
func toBSON(p query.Predicate) (bson.D, error) {
	switch p := p.(type) {
	case nil:
		return bson.D{}, nil
	case query.Conjunction:
		if len(p.Terms) == 0 {
			return bson.D{}, nil
		}
		parts := make(bson.A, 0, len(p.Terms))
		for _, t := range p.Terms {
			d, err := toBSON(t)
			if err != nil {
				return nil, err
			}
			parts = append(parts, d)
		}
		return bson.D{{Key: "$and", Value: parts}}, nil
	case query.Comparison:
		field, ok := mongoFields[p.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported field %q", p.Field)
		}
		value := p.Value
		if t, ok := value.(models.CallType); ok {
			value = int(t)
		}
		switch p.Op {
		case query.OpEq:
			return bson.D{{Key: field, Value: value}}, nil
		case query.OpGte:
			return bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: value}}}}, nil
		case query.OpLt:
			return bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: value}}}}, nil
		}
		return nil, fmt.Errorf("unsupported operator %s", p.Op)
	}
	return nil, fmt.Errorf("unsupported predicate %T", p)
}

// MongoStore keeps records in one MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore wraps an existing collection.
func NewMongoStore(client *mongo.Client, collection *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, collection: collection}
}

// OpenMongo is the Factory for the "mongo" driver. It connects, ensures the
// collection exists and syncs its indexes.
func OpenMongo(ctx context.Context, cfg *config.Configuration) (Store, error) {
	client, err := database.GetInstance(cfg)
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDB_DBName)
	if err := database.EnsureCollection(ctx, db, cfg.MongoDB_Collection); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	collection := db.Collection(cfg.MongoDB_Collection)
	if err := database.CreateIndexes(ctx, collection, recordDocument{}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return NewMongoStore(client, collection), nil
}

func (s *MongoStore) InsertMany(ctx context.Context, records []models.CallDetailRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(records))
	for _, r := range records {
		d, err := toDocument(r)
		if err != nil {
			return err
		}
		docs = append(docs, d)
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		logger.WithCollection(s.collection.Name()).WithError(err).Error("InsertMany failed")
		return common.ConvertStoreError(err)
	}
	return nil
}

func (s *MongoStore) FindOne(ctx context.Context, filter query.Predicate) (*models.CallDetailRecord, error) {
	f, err := toBSON(filter)
	if err != nil {
		return nil, err
	}
	var doc recordDocument
	if err := s.collection.FindOne(ctx, f).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, common.ConvertStoreError(err)
	}
	rec, err := doc.toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func findOptions(opts query.FindOptions) (*options.FindOptions, error) {
	o := options.Find()
	if opts.SortBy != "" {
		field, ok := mongoFields[opts.SortBy]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", opts.SortBy)
		}
		order := 1
		if opts.Descending {
			order = -1
		}
		o.SetSort(bson.D{{Key: field, Value: order}})
	}
	if opts.Limit > 0 {
		o.SetLimit(opts.Limit)
	}
	return o, nil
}

func (s *MongoStore) Find(ctx context.Context, filter query.Predicate, opts query.FindOptions) ([]models.CallDetailRecord, error) {
	f, err := toBSON(filter)
	if err != nil {
		return nil, err
	}
	o, err := findOptions(opts)
	if err != nil {
		return nil, err
	}

	cursor, err := s.collection.Find(ctx, f, o)
	if err != nil {
		return nil, common.ConvertStoreError(err)
	}
	defer cursor.Close(ctx)

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, common.ConvertStoreError(err)
	}

	out := make([]models.CallDetailRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := d.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func statisticsPipeline(filter bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalDuration", Value: bson.D{{Key: "$sum", Value: "$duration"}}},
		}}},
	}
}

func (s *MongoStore) Statistics(ctx context.Context, filter query.Predicate) (models.CallStatistics, error) {
	f, err := toBSON(filter)
	if err != nil {
		return models.CallStatistics{}, err
	}

	cursor, err := s.collection.Aggregate(ctx, statisticsPipeline(f))
	if err != nil {
		return models.CallStatistics{}, common.ConvertStoreError(err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count         int64 `bson:"count"`
		TotalDuration int64 `bson:"totalDuration"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return models.CallStatistics{}, common.ConvertStoreError(err)
	}
	if len(rows) == 0 {
		return models.CallStatistics{}, nil
	}
	return models.CallStatistics{Count: rows[0].Count, TotalDuration: rows[0].TotalDuration}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return database.CloseInstance(ctx, s.client)
}
