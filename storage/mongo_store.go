package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubhours/worklog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps log entries in one collection, one document per entry.
// Every write runs in a multi-document transaction together with a bump of
// the collection's revision document, so the server must run as a replica set.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	revisions  *mongo.Collection
	subs       *subscriptions
}

type revisionDocument struct {
	ID       string `bson:"_id"`
	Revision int64  `bson:"revision"`
}

var _ worklog.Repository = (*MongoStore)(nil)

type logDocument struct {
	ID                 string     `bson:"_id"`
	MemberEmail        string     `bson:"MemberEmail"`
	MemberName         string     `bson:"MemberName"`
	Date               time.Time  `bson:"Date"`
	Type               string     `bson:"type"`
	IsMaintenance      bool       `bson:"isMaintenance"`
	Activity           string     `bson:"Activity"`
	ClockHours         float64    `bson:"clockHours"`
	Hours              float64    `bson:"Hours"`
	Status             string     `bson:"Status"`
	SourceSheet        string     `bson:"SourceSheet"`
	FiscalYearRollover string     `bson:"FiscalYearRollover"`
	ImportedAt         *time.Time `bson:"importedAt,omitempty"`
}

func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "MemberEmail", Value: 1}, {Key: "Date", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create mongo index: %w", err)
	}

	revisions := client.Database(database).Collection(collection + "_revision")
	_, err = revisions.UpdateOne(ctx,
		bson.M{"_id": collection},
		bson.M{"$setOnInsert": bson.M{"revision": int64(0)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("seed mongo revision: %w", err)
	}

	return &MongoStore{client: client, collection: coll, revisions: revisions, subs: newSubscriptions()}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Query(ctx context.Context, filter worklog.Filter) ([]worklog.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "Date", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]worklog.Entry, 0, 256)
	for cursor.Next(ctx) {
		var doc logDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		entries = append(entries, doc.entry())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return entries, nil
}

func (s *MongoStore) Subscribe(filter worklog.Filter, onChange func([]worklog.Entry)) func() {
	return s.subs.add(filter, onChange, s.Query)
}

func (s *MongoStore) Watch(onChange func()) func() {
	return s.subs.watch(onChange)
}

func (s *MongoStore) Revision(ctx context.Context) (int64, error) {
	var doc revisionDocument
	err := s.revisions.FindOne(ctx, bson.M{"_id": s.collection.Name()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read logs revision: %w", err)
	}
	return doc.Revision, nil
}

// transact runs fn and the revision bump in one transaction.
func (s *MongoStore) transact(ctx context.Context, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := fn(sc)
		if err != nil {
			return nil, err
		}
		_, err = s.revisions.UpdateOne(sc,
			bson.M{"_id": s.collection.Name()},
			bson.M{"$inc": bson.M{"revision": int64(1)}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, fmt.Errorf("bump logs revision: %w", err)
		}
		return result, nil
	})
}

func (s *MongoStore) Get(ctx context.Context, id string) (worklog.Entry, error) {
	if strings.TrimSpace(id) == "" {
		return worklog.Entry{}, fmt.Errorf("log id must not be empty")
	}

	var doc logDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return worklog.Entry{}, fmt.Errorf("log %s: %w", id, worklog.ErrNotFound)
		}
		return worklog.Entry{}, fmt.Errorf("query log %s: %w", id, err)
	}
	return doc.entry(), nil
}

func (s *MongoStore) Insert(ctx context.Context, entry worklog.Entry) (worklog.Entry, error) {
	entry = prepareCreate(entry)
	_, err := s.transact(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.collection.InsertOne(sc, toDocument(entry)); err != nil {
			return nil, fmt.Errorf("insert log %s: %w", entry.ID, err)
		}
		return nil, nil
	})
	if err != nil {
		return worklog.Entry{}, err
	}
	s.subs.notify(s.Query)
	return entry, nil
}

func (s *MongoStore) Update(ctx context.Context, patch worklog.Patch) (worklog.Entry, error) {
	result, err := s.transact(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.applyPatch(sc, patch)
	})
	if err != nil {
		return worklog.Entry{}, err
	}
	s.subs.notify(s.Query)
	updated, _ := result.(worklog.Entry)
	return updated, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := s.transact(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := s.collection.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return nil, fmt.Errorf("delete log %s: %w", id, err)
		}
		if res.DeletedCount == 0 {
			return nil, fmt.Errorf("delete log %s: %w", id, worklog.ErrNotFound)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.subs.notify(s.Query)
	return nil
}

func (s *MongoStore) CommitGroup(ctx context.Context, creates []worklog.Entry, updates []worklog.Patch) ([]string, error) {
	if len(creates) == 0 && len(updates) == 0 {
		return nil, nil
	}

	result, err := s.transact(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		ids := make([]string, 0, len(creates))
		docs := make([]interface{}, 0, len(creates))
		for _, entry := range creates {
			entry = prepareCreate(entry)
			ids = append(ids, entry.ID)
			docs = append(docs, toDocument(entry))
		}
		if len(docs) > 0 {
			if _, err := s.collection.InsertMany(sc, docs); err != nil {
				return nil, fmt.Errorf("insert logs: %w", err)
			}
		}
		for _, patch := range updates {
			if _, err := s.applyPatch(sc, patch); err != nil {
				return nil, err
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit group transaction: %w", err)
	}

	s.subs.notify(s.Query)
	ids, _ := result.([]string)
	return ids, nil
}

// applyPatch replaces the document conditionally on the status it was read with,
// so a concurrent transition makes the replace miss instead of overwriting.
func (s *MongoStore) applyPatch(ctx context.Context, patch worklog.Patch) (worklog.Entry, error) {
	current, err := s.Get(ctx, patch.ID)
	if err != nil {
		return worklog.Entry{}, err
	}
	if !patch.Allows(current) {
		return worklog.Entry{}, fmt.Errorf("log %s has status %s: %w", patch.ID, current.Status, worklog.ErrNotFound)
	}

	updated := patch.Apply(current)
	selector := bson.M{"_id": patch.ID}
	if patch.ExpectStatus != nil {
		selector["Status"] = string(*patch.ExpectStatus)
	}

	res, err := s.collection.ReplaceOne(ctx, selector, toDocument(updated))
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("update log %s: %w", patch.ID, err)
	}
	if res.MatchedCount == 0 {
		return worklog.Entry{}, fmt.Errorf("update log %s: %w", patch.ID, worklog.ErrNotFound)
	}
	return updated, nil
}

func mongoFilter(filter worklog.Filter) bson.M {
	selector := bson.M{}
	if filter.Status != "" {
		selector["Status"] = string(filter.Status)
	}
	if filter.MemberEmail != "" {
		selector["MemberEmail"] = worklog.NormalizeEmail(filter.MemberEmail)
	}
	if filter.SourceSheetID != "" {
		selector["SourceSheet"] = filter.SourceSheetID
	}

	dateRange := bson.M{}
	if !filter.From.IsZero() {
		dateRange["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		dateRange["$lt"] = filter.To
	}
	if len(dateRange) > 0 {
		selector["Date"] = dateRange
	}
	return selector
}

func toDocument(entry worklog.Entry) logDocument {
	return logDocument{
		ID:                 entry.ID,
		MemberEmail:        entry.MemberEmail,
		MemberName:         entry.MemberName,
		Date:               entry.Date.UTC(),
		Type:               string(entry.ActivityType),
		IsMaintenance:      entry.IsMaintenance,
		Activity:           entry.Activity,
		ClockHours:         entry.ClockHours,
		Hours:              entry.CreditedHours,
		Status:             string(entry.Status),
		SourceSheet:        entry.SourceSheetID,
		FiscalYearRollover: string(entry.Rollover),
		ImportedAt:         entry.ImportedAt,
	}
}

func (d logDocument) entry() worklog.Entry {
	return worklog.Entry{
		ID:            d.ID,
		MemberEmail:   d.MemberEmail,
		MemberName:    d.MemberName,
		Date:          d.Date,
		ActivityType:  worklog.Kind(d.Type),
		IsMaintenance: d.IsMaintenance,
		Activity:      d.Activity,
		ClockHours:    d.ClockHours,
		CreditedHours: d.Hours,
		Status:        worklog.Status(d.Status),
		SourceSheetID: d.SourceSheet,
		Rollover:      worklog.Rollover(d.FiscalYearRollover),
		ImportedAt:    d.ImportedAt,
	}
}
