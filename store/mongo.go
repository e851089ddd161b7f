package store

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inkwell/logx"
)

// parentField carries the owning document path for subcollection documents,
// so "users/<uid>/notifications" maps onto one flat "notifications"
// collection filtered by this field.
const parentField = "parent"

// Mongo implements Store on a MongoDB database. Live subscriptions are
// built on change streams: any change to the leaf collection triggers a
// full re-read of the query, which is delivered as the next snapshot.
// Change streams require the server to run as a replica set.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (s *Mongo) collection(collectionPath string) (*mongo.Collection, string, error) {
	parent, name, err := splitCollectionPath(collectionPath)
	if err != nil {
		return nil, "", err
	}
	return s.db.Collection(name), parent, nil
}

func (s *Mongo) Create(ctx context.Context, collectionPath string, fields bson.M) (string, error) {
	coll, parent, err := s.collection(collectionPath)
	if err != nil {
		return "", err
	}
	id := primitive.NewObjectID()
	doc := make(bson.M, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = id
	if parent != "" {
		doc[parentField] = parent
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (s *Mongo) PointRead(ctx context.Context, docPath string) (Document, error) {
	collectionPath, id, err := splitDocPath(docPath)
	if err != nil {
		return Document{}, err
	}
	coll, parent, err := s.collection(collectionPath)
	if err != nil {
		return Document{}, err
	}

	var raw bson.M
	err = coll.FindOne(ctx, bson.M{"_id": docIDValue(id)}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return toDocument(raw, parent), nil
}

func (s *Mongo) Read(ctx context.Context, q Query) ([]Document, error) {
	coll, parent, err := s.collection(q.Collection)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	if q.Sort != nil {
		dir := 1
		if q.Sort.Desc {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: q.Sort.Field, Value: dir}})
	}
	if q.Limit > 0 {
		findOpts.SetLimit(q.Limit)
	}

	cursor, err := coll.Find(ctx, mongoFilter(q, parent), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	docs := make([]Document, len(raws))
	for i, raw := range raws {
		docs[i] = toDocument(raw, parent)
	}
	return docs, nil
}

type mongoSub struct {
	cancel context.CancelFunc

	deliver  sync.Mutex
	canceled bool
	done     chan struct{}
}

func (s *Mongo) Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Subscription, error) {
	coll, _, err := s.collection(q.Collection)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &mongoSub{cancel: cancel, done: make(chan struct{})}

	stream, err := coll.Watch(subCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, err
	}

	push := func() {
		readCtx, readCancel := context.WithTimeout(subCtx, 10*time.Second)
		docs, err := s.Read(readCtx, q)
		readCancel()
		if err != nil {
			if subCtx.Err() == nil {
				logx.Warn.Printf("subscription re-read failed for %s: %v", q.Collection, err)
			}
			return
		}
		sub.deliver.Lock()
		defer sub.deliver.Unlock()
		if sub.canceled {
			return
		}
		fn(Snapshot{Docs: docs})
	}

	go func() {
		defer close(sub.done)
		defer stream.Close(context.Background())

		push()
		for stream.Next(subCtx) {
			push()
		}
		if err := stream.Err(); err != nil && subCtx.Err() == nil {
			logx.Error.Printf("change stream for %s ended: %v", q.Collection, err)
		}
	}()

	return sub, nil
}

// Cancel stops the change stream and waits for any in-flight snapshot
// delivery, so no callback runs after it returns.
func (s *mongoSub) Cancel() {
	s.cancel()
	s.deliver.Lock()
	s.canceled = true
	s.deliver.Unlock()
	<-s.done
}

func (s *Mongo) Mutate(ctx context.Context, docPath string, updates []FieldUpdate) error {
	collectionPath, id, err := splitDocPath(docPath)
	if err != nil {
		return err
	}
	coll, _, err := s.collection(collectionPath)
	if err != nil {
		return err
	}
	result, err := coll.UpdateOne(ctx, bson.M{"_id": docIDValue(id)}, mongoUpdate(updates))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) Delete(ctx context.Context, docPath string) error {
	collectionPath, id, err := splitDocPath(docPath)
	if err != nil {
		return err
	}
	coll, _, err := s.collection(collectionPath)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": docIDValue(id)})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// BatchMutate applies all updates inside one transaction.
func (s *Mongo) BatchMutate(ctx context.Context, muts []Mutation) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, mut := range muts {
			if err := s.Mutate(sc, mut.Path, mut.Updates); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func mongoFilter(q Query, parent string) bson.M {
	filter := bson.M{}
	if parent != "" {
		filter[parentField] = parent
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEqual:
			if f.Field == FieldDocID {
				filter["_id"] = docIDValue(asString(f.Value))
			} else {
				filter[f.Field] = f.Value
			}
		case OpIn:
			if f.Field == FieldDocID {
				filter["_id"] = bson.M{"$in": docIDValues(f.Value)}
			} else {
				filter[f.Field] = bson.M{"$in": f.Value}
			}
		case OpArrayContains:
			// Mongo array equality already matches membership.
			filter[f.Field] = f.Value
		}
	}
	return filter
}

func mongoUpdate(updates []FieldUpdate) bson.M {
	set := bson.M{}
	addToSet := bson.M{}
	pull := bson.M{}
	inc := bson.M{}
	for _, u := range updates {
		switch u.Op {
		case OpSet:
			set[u.Field] = u.Value
		case OpSetAdd:
			addToSet[u.Field] = u.Value
		case OpSetRemove:
			pull[u.Field] = u.Value
		case OpIncrement:
			inc[u.Field] = u.Value
		case OpServerTimestamp:
			set[u.Field] = time.Now().Unix()
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(addToSet) > 0 {
		update["$addToSet"] = addToSet
	}
	if len(pull) > 0 {
		update["$pull"] = pull
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	return update
}

// docIDValue maps a path id onto the _id actually stored: hex strings
// round-trip through ObjectID, anything else stays a string id.
func docIDValue(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func docIDValues(v interface{}) []interface{} {
	ids, ok := v.([]string)
	if !ok {
		return nil
	}
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = docIDValue(id)
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toDocument(raw bson.M, parent string) Document {
	id := ""
	switch v := raw["_id"].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	case string:
		id = v
	}
	delete(raw, "_id")
	delete(raw, parentField)
	return Document{ID: id, Parent: parent, Fields: raw}
}
