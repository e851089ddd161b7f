// Package store is the document store boundary for the whole application.
// Every collection the app touches (posts, users, comments, notifications,
// push subscriptions) is reached through the Store interface, which models
// the primitives of a hosted document database: one-shot reads, live query
// subscriptions delivering full snapshots, and field-level mutations with
// set-add/set-remove semantics.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned by PointRead when the referenced document does
// not exist. Callers surface it as an empty state, not a failure.
var ErrNotFound = errors.New("store: document not found")

// FieldDocID filters on the document id instead of a document field.
const FieldDocID = "_id"

type FilterOp string

const (
	OpEqual         FilterOp = "=="
	OpIn            FilterOp = "in"
	OpArrayContains FilterOp = "array-contains"
)

type Filter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

type Order struct {
	Field string
	Desc  bool
}

// Query describes a filtered, ordered read over one collection path.
// Collection paths are slash-separated and may address a subcollection,
// e.g. "posts" or "users/<uid>/notifications".
type Query struct {
	Collection string
	Filters    []Filter
	Sort       *Order
	Limit      int64
}

// Document is a single document as returned by reads and snapshots.
// Fields never contains the id; use ID.
type Document struct {
	ID     string
	Parent string
	Fields bson.M
}

// Decode unmarshals the document fields into out via bson tags.
func (d Document) Decode(out interface{}) error {
	raw, err := bson.Marshal(d.Fields)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// Snapshot is a full result set pushed to an active subscription whenever
// matching data changes. Subscribers always receive the complete ordered
// document list, never a delta.
type Snapshot struct {
	Docs []Document
}

// Subscription is a live query handle. Cancel is the teardown contract:
// once it returns, no snapshot callback for this subscription will run
// again, in-flight or otherwise.
type Subscription interface {
	Cancel()
}

type UpdateOp string

const (
	OpSet             UpdateOp = "set"
	OpSetAdd          UpdateOp = "setAdd"
	OpSetRemove       UpdateOp = "setRemove"
	OpIncrement       UpdateOp = "increment"
	OpServerTimestamp UpdateOp = "serverTimestamp"
)

// FieldUpdate is one field-level operation inside a Mutate call.
type FieldUpdate struct {
	Field string
	Op    UpdateOp
	Value interface{}
}

func Set(field string, value interface{}) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpSet, Value: value}
}

// SetAdd adds value to a set-valued field. Adding an already-present
// member is a no-op.
func SetAdd(field string, value interface{}) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpSetAdd, Value: value}
}

// SetRemove removes value from a set-valued field. Removing an absent
// member is a no-op.
func SetRemove(field string, value interface{}) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpSetRemove, Value: value}
}

func Increment(field string, delta int64) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpIncrement, Value: delta}
}

// ServerTimestamp sets the field to the store's current time (unix seconds)
// at write application.
func ServerTimestamp(field string) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpServerTimestamp}
}

// Mutation is one entry of a BatchMutate call.
type Mutation struct {
	Path    string
	Updates []FieldUpdate
}

// Store is the full document store capability the application depends on.
//
// Subscribe delivers an initial snapshot and then a new full snapshot after
// every relevant change, in issuance order. Mutations are last-write-wins
// per document; BatchMutate applies all of its entries or none of them.
type Store interface {
	Create(ctx context.Context, collectionPath string, fields bson.M) (string, error)
	PointRead(ctx context.Context, docPath string) (Document, error)
	Read(ctx context.Context, q Query) ([]Document, error)
	Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Subscription, error)
	Mutate(ctx context.Context, docPath string, updates []FieldUpdate) error
	Delete(ctx context.Context, docPath string) error
	BatchMutate(ctx context.Context, muts []Mutation) error
}

// DocPath joins a collection path and a document id.
func DocPath(collectionPath, id string) string {
	return collectionPath + "/" + id
}

// splitCollectionPath splits "users/u1/notifications" into parent
// "users/u1" and leaf collection "notifications". A plain "posts" has an
// empty parent.
func splitCollectionPath(p string) (parent, name string, err error) {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) == 0 || len(segs)%2 == 0 {
		return "", "", fmt.Errorf("store: invalid collection path %q", p)
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// SplitDocPath splits a document path such as "posts/p1/comments/c1" into
// the owning collection path and the document id.
func SplitDocPath(p string) (collectionPath, id string, err error) {
	return splitDocPath(p)
}

// splitDocPath splits "posts/p1/comments/c1" into the owning collection
// path and the document id.
func splitDocPath(p string) (collectionPath, id string, err error) {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", fmt.Errorf("store: invalid document path %q", p)
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}
