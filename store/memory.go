package store

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store. Snapshots are delivered synchronously on
// the mutating goroutine, so every subscriber sees them in issuance order.
// It backs the test suites and local development without a database.
type Memory struct {
	mu    sync.Mutex
	colls map[string]map[string]bson.M // collection path -> id -> fields
	subs  map[int64]*memSub
	nextID int64

	// Now is the clock used for ServerTimestamp fields. Tests may replace it.
	Now func() int64
}

type memSub struct {
	store *Memory
	id    int64
	query Query
	fn    func(Snapshot)

	deliver  sync.Mutex
	canceled bool
}

func NewMemory() *Memory {
	return &Memory{
		colls: make(map[string]map[string]bson.M),
		subs:  make(map[int64]*memSub),
		Now:   func() int64 { return time.Now().Unix() },
	}
}

func (m *Memory) Create(ctx context.Context, collectionPath string, fields bson.M) (string, error) {
	if _, _, err := splitCollectionPath(collectionPath); err != nil {
		return "", err
	}
	id := primitive.NewObjectID().Hex()

	m.mu.Lock()
	coll := m.colls[collectionPath]
	if coll == nil {
		coll = make(map[string]bson.M)
		m.colls[collectionPath] = coll
	}
	stored := make(bson.M, len(fields))
	for k, v := range fields {
		stored[k] = v
	}
	coll[id] = stored
	subs := m.subsFor(collectionPath)
	m.mu.Unlock()

	m.notify(subs)
	return id, nil
}

func (m *Memory) PointRead(ctx context.Context, docPath string) (Document, error) {
	collectionPath, id, err := splitDocPath(docPath)
	if err != nil {
		return Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.colls[collectionPath][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	parent, _, _ := splitCollectionPath(collectionPath)
	return Document{ID: id, Parent: parent, Fields: copyFields(fields)}, nil
}

func (m *Memory) Read(ctx context.Context, q Query) ([]Document, error) {
	if _, _, err := splitCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluate(q), nil
}

func (m *Memory) Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Subscription, error) {
	if _, _, err := splitCollectionPath(q.Collection); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.nextID++
	sub := &memSub{store: m, id: m.nextID, query: q, fn: fn}
	m.subs[sub.id] = sub
	docs := m.evaluate(q)
	// Hold the delivery lock across the store unlock so a concurrent write
	// cannot slip its snapshot in ahead of the initial one.
	sub.deliver.Lock()
	m.mu.Unlock()

	sub.fn(Snapshot{Docs: docs})
	sub.deliver.Unlock()
	return sub, nil
}

func (m *Memory) Mutate(ctx context.Context, docPath string, updates []FieldUpdate) error {
	collectionPath, id, err := splitDocPath(docPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	fields, ok := m.colls[collectionPath][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.applyUpdates(fields, updates)
	subs := m.subsFor(collectionPath)
	m.mu.Unlock()

	m.notify(subs)
	return nil
}

func (m *Memory) Delete(ctx context.Context, docPath string) error {
	collectionPath, id, err := splitDocPath(docPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, ok := m.colls[collectionPath][id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.colls[collectionPath], id)
	subs := m.subsFor(collectionPath)
	m.mu.Unlock()

	m.notify(subs)
	return nil
}

// BatchMutate applies every entry or none: all target documents are
// checked for existence before the first update is applied.
func (m *Memory) BatchMutate(ctx context.Context, muts []Mutation) error {
	type target struct {
		collectionPath, id string
	}
	targets := make([]target, len(muts))

	m.mu.Lock()
	for i, mut := range muts {
		collectionPath, id, err := splitDocPath(mut.Path)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		if _, ok := m.colls[collectionPath][id]; !ok {
			m.mu.Unlock()
			return ErrNotFound
		}
		targets[i] = target{collectionPath, id}
	}
	affected := make(map[string]bool)
	for i, mut := range muts {
		m.applyUpdates(m.colls[targets[i].collectionPath][targets[i].id], mut.Updates)
		affected[targets[i].collectionPath] = true
	}
	var subs []*memSub
	for p := range affected {
		subs = append(subs, m.subsFor(p)...)
	}
	m.mu.Unlock()

	m.notify(subs)
	return nil
}

// ActiveSubscriptions reports how many live subscriptions exist.
func (m *Memory) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// subsFor is called with m.mu held.
func (m *Memory) subsFor(collectionPath string) []*memSub {
	var out []*memSub
	for _, s := range m.subs {
		if s.query.Collection == collectionPath {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (m *Memory) notify(subs []*memSub) {
	for _, s := range subs {
		m.mu.Lock()
		docs := m.evaluate(s.query)
		m.mu.Unlock()
		s.push(Snapshot{Docs: docs})
	}
}

func (s *memSub) push(snap Snapshot) {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.canceled {
		return
	}
	s.fn(snap)
}

// Cancel removes the subscription. It blocks until any in-flight delivery
// has finished; afterwards the callback never runs again.
func (s *memSub) Cancel() {
	s.store.mu.Lock()
	delete(s.store.subs, s.id)
	s.store.mu.Unlock()

	s.deliver.Lock()
	s.canceled = true
	s.deliver.Unlock()
}

// evaluate is called with m.mu held.
func (m *Memory) evaluate(q Query) []Document {
	parent, _, _ := splitCollectionPath(q.Collection)
	var docs []Document
	for id, fields := range m.colls[q.Collection] {
		if !matches(q.Filters, id, fields) {
			continue
		}
		docs = append(docs, Document{ID: id, Parent: parent, Fields: copyFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool {
		if q.Sort == nil {
			return docs[i].ID < docs[j].ID
		}
		less := compareValues(docs[i].Fields[q.Sort.Field], docs[j].Fields[q.Sort.Field])
		if less == 0 {
			return docs[i].ID < docs[j].ID
		}
		if q.Sort.Desc {
			return less > 0
		}
		return less < 0
	})
	if q.Limit > 0 && int64(len(docs)) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

func matches(filters []Filter, id string, fields bson.M) bool {
	for _, f := range filters {
		var v interface{}
		if f.Field == FieldDocID {
			v = id
		} else {
			v = fields[f.Field]
		}
		switch f.Op {
		case OpEqual:
			if !reflect.DeepEqual(v, f.Value) {
				return false
			}
		case OpIn:
			if !memberOf(f.Value, v) {
				return false
			}
		case OpArrayContains:
			if !memberOf(v, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// memberOf reports whether needle appears in the slice-valued haystack.
func memberOf(haystack, needle interface{}) bool {
	rv := reflect.ValueOf(haystack)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if reflect.DeepEqual(rv.Index(i).Interface(), needle) {
			return true
		}
	}
	return false
}

func compareValues(a, b interface{}) int {
	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// applyUpdates is called with m.mu held.
func (m *Memory) applyUpdates(fields bson.M, updates []FieldUpdate) {
	for _, u := range updates {
		switch u.Op {
		case OpSet:
			fields[u.Field] = u.Value
		case OpSetAdd:
			cur := toSlice(fields[u.Field])
			if !memberOf(cur, u.Value) {
				fields[u.Field] = append(cur, u.Value)
			}
		case OpSetRemove:
			cur := toSlice(fields[u.Field])
			next := make(bson.A, 0, len(cur))
			for _, v := range cur {
				if !reflect.DeepEqual(v, u.Value) {
					next = append(next, v)
				}
			}
			fields[u.Field] = next
		case OpIncrement:
			cur, _ := toInt64(fields[u.Field])
			delta, _ := toInt64(u.Value)
			fields[u.Field] = cur + delta
		case OpServerTimestamp:
			fields[u.Field] = m.Now()
		}
	}
}

func toSlice(v interface{}) bson.A {
	switch s := v.(type) {
	case bson.A:
		return s
	case []interface{}:
		return bson.A(s)
	case []string:
		out := make(bson.A, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case nil:
		return bson.A{}
	}
	return bson.A{}
}

func copyFields(fields bson.M) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
