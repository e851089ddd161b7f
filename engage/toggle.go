// Package engage implements the membership toggle used by likes, bookmarks
// and follows: watch a set-valued field for the viewer's membership, and
// flip membership with an add or remove mutation. The add and remove
// operations are idempotent at the data level, so repeated or racing
// toggles are safe by construction.
package engage

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"inkwell/store"
)

// ToggleMembership flips membership of member in the set-valued field of
// the document at docPath, and reports the resulting membership. The
// decision is made against the store's current state, never a locally
// cached one.
func ToggleMembership(ctx context.Context, st store.Store, docPath, field, member string) (nowSet bool, err error) {
	doc, err := st.PointRead(ctx, docPath)
	if err != nil {
		return false, err
	}
	if isMember(doc, field, member) {
		return false, st.Mutate(ctx, docPath, []store.FieldUpdate{store.SetRemove(field, member)})
	}
	return true, st.Mutate(ctx, docPath, []store.FieldUpdate{store.SetAdd(field, member)})
}

// Toggle is the live variant: it subscribes to the target document and
// derives a boolean membership flag from every snapshot. The displayed
// state is always the last snapshot from the store; there is no optimistic
// local update.
type Toggle struct {
	store   store.Store
	docPath string
	field   string
	member  string

	mu    sync.Mutex
	sub   store.Subscription
	isSet bool
}

func NewToggle(st store.Store, docPath, field, member string) *Toggle {
	return &Toggle{store: st, docPath: docPath, field: field, member: member}
}

// Watch subscribes to the target document. onChange fires with the derived
// membership flag on every snapshot. Watching again replaces the previous
// subscription after tearing it down.
func (t *Toggle) Watch(ctx context.Context, onChange func(bool)) error {
	collectionPath, id, err := splitTarget(t.docPath)
	if err != nil {
		return err
	}

	t.mu.Lock()
	old := t.sub
	t.sub = nil
	t.mu.Unlock()
	if old != nil {
		old.Cancel()
	}

	q := store.Query{
		Collection: collectionPath,
		Filters:    []store.Filter{{Field: store.FieldDocID, Op: store.OpEqual, Value: id}},
	}
	sub, err := t.store.Subscribe(ctx, q, func(snap store.Snapshot) {
		set := false
		for _, doc := range snap.Docs {
			if doc.ID == id {
				set = isMember(doc, t.field, t.member)
			}
		}
		t.mu.Lock()
		t.isSet = set
		t.mu.Unlock()
		if onChange != nil {
			onChange(set)
		}
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
	return nil
}

// IsSet reports the membership flag from the last snapshot.
func (t *Toggle) IsSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isSet
}

// Flip toggles membership against the store's current state.
func (t *Toggle) Flip(ctx context.Context) (bool, error) {
	return ToggleMembership(ctx, t.store, t.docPath, t.field, t.member)
}

func (t *Toggle) Close() {
	t.mu.Lock()
	old := t.sub
	t.sub = nil
	t.mu.Unlock()
	if old != nil {
		old.Cancel()
	}
}

func isMember(doc store.Document, field, member string) bool {
	switch vals := doc.Fields[field].(type) {
	case []string:
		for _, v := range vals {
			if v == member {
				return true
			}
		}
	case bson.A:
		for _, v := range vals {
			if s, ok := v.(string); ok && s == member {
				return true
			}
		}
	case []interface{}:
		for _, v := range vals {
			if s, ok := v.(string); ok && s == member {
				return true
			}
		}
	}
	return false
}

func splitTarget(docPath string) (collectionPath, id string, err error) {
	return store.SplitDocPath(docPath)
}
