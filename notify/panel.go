package notify

import (
	"context"
	"sync"

	"inkwell/models"
	"inkwell/store"
)

// Panel mirrors one user's notification list, newest first. The unread
// count is always derived from the latest snapshot, never maintained as a
// separate counter.
type Panel struct {
	store store.Store
	uid   string

	mu    sync.Mutex
	sub   store.Subscription
	notes []models.Notification
}

func NewPanel(st store.Store, uid string) *Panel {
	return &Panel{store: st, uid: uid}
}

// PanelQuery is the subscription query for one user's notifications.
func PanelQuery(uid string) store.Query {
	return store.Query{
		Collection: models.NotificationsPath(uid),
		Sort:       &store.Order{Field: "createdAt", Desc: true},
	}
}

// Watch subscribes to the user's notifications. onChange fires with the
// full list on every snapshot. Watching again replaces the previous
// subscription after tearing it down.
func (p *Panel) Watch(ctx context.Context, onChange func([]models.Notification)) error {
	p.mu.Lock()
	old := p.sub
	p.sub = nil
	p.mu.Unlock()
	if old != nil {
		old.Cancel()
	}

	sub, err := p.store.Subscribe(ctx, PanelQuery(p.uid), func(snap store.Snapshot) {
		notes, err := models.NotificationsFromDocs(snap.Docs)
		if err != nil {
			return
		}
		p.mu.Lock()
		p.notes = notes
		p.mu.Unlock()
		if onChange != nil {
			onChange(notes)
		}
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.sub = sub
	p.mu.Unlock()
	return nil
}

// Notifications returns the latest snapshot's list.
func (p *Panel) Notifications() []models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Notification, len(p.notes))
	copy(out, p.notes)
	return out
}

// UnreadCount is derived from the latest snapshot.
func (p *Panel) UnreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, note := range p.notes {
		if !note.Read {
			n++
		}
	}
	return n
}

// MarkAllRead flips every currently-loaded unread notification to read in
// one batch, and no others. Opening the panel triggers this.
func (p *Panel) MarkAllRead(ctx context.Context) (int, error) {
	return MarkAllRead(ctx, p.store, p.uid, p.Notifications())
}

// MarkAllRead is the batch read-receipt: one all-or-nothing mutation over
// the unread notifications in the given list.
func MarkAllRead(ctx context.Context, st store.Store, uid string, notes []models.Notification) (int, error) {
	var muts []store.Mutation
	for _, note := range notes {
		if note.Read {
			continue
		}
		muts = append(muts, store.Mutation{
			Path:    store.DocPath(models.NotificationsPath(uid), note.ID),
			Updates: []store.FieldUpdate{store.Set("read", true)},
		})
	}
	if len(muts) == 0 {
		return 0, nil
	}
	if err := st.BatchMutate(ctx, muts); err != nil {
		return 0, err
	}
	return len(muts), nil
}

func (p *Panel) Close() {
	p.mu.Lock()
	old := p.sub
	p.sub = nil
	p.mu.Unlock()
	if old != nil {
		old.Cancel()
	}
}
