package feed

import (
	"context"
	"sync"

	"inkwell/logx"
	"inkwell/models"
	"inkwell/store"
)

// State is the derived view a synchronizer publishes after each snapshot.
// Posts is the full ordered list; Trending is the post with the highest
// view count in the same snapshot (global mode only).
type State struct {
	Mode     Mode
	Loading  bool
	Posts    []models.Post
	Trending *models.Post
}

// Synchronizer owns at most one live feed subscription. SetMode tears the
// previous subscription down before establishing the next one, and a
// generation counter discards any snapshot from a superseded subscription,
// so a stale callback can never mutate state.
type Synchronizer struct {
	store    store.Store
	onChange func(State) // called outside the lock, may be nil

	mu    sync.Mutex
	gen   uint64
	sub   store.Subscription
	state State
}

func NewSynchronizer(st store.Store, onChange func(State)) *Synchronizer {
	return &Synchronizer{
		store:    st,
		onChange: onChange,
		state:    State{Mode: ModeGlobal, Loading: true},
	}
}

// SetMode switches the feed to the given mode for the given viewer. On any
// failure of the prerequisite read the synchronizer settles to an empty,
// non-loading state and returns the error.
func (s *Synchronizer) SetMode(ctx context.Context, mode Mode, viewer *models.Session) error {
	old := s.detach(mode)
	if old != nil {
		old.Cancel()
	}

	q, empty, err := SelectQuery(ctx, s.store, mode, viewer)
	if err != nil {
		s.publish(State{Mode: mode})
		return err
	}
	if empty {
		s.publish(State{Mode: mode})
		return nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	sub, err := s.store.Subscribe(ctx, q, func(snap store.Snapshot) {
		s.apply(gen, mode, snap)
	})
	if err != nil {
		s.publish(State{Mode: mode})
		return err
	}

	s.mu.Lock()
	if gen != s.gen {
		// Superseded while subscribing.
		s.mu.Unlock()
		sub.Cancel()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// detach invalidates the current subscription generation and returns the
// old subscription for cancellation outside the lock.
func (s *Synchronizer) detach(mode Mode) store.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	old := s.sub
	s.sub = nil
	s.state = State{Mode: mode, Loading: true}
	return old
}

func (s *Synchronizer) apply(gen uint64, mode Mode, snap store.Snapshot) {
	posts, err := models.PostsFromDocs(snap.Docs)
	if err != nil {
		logx.Warn.Printf("feed snapshot decode failed, publishing empty %s feed: %v", mode, err)
		posts = nil
	}

	next := State{Mode: mode, Posts: posts}
	if mode == ModeGlobal {
		next.Trending = TrendingPost(posts)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(next)
	}
}

func (s *Synchronizer) publish(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(next)
	}
}

// State returns a copy of the last published state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears down the active subscription, if any.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.gen++
	old := s.sub
	s.sub = nil
	s.mu.Unlock()
	if old != nil {
		old.Cancel()
	}
}

// TrendingPost is a pure function over one snapshot: the post with the
// highest view count, never a separately maintained counter.
func TrendingPost(posts []models.Post) *models.Post {
	var top *models.Post
	for i := range posts {
		if top == nil || posts[i].ViewCount > top.ViewCount {
			top = &posts[i]
		}
	}
	if top == nil {
		return nil
	}
	cp := *top
	return &cp
}
