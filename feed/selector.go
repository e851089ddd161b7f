// Package feed builds feed queries and keeps live feed views in sync with
// the document store.
package feed

import (
	"context"
	"errors"

	"inkwell/models"
	"inkwell/store"
)

type Mode string

const (
	ModeGlobal    Mode = "global"
	ModeFollowing Mode = "following"
)

// ErrViewerRequired is returned when the following feed is requested
// without an authenticated viewer.
var ErrViewerRequired = errors.New("feed: following feed requires a viewer")

// MaxFollowingFilter is the practical ceiling on membership filters in the
// underlying store's query engine. A following list longer than this still
// issues a single query and is never truncated here, but selection beyond
// the ceiling is not guaranteed by the store. Scaling past it needs a
// different feed design (fan-out on write), which this service does not do.
const MaxFollowingFilter = 30

// SelectQuery builds the query for a feed mode.
//
// For the following feed the viewer's following list is resolved with a
// prerequisite point read (not a subscription). An empty following list
// yields empty=true and no query: the caller must settle to an empty,
// non-loading state without subscribing.
func SelectQuery(ctx context.Context, st store.Store, mode Mode, viewer *models.Session) (q store.Query, empty bool, err error) {
	switch mode {
	case ModeFollowing:
		if viewer == nil {
			return store.Query{}, false, ErrViewerRequired
		}
		doc, err := st.PointRead(ctx, models.UserPath(viewer.UID))
		if err != nil {
			return store.Query{}, false, err
		}
		user, err := models.UserFromDoc(doc)
		if err != nil {
			return store.Query{}, false, err
		}
		if len(user.Following) == 0 {
			return store.Query{}, true, nil
		}
		return store.Query{
			Collection: models.CollPosts,
			Filters: []store.Filter{
				{Field: "status", Op: store.OpEqual, Value: models.StatusPublished},
				{Field: "authorId", Op: store.OpIn, Value: user.Following},
			},
			Sort: &store.Order{Field: "publishedAt", Desc: true},
		}, false, nil

	default: // global
		return store.Query{
			Collection: models.CollPosts,
			Filters: []store.Filter{
				{Field: "status", Op: store.OpEqual, Value: models.StatusPublished},
			},
			Sort: &store.Order{Field: "publishedAt", Desc: true},
		}, false, nil
	}
}
