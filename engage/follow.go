package engage

import (
	"context"
	"fmt"

	"inkwell/models"
	"inkwell/store"
)

// ErrSelfFollow rejects following your own profile.
var ErrSelfFollow = fmt.Errorf("engage: cannot follow yourself")

// ToggleFollow flips the follow relation between viewer and target. It
// mutates two documents: viewer.following and target.followers. The two
// writes are NOT transactional; if the second write fails the follow graph
// is left asymmetric. That gap is inherited from the data model (per-
// document last-write-wins mutations) and is surfaced as the returned
// error rather than silently repaired.
func ToggleFollow(ctx context.Context, st store.Store, viewerUID, targetUID string) (following bool, err error) {
	if viewerUID == targetUID {
		return false, ErrSelfFollow
	}

	viewerDoc, err := st.PointRead(ctx, models.UserPath(viewerUID))
	if err != nil {
		return false, err
	}
	wasFollowing := isMember(viewerDoc, "following", targetUID)

	var viewerUpdate, targetUpdate store.FieldUpdate
	if wasFollowing {
		viewerUpdate = store.SetRemove("following", targetUID)
		targetUpdate = store.SetRemove("followers", viewerUID)
	} else {
		viewerUpdate = store.SetAdd("following", targetUID)
		targetUpdate = store.SetAdd("followers", viewerUID)
	}

	if err := st.Mutate(ctx, models.UserPath(viewerUID), []store.FieldUpdate{viewerUpdate}); err != nil {
		return wasFollowing, err
	}
	if err := st.Mutate(ctx, models.UserPath(targetUID), []store.FieldUpdate{targetUpdate}); err != nil {
		return !wasFollowing, fmt.Errorf("engage: follower list update failed, graph may be asymmetric: %w", err)
	}
	return !wasFollowing, nil
}
