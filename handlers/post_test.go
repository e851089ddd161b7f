package handlers

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"inkwell/models"
	"inkwell/store"
)

func updateFor(updates []store.FieldUpdate, field string) (store.FieldUpdate, bool) {
	for _, u := range updates {
		if u.Field == field {
			return u, true
		}
	}
	return store.FieldUpdate{}, false
}

func TestBuildPostUpdateFirstPublishSetsPublishedAt(t *testing.T) {
	existing := models.Post{Status: models.StatusDraft, PublishedAt: 0}
	req := SavePostRequest{Title: "t", Content: "c", Status: models.StatusPublished}

	updates := buildPostUpdate(existing, req, 500)

	u, ok := updateFor(updates, "publishedAt")
	assert.Equal(t, ok, true)
	assert.Equal(t, u.Value, int64(500))
}

func TestBuildPostUpdateRepublishKeepsPublishedAt(t *testing.T) {
	existing := models.Post{Status: models.StatusPublished, PublishedAt: 100}
	req := SavePostRequest{Title: "t", Content: "c", Status: models.StatusPublished}

	updates := buildPostUpdate(existing, req, 500)

	_, ok := updateFor(updates, "publishedAt")
	assert.Equal(t, ok, false)

	u, ok := updateFor(updates, "lastUpdatedAt")
	assert.Equal(t, ok, true)
	assert.Equal(t, u.Value, int64(500))
}

func TestBuildPostUpdateDraftEditNeverPublishes(t *testing.T) {
	existing := models.Post{Status: models.StatusDraft, PublishedAt: 0}
	req := SavePostRequest{Title: "t", Content: "c", Status: models.StatusDraft}

	updates := buildPostUpdate(existing, req, 500)

	_, ok := updateFor(updates, "publishedAt")
	assert.Equal(t, ok, false)
}

func TestBuildPostUpdateUnpublishKeepsPublishedAt(t *testing.T) {
	// Moving a published post back to draft leaves its original
	// publishedAt intact; re-publishing later must not move it.
	existing := models.Post{Status: models.StatusPublished, PublishedAt: 100}
	req := SavePostRequest{Title: "t", Content: "c", Status: models.StatusDraft}

	updates := buildPostUpdate(existing, req, 500)

	_, ok := updateFor(updates, "publishedAt")
	assert.Equal(t, ok, false)

	u, _ := updateFor(updates, "status")
	assert.Equal(t, u.Value, models.StatusDraft)
}

func TestBuildPostUpdateNilCategories(t *testing.T) {
	existing := models.Post{Status: models.StatusDraft}
	req := SavePostRequest{Title: "t", Status: models.StatusDraft, Categories: nil}

	updates := buildPostUpdate(existing, req, 500)

	u, ok := updateFor(updates, "categories")
	assert.Equal(t, ok, true)
	assert.Equal(t, u.Value, []string{})
}
