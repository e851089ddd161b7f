package store

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSplitDocPath(t *testing.T) {
	coll, id, err := SplitDocPath("posts/p1")
	assert.Equal(t, err, nil)
	assert.Equal(t, coll, "posts")
	assert.Equal(t, id, "p1")

	coll, id, err = SplitDocPath("users/u1/notifications/n1")
	assert.Equal(t, err, nil)
	assert.Equal(t, coll, "users/u1/notifications")
	assert.Equal(t, id, "n1")
}

func TestSplitDocPathRejectsCollectionPaths(t *testing.T) {
	_, _, err := SplitDocPath("posts")
	assert.NotEqual(t, err, nil)

	_, _, err = SplitDocPath("users/u1/notifications")
	assert.NotEqual(t, err, nil)

	_, _, err = SplitDocPath("")
	assert.NotEqual(t, err, nil)
}

func TestDocPath(t *testing.T) {
	assert.Equal(t, DocPath("posts", "p1"), "posts/p1")
	assert.Equal(t, DocPath("users/u1/notifications", "n1"), "users/u1/notifications/n1")
}
