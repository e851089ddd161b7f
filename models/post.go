package models

import "inkwell/store"

// Post status values. publishedAt is assigned exactly once, at the first
// draft -> published transition.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Post struct {
	ID               string   `bson:"-" json:"id"`
	Title            string   `bson:"title" json:"title"`
	Content          string   `bson:"content" json:"content"` // opaque rich-text HTML
	AuthorID         string   `bson:"authorId" json:"authorId"`
	AuthorUsername   string   `bson:"authorUsername" json:"authorUsername"`
	AuthorProfilePic string   `bson:"authorProfilePic" json:"authorProfilePic"`
	Categories       []string `bson:"categories" json:"categories"`
	Status           string   `bson:"status" json:"status"`
	Likes            []string `bson:"likes" json:"likes"`
	ViewCount        int64    `bson:"viewCount" json:"viewCount"`
	CreatedAt        int64    `bson:"createdAt" json:"createdAt"`
	PublishedAt      int64    `bson:"publishedAt" json:"publishedAt"` // 0 while draft
	LastUpdatedAt    int64    `bson:"lastUpdatedAt" json:"lastUpdatedAt"`
}

func PostFromDoc(d store.Document) (Post, error) {
	var p Post
	if err := d.Decode(&p); err != nil {
		return Post{}, err
	}
	p.ID = d.ID
	return p, nil
}

func PostsFromDocs(docs []store.Document) ([]Post, error) {
	posts := make([]Post, 0, len(docs))
	for _, d := range docs {
		p, err := PostFromDoc(d)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}
