package models

import "inkwell/store"

type User struct {
	UID               string   `bson:"-" json:"uid"`
	Email             string   `bson:"email" json:"email"`
	PasswordHash      string   `bson:"passwordHash" json:"-"`
	Username          string   `bson:"username" json:"username"`
	Bio               string   `bson:"bio" json:"bio"`
	ProfilePictureURL string   `bson:"profilePictureURL" json:"profilePictureURL"`
	CoverPhotoURL     string   `bson:"coverPhotoURL" json:"coverPhotoURL"`
	Followers         []string `bson:"followers" json:"followers"`
	Following         []string `bson:"following" json:"following"`
	ReadingList       []string `bson:"readingList" json:"readingList"` // post ids
	NotifyOnLike      bool     `bson:"notifyOnLike" json:"notifyOnLike"`
	NotifyOnComment   bool     `bson:"notifyOnComment" json:"notifyOnComment"`
	CreatedAt         int64    `bson:"createdAt" json:"createdAt"`
}

func UserFromDoc(d store.Document) (User, error) {
	var u User
	if err := d.Decode(&u); err != nil {
		return User{}, err
	}
	u.UID = d.ID
	return u, nil
}

// Session is the authenticated viewer identity threaded through every
// component that acts on the viewer's behalf. There is no global current
// user; a session is built per request or per connection and torn down
// with it.
type Session struct {
	UID        string
	Username   string
	ProfilePic string
}

func (u User) Session() *Session {
	return &Session{UID: u.UID, Username: u.Username, ProfilePic: u.ProfilePictureURL}
}
