package blog

import (
	"time"

	"blogicum/internal/db"
)

// Owned is anything with a single author, posts and comments alike.
type Owned interface {
	OwnerID() int64
}

// CanView lets the author and staff see posts that are not public yet.
// A nil actor is an anonymous reader.
func CanView(post *db.Post, actor *db.User, now time.Time) bool {
	if IsVisible(post, now) {
		return true
	}
	if post == nil || actor == nil {
		return false
	}
	return actor.Id == post.AuthorId || actor.IsStaff
}

// CanModify is ownership only. Staff get no edit or delete rights here.
func CanModify(entity Owned, actor *db.User) bool {
	if entity == nil || actor == nil {
		return false
	}
	return actor.Id != 0 && actor.Id == entity.OwnerID()
}
