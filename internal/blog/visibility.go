// Package blog holds the publication and ownership rules shared by every
// listing and detail view, plus the paginator used by the feeds.
package blog

import (
	"time"

	"blogicum/internal/db"
)

// IsVisible reports whether post may be shown to anyone at now: the post
// and its category are published and the publication date has passed.
// A post without a category is never visible.
func IsVisible(post *db.Post, now time.Time) bool {
	if post == nil || !post.IsPublished {
		return false
	}
	if post.Category == nil || !post.Category.IsPublished {
		return false
	}
	return !post.PubDate.After(now)
}
