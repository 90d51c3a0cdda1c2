package db

import "time"

type User struct {
	Id           int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash []byte
	IsStaff      bool
	CreatedAt    time.Time
}

// FullName falls back to the username when no names are set.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

type Category struct {
	Id          int64
	Title       string
	Description string
	Slug        string
	IsPublished bool
	CreatedAt   time.Time
}

type Location struct {
	Id          int64
	Name        string
	IsPublished bool
	CreatedAt   time.Time
}

// Post is loaded together with its author name, category and location.
// Category and Location are nil when the reference is empty.
type Post struct {
	Id             int64
	AuthorId       int64
	AuthorUsername string
	Title          string
	Text           string
	PubDate        time.Time
	IsPublished    bool
	Category       *Category
	Location       *Location
	Image          string
	CreatedAt      time.Time
	CommentCount   int
}

func (p *Post) OwnerID() int64 { return p.AuthorId }

type Comment struct {
	Id             int64
	PostId         int64
	AuthorId       int64
	AuthorUsername string
	Text           string
	IsPublished    bool
	CreatedAt      time.Time
}

func (c *Comment) OwnerID() int64 { return c.AuthorId }
