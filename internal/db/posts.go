package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const postSelect = `
	SELECT p.id, p.author_id, u.username, p.title, p.text, p.pub_date, p.is_published,
		p.image, p.created_at,
		c.id, c.title, c.slug, c.is_published,
		l.id, l.name, l.is_published,
		(SELECT COUNT(*) FROM comment cm WHERE cm.post_id = p.id)
	FROM post p
	JOIN user u ON u.id = p.author_id
	LEFT JOIN category c ON c.id = p.category_id
	LEFT JOIN location l ON l.id = p.location_id`

// VisibleClause is the publication rule as a SQL predicate over the post
// (p) and category (c) aliases. It takes the current time as its only
// argument.
const VisibleClause = `p.is_published = TRUE AND c.is_published = TRUE AND p.pub_date <= ?`

type postQuery struct {
	where  []string
	args   []any
	limit  int
	offset int
}

type PostOption func(*postQuery)

func WithLimit(limit int) PostOption {
	return func(q *postQuery) {
		q.limit = limit
	}
}

func WithOffset(offset int) PostOption {
	return func(q *postQuery) {
		q.offset = offset
	}
}

// Visible keeps only posts that are publicly visible at now.
func Visible(now time.Time) PostOption {
	return func(q *postQuery) {
		q.where = append(q.where, VisibleClause)
		q.args = append(q.args, now.UTC())
	}
}

func InCategory(categoryID int64) PostOption {
	return func(q *postQuery) {
		q.where = append(q.where, "p.category_id = ?")
		q.args = append(q.args, categoryID)
	}
}

func ByAuthor(authorID int64) PostOption {
	return func(q *postQuery) {
		q.where = append(q.where, "p.author_id = ?")
		q.args = append(q.args, authorID)
	}
}

func buildPostQuery(opts []PostOption) *postQuery {
	q := &postQuery{}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *postQuery) whereSQL() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	var (
		post                       Post
		catID, locID               sql.NullInt64
		catTitle, catSlug, locName sql.NullString
		catPublished, locPublished sql.NullBool
	)
	err := row.Scan(&post.Id, &post.AuthorId, &post.AuthorUsername, &post.Title, &post.Text,
		&post.PubDate, &post.IsPublished, &post.Image, &post.CreatedAt,
		&catID, &catTitle, &catSlug, &catPublished,
		&locID, &locName, &locPublished,
		&post.CommentCount)
	if err != nil {
		return nil, err
	}
	if catID.Valid {
		post.Category = &Category{
			Id:          catID.Int64,
			Title:       catTitle.String,
			Slug:        catSlug.String,
			IsPublished: catPublished.Bool,
		}
	}
	if locID.Valid {
		post.Location = &Location{
			Id:          locID.Int64,
			Name:        locName.String,
			IsPublished: locPublished.Bool,
		}
	}
	return &post, nil
}

// ListPosts returns posts newest first by publication date.
func (s *Store) ListPosts(ctx context.Context, opts ...PostOption) ([]*Post, error) {
	q := buildPostQuery(opts)
	stmt := postSelect + q.whereSQL() + " ORDER BY p.pub_date DESC, p.id DESC"
	args := q.args
	if q.limit > 0 {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, q.limit, q.offset)
	}

	rows, err := s.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan post")
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// CountPosts counts the posts matching the filter options; limit and offset
// are ignored.
func (s *Store) CountPosts(ctx context.Context, opts ...PostOption) (int, error) {
	q := buildPostQuery(opts)
	stmt := `SELECT COUNT(*) FROM post p LEFT JOIN category c ON c.id = p.category_id` + q.whereSQL()

	var count int
	if err := s.DB.QueryRowContext(ctx, stmt, q.args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count posts")
	}
	return count, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	post, err := scanPost(s.DB.QueryRowContext(ctx, postSelect+" WHERE p.id = ?", id))
	if err != nil {
		return nil, notFound(err, "get post")
	}
	return post, nil
}

func categoryID(p *Post) sql.NullInt64 {
	if p.Category == nil {
		return sql.NullInt64{}
	}
	return nullID(p.Category.Id)
}

func locationID(p *Post) sql.NullInt64 {
	if p.Location == nil {
		return sql.NullInt64{}
	}
	return nullID(p.Location.Id)
}

func (s *Store) CreatePost(ctx context.Context, post *Post) (int64, error) {
	post.CreatedAt = timestamp(time.Now())
	post.PubDate = timestamp(post.PubDate)
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO post (author_id, category_id, location_id, title, text, pub_date, is_published, image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		post.AuthorId, categoryID(post), locationID(post), post.Title, post.Text,
		post.PubDate, post.IsPublished, post.Image, post.CreatedAt)
	if err != nil {
		return 0, errors.Wrap(err, "insert post")
	}
	post.Id, err = res.LastInsertId()
	return post.Id, err
}

// EditPost rewrites the editable fields of a post. Author and publication
// flag are not changed here.
func (s *Store) EditPost(ctx context.Context, post *Post) error {
	post.PubDate = timestamp(post.PubDate)
	res, err := s.DB.ExecContext(ctx,
		`UPDATE post SET category_id = ?, location_id = ?, title = ?, text = ?, pub_date = ?, image = ?
		WHERE id = ?;`,
		categoryID(post), locationID(post), post.Title, post.Text, post.PubDate, post.Image, post.Id)
	if err != nil {
		return errors.Wrap(err, "edit post")
	}
	return requireRow(res, "edit post")
}

func (s *Store) SetPostPublished(ctx context.Context, id int64, published bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE post SET is_published = ? WHERE id = ?;`, published, id)
	if err != nil {
		return errors.Wrap(err, "publish post")
	}
	return requireRow(res, "publish post")
}

// DeletePost removes the post together with its comments.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM post WHERE id = ?;`, id)
	if err != nil {
		return errors.Wrap(err, "delete post")
	}
	return requireRow(res, "delete post")
}
