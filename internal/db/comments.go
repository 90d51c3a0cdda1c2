package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const commentSelect = `
	SELECT cm.id, cm.post_id, cm.author_id, u.username, cm.text, cm.is_published, cm.created_at
	FROM comment cm
	JOIN user u ON u.id = cm.author_id`

func scanComment(row interface{ Scan(...any) error }) (*Comment, error) {
	var c Comment
	err := row.Scan(&c.Id, &c.PostId, &c.AuthorId, &c.AuthorUsername, &c.Text, &c.IsPublished, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns the comments of a post oldest first. Unpublished
// comments are only included for their own author (viewerID); pass 0 for
// anonymous readers.
func (s *Store) ListComments(ctx context.Context, postID, viewerID int64) ([]*Comment, error) {
	rows, err := s.DB.QueryContext(ctx,
		commentSelect+` WHERE cm.post_id = ? AND (cm.is_published = TRUE OR cm.author_id = ?)
		ORDER BY cm.created_at, cm.id`, postID, viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan comment")
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetComment looks a comment up within its post.
func (s *Store) GetComment(ctx context.Context, postID, commentID int64) (*Comment, error) {
	c, err := scanComment(s.DB.QueryRowContext(ctx,
		commentSelect+` WHERE cm.id = ? AND cm.post_id = ?`, commentID, postID))
	if err != nil {
		return nil, notFound(err, "get comment")
	}
	return c, nil
}

func (s *Store) CreateComment(ctx context.Context, c *Comment) (int64, error) {
	c.CreatedAt = timestamp(time.Now())
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO comment (post_id, author_id, text, is_published, created_at) VALUES (?, ?, ?, ?, ?);`,
		c.PostId, c.AuthorId, c.Text, c.IsPublished, c.CreatedAt)
	if err != nil {
		return 0, errors.Wrap(err, "insert comment")
	}
	c.Id, err = res.LastInsertId()
	return c.Id, err
}

func (s *Store) EditComment(ctx context.Context, id int64, text string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE comment SET text = ? WHERE id = ?;`, text, id)
	if err != nil {
		return errors.Wrap(err, "edit comment")
	}
	return requireRow(res, "edit comment")
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM comment WHERE id = ?;`, id)
	if err != nil {
		return errors.Wrap(err, "delete comment")
	}
	return requireRow(res, "delete comment")
}
