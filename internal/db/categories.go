package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

func requireRow(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, category *Category) (int64, error) {
	category.CreatedAt = timestamp(time.Now())
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO category (title, description, slug, is_published, created_at) VALUES (?, ?, ?, ?, ?);`,
		category.Title, category.Description, category.Slug, category.IsPublished, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, errors.Wrap(err, "insert category")
	}
	category.Id, err = res.LastInsertId()
	return category.Id, err
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, description, slug, is_published, created_at FROM category WHERE id = ?`, id).
		Scan(&c.Id, &c.Title, &c.Description, &c.Slug, &c.IsPublished, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "get category")
	}
	return &c, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, description, slug, is_published, created_at FROM category WHERE slug = ?`, slug).
		Scan(&c.Id, &c.Title, &c.Description, &c.Slug, &c.IsPublished, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "get category by slug")
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, title, description, slug, is_published, created_at FROM category ORDER BY title, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Id, &c.Title, &c.Description, &c.Slug, &c.IsPublished, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

func (s *Store) SetCategoryPublished(ctx context.Context, id int64, published bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE category SET is_published = ? WHERE id = ?;`, published, id)
	if err != nil {
		return errors.Wrap(err, "publish category")
	}
	return requireRow(res, "publish category")
}

// DeleteCategory removes the category; posts referencing it keep existing
// with an empty category.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM category WHERE id = ?;`, id)
	if err != nil {
		return errors.Wrap(err, "delete category")
	}
	return requireRow(res, "delete category")
}
