package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

func (s *Store) CreateLocation(ctx context.Context, location *Location) (int64, error) {
	location.CreatedAt = timestamp(time.Now())
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO location (name, is_published, created_at) VALUES (?, ?, ?);`,
		location.Name, location.IsPublished, location.CreatedAt)
	if err != nil {
		return 0, errors.Wrap(err, "insert location")
	}
	location.Id, err = res.LastInsertId()
	return location.Id, err
}

func (s *Store) ListLocations(ctx context.Context) ([]*Location, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, is_published, created_at FROM location ORDER BY name, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list locations")
	}
	defer rows.Close()

	var locations []*Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.Id, &l.Name, &l.IsPublished, &l.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan location")
		}
		locations = append(locations, &l)
	}
	return locations, rows.Err()
}

func (s *Store) SetLocationPublished(ctx context.Context, id int64, published bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE location SET is_published = ? WHERE id = ?;`, published, id)
	if err != nil {
		return errors.Wrap(err, "publish location")
	}
	return requireRow(res, "publish location")
}

// DeleteLocation removes the location and empties the reference on its posts.
func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM location WHERE id = ?;`, id)
	if err != nil {
		return errors.Wrap(err, "delete location")
	}
	return requireRow(res, "delete location")
}

func (s *Store) GetLocation(ctx context.Context, id int64) (*Location, error) {
	var l Location
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, is_published, created_at FROM location WHERE id = ?`, id).
		Scan(&l.Id, &l.Name, &l.IsPublished, &l.CreatedAt)
	if err != nil {
		return nil, notFound(err, "get location")
	}
	return &l, nil
}
