package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const userColumns = `id, username, first_name, last_name, email, password, is_staff, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var user User
	err := row.Scan(&user.Id, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.PasswordHash, &user.IsStaff, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *User) (int64, error) {
	user.CreatedAt = timestamp(time.Now())
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO user (username, first_name, last_name, email, password, is_staff, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?);`,
		user.Username, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.IsStaff, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, errors.Wrap(err, "insert user")
	}
	user.Id, err = res.LastInsertId()
	return user.Id, err
}

func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM user WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM user WHERE username = ?", username)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "get user by username")
	}
	return user, nil
}

// UpdateProfile changes the public profile fields. Password and staff flag
// are left untouched.
func (s *Store) UpdateProfile(ctx context.Context, user *User) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE user SET username = ?, first_name = ?, last_name = ?, email = ? WHERE id = ?;`,
		user.Username, user.FirstName, user.LastName, user.Email, user.Id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "update user")
	}
	return requireRow(res, "update user")
}

func (s *Store) SetStaff(ctx context.Context, id int64, staff bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE user SET is_staff = ? WHERE id = ?;`, staff, id)
	if err != nil {
		return errors.Wrap(err, "set staff")
	}
	return requireRow(res, "set staff")
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM user WHERE id = ?;`, id)
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	return requireRow(res, "delete user")
}
