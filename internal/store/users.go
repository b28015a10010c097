package store

import (
	"context"
	"database/sql"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

const userColumns = `id, email, name, password, role, is_active, created_at`

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser is mainly for seeding via the CLI.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Password, u.Role, u.IsActive, u.CreatedAt)
	return err
}
