// postgres.go - Postgres-backed user and file stores over database/sql.
package server

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PostgresUserStore implements userStore on top of the users table.
type PostgresUserStore struct {
	DB *sql.DB
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, role, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, u.Username, u.PasswordHash, string(u.Role), u.IsActive, u.IsStaff, u.IsSuperuser)
	return err
}

func (s *PostgresUserStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.DB.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, role, is_active, is_staff, is_superuser, created_at
		FROM users WHERE email = $1
	`, email))
}

func (s *PostgresUserStore) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.scanUser(s.DB.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, role, is_active, is_staff, is_superuser, created_at
		FROM users WHERE id = $1
	`, id))
}

func (s *PostgresUserStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func (s *PostgresUserStore) CredentialsTaken(ctx context.Context, email, username string) (bool, error) {
	var taken bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)`,
		email, username,
	).Scan(&taken)
	return taken, err
}

func (s *PostgresUserStore) ActivateUser(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNotFound
	}
	return nil
}

// PostgresFileStore implements fileStore on top of the files table.
type PostgresFileStore struct {
	DB *sql.DB
}

func (s *PostgresFileStore) CreateFile(ctx context.Context, f *File) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO files (id, filename, object_key, uploader_id)
		VALUES ($1, $2, $3, $4)
	`, f.ID, f.Filename, f.ObjectKey, f.UploaderID)
	return err
}

func (s *PostgresFileStore) FileByID(ctx context.Context, id uuid.UUID) (*File, error) {
	var f File
	err := s.DB.QueryRowContext(ctx, `
		SELECT f.id, f.filename, f.object_key, f.uploader_id, u.username, f.uploaded_at
		FROM files f JOIN users u ON u.id = f.uploader_id
		WHERE f.id = $1
	`, id).Scan(&f.ID, &f.Filename, &f.ObjectKey, &f.UploaderID, &f.UploaderName, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *PostgresFileStore) ListFiles(ctx context.Context) ([]File, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT f.id, f.filename, f.object_key, f.uploader_id, u.username, f.uploaded_at
		FROM files f JOIN users u ON u.id = f.uploader_id
		ORDER BY f.uploaded_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Filename, &f.ObjectKey, &f.UploaderID, &f.UploaderName, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
