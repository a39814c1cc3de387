// store.go - Domain records and the ports the handlers depend on.
//
// Handlers never touch SQL, MinIO, or SMTP directly; they go through
// these interfaces so tests can swap in-memory fakes.
package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var errNotFound = errors.New("not found")

// Role is the closed set of account roles. Ops users upload documents,
// client users request download links.
type Role string

const (
	RoleOps    Role = "ops"
	RoleClient Role = "client"
)

// ParseRole validates a role string from untrusted input.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOps:
		return RoleOps, true
	case RoleClient:
		return RoleClient, true
	}
	return "", false
}

// User is an account row. Accounts are created inactive and flipped to
// active exactly once by a valid verification token.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
}

// File is an uploaded document. Immutable after creation; the bytes live
// in the blob store under ObjectKey.
type File struct {
	ID           uuid.UUID
	Filename     string
	ObjectKey    string
	UploaderID   uuid.UUID
	UploaderName string
	UploadedAt   time.Time
}

type userStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CredentialsTaken(ctx context.Context, email, username string) (bool, error)
	// ActivateUser sets is_active in a single atomic update. Activating an
	// already-active user is a no-op, not an error.
	ActivateUser(ctx context.Context, id uuid.UUID) error
}

type fileStore interface {
	CreateFile(ctx context.Context, f *File) error
	FileByID(ctx context.Context, id uuid.UUID) (*File, error)
	ListFiles(ctx context.Context) ([]File, error)
}

// blobStore is the external byte store. Save streams the upload; the
// reader is consumed exactly once. PresignedURL returns a short-lived
// fetch URL for a stored object.
type blobStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// notifier delivers the verification link to a new account.
type notifier interface {
	SendVerificationEmail(to, verifyURL string) error
}
