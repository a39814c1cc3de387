package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// In-memory implementations of the persistence, blob and notifier ports.

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]User)}
}

func (s *memUserStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (s *memUserStore) UserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (s *memUserStore) UserByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	cp := u
	return &cp, nil
}

func (s *memUserStore) CredentialsTaken(_ context.Context, email, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) ActivateUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	u.IsActive = true
	s.users[id] = u
	return nil
}

type memFileStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]File
	order []uuid.UUID
	users *memUserStore
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[uuid.UUID]File)}
}

// resolveUploader mirrors the SQL join the Postgres store performs: the
// uploader's username is looked up at read time, not stored on the row.
func (s *memFileStore) resolveUploader(f File) File {
	if s.users != nil {
		if u, err := s.users.UserByID(context.Background(), f.UploaderID); err == nil {
			f.UploaderName = u.Username
		}
	}
	return f
}

func (s *memFileStore) CreateFile(_ context.Context, f *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.UploadedAt = time.Now().UTC()
	s.files[f.ID] = *f
	s.order = append(s.order, f.ID)
	return nil
}

func (s *memFileStore) FileByID(_ context.Context, id uuid.UUID) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, errNotFound
	}
	cp := s.resolveUploader(f)
	return &cp, nil
}

func (s *memFileStore) ListFiles(_ context.Context) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.resolveUploader(s.files[id]))
	}
	return out, nil
}

func (s *memFileStore) delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memBlobStore) PresignedURL(_ context.Context, key, filename string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?filename=" + filename, nil
}

type memNotifier struct {
	mu   sync.Mutex
	sent []string // "to|url"
}

func (n *memNotifier) SendVerificationEmail(to, verifyURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to+"|"+verifyURL)
	return nil
}

// newTestConfig wires a Config backed entirely by fakes.
func newTestConfig() Config {
	users := newMemUserStore()
	files := newMemFileStore()
	files.users = users
	return Config{
		BaseURL:          "http://localhost:8080",
		SecretKey:        []byte("test-secret"),
		SessionTTL:       time.Hour,
		VerifyTokenTTL:   24 * time.Hour,
		DownloadTokenTTL: time.Hour,
		Users:            users,
		Files:            files,
		Blobs:            newMemBlobStore(),
		Notifier:         &memNotifier{},
	}
}

// seedUser inserts an account directly into the store and returns it.
func seedUser(t *testing.T, cfg Config, username string, role Role, active bool) *User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &User{
		ID:           uuid.New(),
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     active,
	}
	if err := cfg.Users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// bearerFor mints a session token for the user, as /login would.
func bearerFor(t *testing.T, cfg Config, u *User) string {
	t.Helper()

	tok, err := makeSessionToken(u, cfg.SecretKey, cfg.SessionTTL, time.Now().UTC())
	if err != nil {
		t.Fatalf("makeSessionToken: %v", err)
	}
	return "Bearer " + tok
}

func authed(req *http.Request, bearer string) *http.Request {
	req.Header.Set("Authorization", bearer)
	return req
}
