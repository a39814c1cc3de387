package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildInfo identifies the running binary in logs and /health.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries everything the handlers need. It is assembled once in
// main and treated as read-only afterwards; in particular SecretKey never
// changes while the process runs.
type Config struct {
	Addr    string // e.g. ":8080"
	BaseURL string // absolute prefix for links placed in responses and emails
	Build   BuildInfo

	SecretKey        []byte
	SessionTTL       time.Duration
	VerifyTokenTTL   time.Duration
	DownloadTokenTTL time.Duration
	MaxUploadBytes   int64 // 0 = no limit

	Users    userStore
	Files    fileStore
	Blobs    blobStore
	Notifier notifier
	Replay   replayPolicy
}

type Server struct {
	httpServer *http.Server
}

func New(cfg Config) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.VerifyTokenTTL <= 0 {
		cfg.VerifyTokenTTL = 24 * time.Hour
	}
	if cfg.DownloadTokenTTL <= 0 {
		cfg.DownloadTokenTTL = time.Hour
	}
	if cfg.Replay == nil {
		cfg.Replay = allowRepeat{}
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", cfg.healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/signup", cfg.signupHandler())
	r.Post("/login", cfg.loginHandler())
	r.Get("/verify/{token}", cfg.verifyHandler())

	r.Group(func(r chi.Router) {
		r.Use(cfg.requireAuth)
		r.Post("/upload", cfg.uploadHandler())
		r.Get("/files", cfg.listFilesHandler())
		r.Get("/download-link/{fileID}", cfg.createLinkHandler())
		r.Get("/download/{token}", cfg.downloadHandler())
	})

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
