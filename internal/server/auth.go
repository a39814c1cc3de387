// auth.go - Login and bearer-token authentication.
//
// Sessions are stateless HS256 JWTs carrying the user id and role. The
// middleware still resolves the user row per request so deactivated
// accounts lose access immediately.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Role   string `json:"role"`
}

func makeSessionToken(u *User, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: u.ID.String(),
		Role:   string(u.Role),
	})
	return token.SignedString(secret)
}

func parseSessionToken(tok string, secret []byte) (sessionClaims, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return claims, err
	}
	if !parsed.Valid {
		return claims, errors.New("invalid session token")
	}
	return claims, nil
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// loginHandler handles POST /login. Failed credential checks and unknown
// emails produce the same response so the endpoint does not confirm which
// addresses have accounts.
func (cfg Config) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, "bad request")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))

		u, err := cfg.Users.UserByEmail(r.Context(), req.Email)
		if err != nil {
			if errors.Is(err, errNotFound) {
				loginAttempts.WithLabelValues("failure").Inc()
				jsonError(w, http.StatusBadRequest, "invalid credentials")
				return
			}
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			loginAttempts.WithLabelValues("failure").Inc()
			jsonError(w, http.StatusBadRequest, "invalid credentials")
			return
		}

		if !u.IsActive {
			loginAttempts.WithLabelValues("failure").Inc()
			jsonError(w, http.StatusBadRequest, "account disabled")
			return
		}

		tok, err := makeSessionToken(u, cfg.SecretKey, cfg.SessionTTL, time.Now().UTC())
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		loginAttempts.WithLabelValues("success").Inc()
		writeJSON(w, http.StatusOK, loginResp{
			Token:  tok,
			UserID: u.ID.String(),
			Email:  u.Email,
		})
	}
}

type userCtxKey struct{}

// requireAuth authenticates the bearer token and loads the user row into
// the request context.
func (cfg Config) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			jsonError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := parseSessionToken(strings.TrimPrefix(auth, prefix), cfg.SecretKey)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		u, err := cfg.Users.UserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, errNotFound) {
				jsonError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}
		if !u.IsActive {
			jsonError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, u)))
	})
}

// currentUser returns the authenticated user placed in the context by
// requireAuth. Handlers behind the middleware can rely on it being set.
func currentUser(r *http.Request) *User {
	u, _ := r.Context().Value(userCtxKey{}).(*User)
	return u
}
