// signup.go - Account creation and verification link issuance.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type signupReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signupResp struct {
	Message         string `json:"message"`
	VerificationURL string `json:"verification_url"`
}

// bcrypt cost of 12 is a good balance of security and performance.
const bcryptCost = 12

// signupHandler handles POST /signup. The account is created inactive; a
// signed verification token is mailed out and also returned in the
// response body so callers can complete the flow without inbox access.
func (cfg Config) signupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, "bad request")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.Username = strings.TrimSpace(req.Username)
		req.Password = strings.TrimSpace(req.Password)

		if !validateEmail(req.Email) {
			jsonError(w, http.StatusBadRequest, "invalid email address")
			return
		}
		if ok, msg := validateUsername(req.Username); !ok {
			jsonError(w, http.StatusBadRequest, msg)
			return
		}
		if ok, msg := validatePassword(req.Password); !ok {
			jsonError(w, http.StatusBadRequest, msg)
			return
		}
		role, ok := ParseRole(req.Role)
		if !ok {
			jsonError(w, http.StatusBadRequest, "role must be ops or client")
			return
		}

		taken, err := cfg.Users.CredentialsTaken(r.Context(), req.Email, req.Username)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}
		if taken {
			jsonError(w, http.StatusBadRequest, "email or username already registered")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		u := &User{
			ID:           uuid.New(),
			Email:        req.Email,
			Username:     req.Username,
			PasswordHash: string(hash),
			Role:         role,
			IsActive:     false,
		}
		if err := cfg.Users.CreateUser(r.Context(), u); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=signup_insert_failed err=%v", rid, err)
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		tok, err := encodeToken(tokenPayload{
			Purpose: purposeVerifyEmail,
			UserID:  u.ID.String(),
		}, cfg.SecretKey, time.Now().UTC())
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}
		tokensIssued.WithLabelValues(string(purposeVerifyEmail)).Inc()

		verifyURL := cfg.BaseURL + "/verify/" + tok

		// The account is already created; a failed email must not fail signup.
		if err := cfg.Notifier.SendVerificationEmail(u.Email, verifyURL); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=verification_email_failed err=%v", rid, err)
		}

		log.Printf("msg=user_created username=%s role=%s", u.Username, u.Role)

		writeJSON(w, http.StatusCreated, signupResp{
			Message:         "user created, please verify your email",
			VerificationURL: verifyURL,
		})
	}
}
