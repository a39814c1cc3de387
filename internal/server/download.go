// download.go - Download token redemption.
package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type downloadResp struct {
	FileURL string `json:"file_url"`
}

// downloadHandler handles GET /download/{token}. The caller must be
// authenticated: the token is bound to the user it was minted for, and a
// different account redeeming it gets 403 regardless of token validity.
// Malformed, tampered, expired and already-used tokens all collapse into
// the same 400 response.
func (cfg Config) downloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		tok := chi.URLParam(r, "token")

		p, err := decodeToken(tok, cfg.SecretKey, time.Now().UTC(), cfg.DownloadTokenTTL)
		if err != nil {
			recordTokenRejection(err)
			jsonError(w, http.StatusBadRequest, "invalid or expired link")
			return
		}
		if p.Purpose != purposeDownloadFile {
			tokenRejections.WithLabelValues("wrong_purpose").Inc()
			jsonError(w, http.StatusBadRequest, "invalid or expired link")
			return
		}

		if p.UserID != u.ID.String() {
			jsonError(w, http.StatusForbidden, "access denied")
			return
		}

		if err := cfg.Replay.Consume(tok, p.Purpose); err != nil {
			tokenRejections.WithLabelValues("replayed").Inc()
			jsonError(w, http.StatusBadRequest, "invalid or expired link")
			return
		}

		fileID, err := uuid.Parse(p.FileID)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid or expired link")
			return
		}

		f, err := cfg.Files.FileByID(r.Context(), fileID)
		if err != nil {
			if errors.Is(err, errNotFound) {
				jsonError(w, http.StatusNotFound, "file not found")
				return
			}
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		fileURL, err := cfg.Blobs.PresignedURL(r.Context(), f.ObjectKey, f.Filename, cfg.DownloadTokenTTL)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=presign_failed key=%s err=%v", rid, f.ObjectKey, err)
			jsonError(w, http.StatusBadGateway, "storage error")
			return
		}

		downloadsTotal.Inc()
		log.Printf("msg=download_authorized file=%s user=%s", f.ID, u.ID)

		writeJSON(w, http.StatusOK, downloadResp{FileURL: fileURL})
	}
}
