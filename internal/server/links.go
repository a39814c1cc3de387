// links.go - Download link issuance.
//
// Mints a signed capability bound to (file, requesting user). The link
// authorizes that one user to fetch that one file until the token ages
// out; nothing is stored per link.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createLinkResp struct {
	DownloadURL string `json:"download_url"`
}

// createLinkHandler handles GET /download-link/{fileID}. Client role only.
func (cfg Config) createLinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		if u.Role != RoleClient {
			jsonError(w, http.StatusForbidden, "only client users can download files")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "fileID"))
		if err != nil {
			jsonError(w, http.StatusBadRequest, "bad file id")
			return
		}

		f, err := cfg.Files.FileByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, errNotFound) {
				jsonError(w, http.StatusNotFound, "file not found")
				return
			}
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		tok, err := encodeToken(tokenPayload{
			Purpose: purposeDownloadFile,
			UserID:  u.ID.String(),
			FileID:  f.ID.String(),
		}, cfg.SecretKey, time.Now().UTC())
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}
		tokensIssued.WithLabelValues(string(purposeDownloadFile)).Inc()

		writeJSON(w, http.StatusOK, createLinkResp{
			DownloadURL: cfg.BaseURL + "/download/" + tok,
		})
	}
}
