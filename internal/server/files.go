// files.go - File listing for client users.
package server

import (
	"net/http"
	"time"
)

type fileEntry struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Uploader   string `json:"uploader"`
	UploadedAt string `json:"uploaded_at"`
}

// listFilesHandler handles GET /files. Every client sees every file;
// there is no per-uploader scoping.
func (cfg Config) listFilesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		if u.Role != RoleClient {
			jsonError(w, http.StatusForbidden, "only client users can list files")
			return
		}

		files, err := cfg.Files.ListFiles(r.Context())
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		entries := make([]fileEntry, 0, len(files))
		for _, f := range files {
			entries = append(entries, fileEntry{
				ID:         f.ID.String(),
				Filename:   f.Filename,
				Uploader:   f.UploaderName,
				UploadedAt: f.UploadedAt.UTC().Format(time.RFC3339),
			})
		}

		writeJSON(w, http.StatusOK, entries)
	}
}
