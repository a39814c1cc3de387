// upload.go - Document upload for ops users.
//
// Streams the multipart body straight to the blob store; only the
// metadata row lands in Postgres.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type uploadResp struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// uploadHandler handles POST /upload. Ops role only; the filename must
// carry one of the allowed office-document extensions. The extension check
// runs before any byte is forwarded to storage.
func (cfg Config) uploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		if u.Role != RoleOps {
			jsonError(w, http.StatusForbidden, "only ops users can upload files")
			return
		}

		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			jsonError(w, http.StatusBadRequest, "bad multipart body")
			return
		}

		var filePart io.Reader
		var filename, contentType string

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				jsonError(w, http.StatusBadRequest, "bad multipart body")
				return
			}
			defer func() { _ = part.Close() }()

			if part.FormName() != "file" {
				continue
			}

			filePart = part
			filename = part.FileName()
			contentType = part.Header.Get("Content-Type")
			break
		}

		if filePart == nil || filename == "" {
			jsonError(w, http.StatusBadRequest, "missing file")
			return
		}

		if !allowedFileExtension(filename) {
			jsonError(w, http.StatusBadRequest, "invalid file type")
			return
		}

		id := uuid.New()
		// Object keys never derive from the client filename.
		objectKey := "uploads/" + id.String()

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		if err := cfg.Blobs.Save(ctx, objectKey, filePart, -1, contentType); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=blob_save_failed err=%v", rid, err)

			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				jsonError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			jsonError(w, http.StatusBadGateway, "storage error")
			return
		}

		f := &File{
			ID:         id,
			Filename:   filename,
			ObjectKey:  objectKey,
			UploaderID: u.ID,
		}
		if err := cfg.Files.CreateFile(r.Context(), f); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=file_insert_failed err=%v", rid, err)
			jsonError(w, http.StatusInternalServerError, "server error")
			return
		}

		uploadsTotal.Inc()
		log.Printf("msg=file_uploaded id=%s filename=%q uploader=%s", id, filename, u.Username)

		writeJSON(w, http.StatusCreated, uploadResp{
			ID:       id.String(),
			Filename: filename,
			Message:  "file uploaded",
		})
	}
}
