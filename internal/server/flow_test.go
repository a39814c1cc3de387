package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Full journeys through the public API, driven only through HTTP.

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rd)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestSignupVerifyLoginJourney(t *testing.T) {
	cfg := newTestConfig()
	h := New(cfg).Handler()

	// Signup returns a verification URL.
	rec, body := doJSON(t, h, http.MethodPost, "/signup", "", map[string]string{
		"email":    "a@x.com",
		"username": "alice",
		"password": "password1",
		"role":     "client",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	verifyURL, _ := body["verification_url"].(string)
	require.True(t, strings.HasPrefix(verifyURL, cfg.BaseURL+"/verify/"))

	// Login before verification is refused.
	rec, body = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.com", "password": "password1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "account disabled", body["message"])

	// Following the verification URL activates the account.
	path := strings.TrimPrefix(verifyURL, cfg.BaseURL)
	rec, body = doJSON(t, h, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "verified", body["message"])

	// Now login succeeds and hands out a session token.
	rec, body = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.com", "password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, body["token"])
	require.Equal(t, "a@x.com", body["email"])
}

func TestUploadLinkRedeemJourney(t *testing.T) {
	cfg := newTestConfig()
	ops := seedUser(t, cfg, "opsuser", RoleOps, true)
	alice := seedUser(t, cfg, "alice", RoleClient, true)
	mallory := seedUser(t, cfg, "mallory", RoleClient, true)
	h := New(cfg).Handler()

	// Ops uploads a spreadsheet.
	rec := postUpload(t, h, bearerFor(t, cfg, ops), "report.xlsx", []byte("cells"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var up uploadResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))

	// Alice lists files and sees it.
	rec, _ = doJSON(t, h, http.MethodGet, "/files", bearerFor(t, cfg, alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []fileEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "report.xlsx", entries[0].Filename)
	require.Equal(t, "opsuser", entries[0].Uploader)

	// Alice requests a download link.
	rec, body := doJSON(t, h, http.MethodGet, "/download-link/"+up.ID, bearerFor(t, cfg, alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	downloadURL, _ := body["download_url"].(string)
	require.True(t, strings.HasPrefix(downloadURL, cfg.BaseURL+"/download/"))

	// Alice redeems it and gets a storage reference.
	path := strings.TrimPrefix(downloadURL, cfg.BaseURL)
	rec, body = doJSON(t, h, http.MethodGet, path, bearerFor(t, cfg, alice), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, body["file_url"])

	// Mallory redeeming the same link is denied.
	rec, body = doJSON(t, h, http.MethodGet, path, bearerFor(t, cfg, mallory), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "access denied", body["message"])
}

func TestUploadJourneyRejections(t *testing.T) {
	cfg := newTestConfig()
	ops := seedUser(t, cfg, "opsuser", RoleOps, true)
	client := seedUser(t, cfg, "clientuser", RoleClient, true)
	h := New(cfg).Handler()

	// Wrong extension.
	rec := postUpload(t, h, bearerFor(t, cfg, ops), "tool.exe", []byte("mz"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid file type", body["message"])

	// Wrong role.
	rec = postUpload(t, h, bearerFor(t, cfg, client), "report.xlsx", []byte("cells"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
