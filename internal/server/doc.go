// Package server implements the docshare HTTP backend: account signup
// with email verification, bearer-token login, ops-role document uploads,
// and signed, expiring download links for client users. It wires the HTTP
// routes to the persistence, blob-store, and notifier ports and provides
// lifecycle helpers used by tests and the production binary.
package server
