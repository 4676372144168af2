// Package server implements the HTTP side of the ShareX upload server: the
// password-gated upload endpoint, the file, listing and sxcu routes, and
// the lifecycle helpers used by tests and the production binary.
package server
