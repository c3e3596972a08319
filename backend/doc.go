// Package backend is the HTTP client for the field-service backend API.
//
// It covers only the tracking endpoints: reporting GPS fixes, reading live
// fixes and route history, listing crew members and their in-progress
// dispatches, and reading site records. All payloads are JSON over HTTPS.
//
// The main type is Client which wraps a single *http.Client with the base
// URL and bearer token.
package backend
