// Package http provides the HTTP API for the filevault file storage service.
//
// # Surfaces
//
// The router exposes three surfaces:
//
//   - /auth: registration and login, no authentication.
//   - /api/v1: the web application API, authenticated with a JWT bearer token.
//     File uploads made here are tagged with source "web".
//   - /public/v1: the programmatic API, authenticated with an X-API-Key header.
//     Uploads made here are tagged with source "api". Two routes under this
//     surface carry no authentication: the inline view proxy
//     (GET /public/v1/files/{id}/view) and the short-lived URL endpoint
//     (GET /public/v1/files/{id}/url). Both treat possession of the file id
//     as the capability.
//
// # Errors
//
// All errors are JSON bodies with an error code and a message. Domain
// sentinels map to status codes in HandleError: not found to 404, invalid
// input to 400, unauthorized to 401, quota exceeded to 413, upstream store
// failures to 502.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{MaxUploadBytes: 512 << 20}, deps)
//	http.ListenAndServe(":8080", handler.Router())
package http
