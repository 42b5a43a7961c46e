// Package api implements the HTTP REST API for geb-core.
//
// This package provides:
//   - Auth endpoints: register, login, refresh, and profile lookup
//   - Track endpoints: compose, list, download, rename, delete
//   - Account management and audit trail access (developer role)
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for production deployments
//
// # Security
//
// Authentication is stateless: short-lived JWT access tokens travel in the
// Authorization header, and longer-lived refresh tokens in an HttpOnly
// cookie. The two token kinds are signed with distinct secrets, so neither
// verifies where the other is expected. Protected routes validate the access
// token by signature alone; the refresh endpoint re-resolves the account so
// new access tokens always carry the current role.
//
// Authorisation on track mutation uses ownership policies: deletion allows
// the owner or a developer, renames allow the owner only.
package api
