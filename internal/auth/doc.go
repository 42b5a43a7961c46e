// Package auth provides authentication and authorisation for geb-core.
//
// It implements a 2-tier role model (user → developer) with:
//   - Bcrypt password hashing with a config-driven cost factor
//   - Stateless dual JWTs: a short-lived access token carrying the role and
//     a longer-lived refresh token, signed with distinct secrets
//   - Ownership policies as plain data (owner-or-privileged vs owner-only),
//     bound per endpoint rather than unified
//   - A SQLite user repository keyed by unique email
//
// No token is persisted server-side: validity is a function of signature and
// expiry alone, so there is no revocation set. The refresh token carries no
// role claim — the refresh flow re-reads the role from storage, so privilege
// changes take effect on the next refresh without re-login.
package auth
