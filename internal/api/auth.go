package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gebworks/geb-core/internal/auth"
)

// refreshCookieName is the cookie carrying the refresh token.
const refreshCookieName = "refresh_token"

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// ─── Request/Response Types ────────────────────────────────────────

type registerRequest struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest is the body fallback for clients that cannot send cookies.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is the response body for register, login, and refresh.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Detail      string `json:"detail"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleRegister creates a new account and signs the user in: both tokens
// are issued, the refresh token as a cookie. Username is optional, and the
// role defaults to user when omitted.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	role := auth.RoleUser
	if req.Role != "" {
		if !auth.IsValidRole(req.Role) {
			writeBadRequest(w, "invalid role")
			return
		}
		role = req.Role
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.userRepo.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeBadRequest(w, "user with this email already exists")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	s.auditLog("register", "user", user.ID, user.ID, map[string]any{
		"username": user.Username,
	})

	s.issueTokens(w, user, "registration successful")
}

// handleLogin verifies credentials and issues a fresh token pair.
//
// Unknown email and wrong password return the same response, so the endpoint
// does not reveal which accounts exist.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, err := s.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeBadRequest(w, auth.ErrInvalidCredentials.Error())
			return
		}
		s.logger.Error("login lookup failed", "error", err)
		writeInternalError(w, "failed to sign in")
		return
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("password verify failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to sign in")
		return
	}
	if !ok {
		writeBadRequest(w, auth.ErrInvalidCredentials.Error())
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	s.auditLog("login", "user", user.ID, user.ID, nil)

	s.issueTokens(w, user, "login successful")
}

// handleRefresh exchanges a valid refresh token for a new access token.
//
// The flow is stateless: the refresh token is validated by signature and
// expiry only, then the subject is re-resolved against the identity store so
// the new access token carries the user's current role, not the role at
// refresh-token issuance.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromRequest(r)
	if token == "" {
		writeUnauthorized(w, "not authenticated")
		return
	}

	claims, err := auth.ParseRefreshToken(token, s.secCfg.JWT.RefreshSecret)
	if err != nil {
		writeUnauthorized(w, "invalid or expired refresh token")
		return
	}

	user, err := s.userRepo.GetByEmail(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("refresh lookup failed", "error", err)
		writeInternalError(w, "failed to refresh token")
		return
	}

	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.AccessSecret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		s.logger.Error("generate access token failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to refresh token")
		return
	}

	s.auditLog("refresh", "user", user.ID, user.ID, nil)

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		Detail:      "token refreshed",
	})
}

// handleMe returns the authenticated user's profile.
//
// The token subject is an email, so a 404 here means the account was deleted
// after the token was issued.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "not authenticated")
		return
	}

	user, err := s.userRepo.GetByEmail(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("me lookup failed", "error", err)
		writeInternalError(w, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// issueTokens signs both tokens for the user, sets the refresh cookie, and
// writes the token response.
func (s *Server) issueTokens(w http.ResponseWriter, user *auth.User, detail string) {
	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.AccessSecret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		s.logger.Error("generate access token failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	refresh, err := auth.GenerateRefreshToken(user, s.secCfg.JWT.RefreshSecret, s.secCfg.JWT.RefreshTokenTTL)
	if err != nil {
		s.logger.Error("generate refresh token failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.setRefreshCookie(w, refresh)

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		Detail:      detail,
	})
}

// setRefreshCookie stores the refresh token as an HttpOnly cookie. SameSite
// is None because browser clients run on a different origin; that requires
// Secure, which browsers exempt for localhost during development.
func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/v1/auth",
		MaxAge:   s.secCfg.JWT.RefreshTokenTTL * 60,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// refreshTokenFromRequest extracts the refresh token from the cookie, falling
// back to a JSON body for non-browser clients.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}
