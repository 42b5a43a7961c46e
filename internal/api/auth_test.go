package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gebworks/geb-core/internal/auth"
)

// ─── Register ──────────────────────────────────────────────────────

func TestHandleRegister(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"username":"alice","email":"alice@example.com","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("access_token is empty")
	}

	// The access token must carry the default role.
	claims, err := auth.ParseAccessToken(resp.AccessToken, testAccessSecret)
	if err != nil {
		t.Fatalf("parsing issued token: %v", err)
	}
	if claims.Role != auth.RoleUser {
		t.Errorf("issued role = %q, want user", claims.Role)
	}
	if claims.Subject != "alice@example.com" {
		t.Errorf("subject = %q, want the email", claims.Subject)
	}

	// The refresh token travels as an HttpOnly cookie.
	var refreshCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			refreshCookie = c
		}
	}
	if refreshCookie == nil {
		t.Fatal("refresh cookie not set")
	}
	if !refreshCookie.HttpOnly {
		t.Error("refresh cookie should be HttpOnly")
	}
	if refreshCookie.SameSite != http.SameSiteNoneMode {
		t.Error("refresh cookie should be SameSite=None")
	}

	// And it must be a valid refresh token, not an access token.
	if _, err := auth.ParseRefreshToken(refreshCookie.Value, testRefreshSecret); err != nil {
		t.Errorf("refresh cookie does not validate: %v", err)
	}
	if _, err := auth.ParseAccessToken(refreshCookie.Value, testAccessSecret); err == nil {
		t.Error("refresh cookie validates as an access token")
	}
}

// Username is optional and the role field is honoured when present.
func TestHandleRegister_OptionalFields(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// No username at all.
	body := `{"email":"noname@example.com","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// Explicit role carries into the issued token.
	body = `{"username":"dev","email":"dev@example.com","password":"longenough","role":"developer"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	claims, err := auth.ParseAccessToken(resp.AccessToken, testAccessSecret)
	if err != nil {
		t.Fatalf("parsing issued token: %v", err)
	}
	if claims.Role != auth.RoleDeveloper {
		t.Errorf("issued role = %q, want developer", claims.Role)
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	createTestUser(t, srv, "alice", "taken@example.com", "password1", auth.RoleUser)

	body := `{"username":"other","email":"taken@example.com","password":"password2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "already exists") {
		t.Errorf("body %q should mention the duplicate", w.Body.String())
	}
}

func TestHandleRegister_BadInput(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing fields", `{"username":"a"}`},
		{"bad email", `{"username":"a","email":"not-an-email","password":"longenough"}`},
		{"short password", `{"username":"a","email":"a@b.co","password":"short"}`},
		{"unknown role", `{"username":"a","email":"a@b.co","password":"longenough","role":"admin"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// ─── Login ─────────────────────────────────────────────────────────

func TestHandleLogin(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	createTestUser(t, srv, "alice", "alice@example.com", "correct-password", auth.RoleUser)

	body := `{"email":"alice@example.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("access_token is empty")
	}
}

// Wrong password and unknown email must be indistinguishable.
func TestHandleLogin_BadCredentials(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	createTestUser(t, srv, "alice", "alice@example.com", "correct-password", auth.RoleUser)

	responses := make([]string, 0, 2)
	for _, body := range []string{
		`{"email":"alice@example.com","password":"wrong-password"}`,
		`{"email":"ghost@example.com","password":"whatever"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		responses = append(responses, w.Body.String())
	}

	if responses[0] != responses[1] {
		t.Error("wrong password and unknown email should return identical responses")
	}
}

// ─── Refresh ───────────────────────────────────────────────────────

func TestHandleRefresh_Cookie(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "alice", "alice@example.com", "pw-longenough", auth.RoleUser)
	refresh, err := auth.GenerateRefreshToken(user, testRefreshSecret, 1440)
	if err != nil {
		t.Fatalf("generating refresh token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := auth.ParseAccessToken(resp.AccessToken, testAccessSecret); err != nil {
		t.Errorf("refreshed access token does not validate: %v", err)
	}
}

func TestHandleRefresh_BodyFallback(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "alice", "alice@example.com", "pw-longenough", auth.RoleUser)
	refresh, err := auth.GenerateRefreshToken(user, testRefreshSecret, 1440)
	if err != nil {
		t.Fatalf("generating refresh token: %v", err)
	}

	body := `{"refresh_token":"` + refresh + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestHandleRefresh_Rejections(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "alice", "alice@example.com", "pw-longenough", auth.RoleUser)

	// An access token must not work as a refresh token.
	access := testToken(t, user)

	tests := []struct {
		name     string
		token    string
		want     int
		wantBody string
	}{
		{"no token at all", "", http.StatusUnauthorized, "not authenticated"},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized, "invalid or expired refresh token"},
		{"access token in refresh slot", access, http.StatusUnauthorized, "invalid or expired refresh token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: tt.token})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body %q should contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleRefresh_DeletedUser(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "alice", "alice@example.com", "pw-longenough", auth.RoleUser)
	refresh, err := auth.GenerateRefreshToken(user, testRefreshSecret, 1440)
	if err != nil {
		t.Fatalf("generating refresh token: %v", err)
	}

	if err := srv.userRepo.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// A role change after refresh-token issuance must show up in the next access
// token: the role comes from the store, not the refresh token.
func TestHandleRefresh_ReflectsCurrentRole(t *testing.T) {
	srv, mainDB := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "alice", "alice@example.com", "pw-longenough", auth.RoleUser)
	refresh, err := auth.GenerateRefreshToken(user, testRefreshSecret, 1440)
	if err != nil {
		t.Fatalf("generating refresh token: %v", err)
	}

	// Promote the account directly in the store.
	if _, err := mainDB.Exec(
		`UPDATE users SET role = 'developer' WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("promoting user: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	claims, err := auth.ParseAccessToken(resp.AccessToken, testAccessSecret)
	if err != nil {
		t.Fatalf("parsing refreshed token: %v", err)
	}
	if claims.Role != auth.RoleDeveloper {
		t.Errorf("refreshed role = %q, want developer", claims.Role)
	}
}

// ─── Me ────────────────────────────────────────────────────────────

func TestHandleMe(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "alice", "alice@example.com", "pw-longenough", auth.RoleUser)
	token := testToken(t, user)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != user.ID || resp.Username != "alice" || resp.Email != "alice@example.com" {
		t.Errorf("unexpected profile: %+v", resp)
	}
}

func TestHandleMe_DeletedUser(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createTestUser(t, srv, "alice", "alice@example.com", "pw-longenough", auth.RoleUser)
	token := testToken(t, user)

	if err := srv.userRepo.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
