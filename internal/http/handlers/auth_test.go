package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/bankdesk/internal/auth"
	"github.com/geocoder89/bankdesk/internal/config"
	"github.com/geocoder89/bankdesk/internal/domain/user"
	"github.com/geocoder89/bankdesk/internal/http/handlers"
	"github.com/geocoder89/bankdesk/internal/repo/memory"
	"github.com/geocoder89/bankdesk/internal/security"
	"github.com/gin-gonic/gin"
)

type authFixture struct {
	router  *gin.Engine
	users   *memory.UsersRepo
	tokens  *memory.RefreshTokensRepo
	jwt     *auth.Manager
	clerk   user.User
	manager user.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := memory.NewUsersRepo()
	tokens := memory.NewRefreshTokensRepo()
	jwtManager := auth.NewManager("handler-test-secret", 30*time.Minute, 7*24*time.Hour)

	mk := func(name, pass, role string) user.User {
		hash, err := security.HashPassword(pass)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		u, err := users.Create(context.Background(), name, hash, role)
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		return u
	}

	f := &authFixture{
		users:   users,
		tokens:  tokens,
		jwt:     jwtManager,
		clerk:   mk("clerk", "clerk-pass", user.RoleClerk),
		manager: mk("manager", "manager-pass", user.RoleManager),
	}

	h := handlers.NewAuthHandler(users, tokens, jwtManager, config.Config{Env: "test"}, nil, discardLogger())

	r := gin.New()
	r.POST("/token", h.Login)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", h.Logout)
	f.router = r

	return f
}

func (f *authFixture) loginJSON(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *authFixture) refreshWithCookie(t *testing.T, raw string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: raw})

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeTokens(t *testing.T, w *httptest.ResponseRecorder) handlers.TokenResponse {
	t.Helper()

	var resp handlers.TokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode tokens: %v body=%s", err, w.Body.String())
	}
	return resp
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func TestLogin_JSON(t *testing.T) {
	f := newAuthFixture(t)

	w := f.loginJSON(t, "clerk", "clerk-pass")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d body=%s", w.Code, w.Body.String())
	}

	resp := decodeTokens(t, w)
	if resp.TokenType != "bearer" || resp.Role != user.RoleClerk {
		t.Fatalf("unexpected token response %+v", resp)
	}
	if resp.AccessTokenExpiresIn != 1800 || resp.RefreshTokenExpiresIn != 7*24*3600 {
		t.Fatalf("unexpected lifetimes %+v", resp)
	}

	claims, err := f.jwt.VerifyAccessToken(resp.AccessToken)
	if err != nil || claims.UserID != f.clerk.ID || claims.Username != "clerk" {
		t.Fatalf("access token claims %+v err=%v", claims, err)
	}

	c := refreshCookie(w)
	if c == nil || c.Value != resp.RefreshToken {
		t.Fatalf("refresh cookie missing or different from body: %+v", c)
	}
	if !c.HttpOnly || c.Path != "/" || c.SameSite != http.SameSiteStrictMode || c.Secure {
		t.Fatalf("unexpected cookie attributes %+v", c)
	}
}

func TestLogin_Form(t *testing.T) {
	f := newAuthFixture(t)

	form := url.Values{"username": {"manager"}, "password": {"manager-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d body=%s", w.Code, w.Body.String())
	}
	if resp := decodeTokens(t, w); resp.Role != user.RoleManager {
		t.Fatalf("expected manager role, got %+v", resp)
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		password   string
		wantStatus int
	}{
		{"wrong_password", "clerk", "nope", http.StatusUnauthorized},
		{"unknown_user", "ghost", "clerk-pass", http.StatusUnauthorized},
		{"missing_password", "clerk", "", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)

			w := f.loginJSON(t, tt.username, tt.password)
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusUnauthorized {
				if w.Header().Get("WWW-Authenticate") != "Bearer" {
					t.Fatalf("missing bearer challenge")
				}
				if !strings.Contains(w.Body.String(), "Incorrect username or password") {
					t.Fatalf("unexpected body %s", w.Body.String())
				}
				if refreshCookie(w) != nil {
					t.Fatalf("failed login must not set a cookie")
				}
			}
		})
	}
}

func TestRefresh_RotatesAndDetectsReuse(t *testing.T) {
	f := newAuthFixture(t)

	login := decodeTokens(t, f.loginJSON(t, "clerk", "clerk-pass"))

	w := f.refreshWithCookie(t, login.RefreshToken)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: got %d body=%s", w.Code, w.Body.String())
	}
	rotated := decodeTokens(t, w)
	if rotated.RefreshToken == login.RefreshToken {
		t.Fatalf("refresh token must rotate")
	}
	if c := refreshCookie(w); c == nil || c.Value != rotated.RefreshToken {
		t.Fatalf("rotated cookie not set")
	}

	// replaying the first token is reuse: it fails and kills the live session too
	replay := f.refreshWithCookie(t, login.RefreshToken)
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("replay: got %d", replay.Code)
	}
	if !strings.Contains(replay.Body.String(), "Could not validate credentials") {
		t.Fatalf("unexpected replay body %s", replay.Body.String())
	}

	after := f.refreshWithCookie(t, rotated.RefreshToken)
	if after.Code != http.StatusUnauthorized {
		t.Fatalf("rotated token should be revoked after reuse, got %d", after.Code)
	}
}

func TestRefresh_FromJSONBody(t *testing.T) {
	f := newAuthFixture(t)
	login := decodeTokens(t, f.loginJSON(t, "manager", "manager-pass"))

	body, _ := json.Marshal(map[string]string{"refresh_token": login.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
	if resp := decodeTokens(t, w); resp.Role != user.RoleManager {
		t.Fatalf("unexpected role %+v", resp)
	}
}

func TestRefresh_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	login := decodeTokens(t, f.loginJSON(t, "clerk", "clerk-pass"))

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"access_token": login.AccessToken,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
			if raw != "" {
				req.AddCookie(&http.Cookie{Name: "refresh_token", Value: raw})
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got %d body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRefresh_UserRemoved(t *testing.T) {
	f := newAuthFixture(t)
	login := decodeTokens(t, f.loginJSON(t, "clerk", "clerk-pass"))

	f.users.Delete(f.clerk.ID)

	if w := f.refreshWithCookie(t, login.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("got %d", w.Code)
	}
}

func TestRefresh_UnknownJTI(t *testing.T) {
	f := newAuthFixture(t)

	// validly signed but never stored
	issued, err := f.jwt.GenerateRefreshToken(f.clerk.ID, "clerk", user.RoleClerk)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if w := f.refreshWithCookie(t, issued.Raw); w.Code != http.StatusUnauthorized {
		t.Fatalf("got %d", w.Code)
	}
}

func TestLogout_RevokesAndClearsCookie(t *testing.T) {
	f := newAuthFixture(t)
	login := decodeTokens(t, f.loginJSON(t, "clerk", "clerk-pass"))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: login.RefreshToken})
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got %d", w.Code)
	}
	if c := refreshCookie(w); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected cookie to be cleared, got %+v", c)
	}

	claims, _ := f.jwt.VerifyRefreshToken(login.RefreshToken)
	row, ok := f.tokens.Get(claims.JTI)
	if !ok || row.RevokedAt == nil {
		t.Fatalf("refresh token should be revoked: %+v", row)
	}

	if w := f.refreshWithCookie(t, login.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: got %d", w.Code)
	}
}

func TestRefresh_AfterLogoutKeepsOtherSessions(t *testing.T) {
	f := newAuthFixture(t)

	first := decodeTokens(t, f.loginJSON(t, "clerk", "clerk-pass"))
	second := decodeTokens(t, f.loginJSON(t, "clerk", "clerk-pass"))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: first.RefreshToken})
	f.router.ServeHTTP(httptest.NewRecorder(), req)

	if w := f.refreshWithCookie(t, first.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("logged out token: got %d", w.Code)
	}

	if w := f.refreshWithCookie(t, second.RefreshToken); w.Code != http.StatusOK {
		t.Fatalf("other session should survive a logged out replay, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestLogout_WithoutTokenStillSucceeds(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got %d", w.Code)
	}
}
