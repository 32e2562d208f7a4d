package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/bankdesk/internal/actorctx"
	"github.com/geocoder89/bankdesk/internal/auth"
	"github.com/gin-gonic/gin"
)

func authRouter(m *auth.Manager) *gin.Engine {
	mw := NewAuthMiddleware(m)

	r := gin.New()
	g := r.Group("/accounts", mw.RequireAuth())
	g.GET("", func(c *gin.Context) {
		id, _ := actorctx.UserIDFrom(c.Request.Context())
		c.String(http.StatusOK, id)
	})
	g.DELETE("/:id", mw.RequireRole("manager"), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func send(r http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	m := auth.NewManager("mw-secret", time.Minute, time.Hour)
	r := authRouter(m)

	access, _ := m.GenerateAccessToken("u-1", "clerk", "clerk")
	refresh, _ := m.GenerateRefreshToken("u-1", "clerk", "clerk")

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong_scheme", "Basic abc", http.StatusUnauthorized},
		{"empty_token", "Bearer ", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh_token", "Bearer " + refresh.Raw, http.StatusUnauthorized},
		{"valid", "Bearer " + access, http.StatusOK},
		{"lowercase_scheme", "bearer " + access, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, http.MethodGet, "/accounts", tt.header)
			if w.Code != tt.wantStatus {
				t.Fatalf("got %d body=%s", w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("missing bearer challenge")
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != "u-1" {
				t.Fatalf("user id not on request context: %q", w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	m := auth.NewManager("mw-secret", time.Minute, time.Hour)
	r := authRouter(m)

	clerk, _ := m.GenerateAccessToken("u-1", "clerk", "clerk")
	manager, _ := m.GenerateAccessToken("u-2", "manager", "manager")

	w := send(r, http.MethodDelete, "/accounts/1234567", "Bearer "+clerk)
	if w.Code != http.StatusForbidden {
		t.Fatalf("clerk delete: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"forbidden"`) || !strings.Contains(w.Body.String(), "Manager role required") {
		t.Fatalf("unexpected forbidden body %s", w.Body.String())
	}

	if w := send(r, http.MethodDelete, "/accounts/1234567", "Bearer "+manager); w.Code != http.StatusOK {
		t.Fatalf("manager delete: got %d", w.Code)
	}
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/x", NewAuthMiddleware(nil).RequireRole("manager"), func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := send(r, http.MethodGet, "/x", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("got %d", w.Code)
	}
}
