package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/bankdesk/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]handlers.Pinger
		wantStatus int
	}{
		{
			name:       "no_checks",
			wantStatus: http.StatusOK,
		},
		{
			name: "all_ok",
			checks: map[string]handlers.Pinger{
				"db": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "db_down",
			checks: map[string]handlers.Pinger{
				"db":    func(context.Context) error { return errors.New("connection refused") },
				"redis": nil,
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.checks)
			r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

			w := doJSON(t, r, http.MethodGet, "/readyz", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("got %d body=%s", w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK && !strings.Contains(w.Body.String(), "connection refused") {
				t.Fatalf("failing check should be named in the body: %s", w.Body.String())
			}
		})
	}
}

func TestLiveness(t *testing.T) {
	h := handlers.NewHealthHandler(nil)

	for path, fn := range map[string]func(*gin.Context){"/health": h.Health, "/healthz": h.Healthz} {
		r := setupRouter(http.MethodGet, path, fn)
		if w := doJSON(t, r, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Fatalf("%s: got %d", path, w.Code)
		}
	}
}
