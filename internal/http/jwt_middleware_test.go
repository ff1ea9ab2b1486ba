package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"nestor/internal/service"
)

func protectedRouter(jwtSvc *service.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(jwtSvc), func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if jwtSvc.Enabled() && (!ok || claims.Subject != "console") {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestJWTAuthMiddleware_AllowsValidToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Hour)
	token, _, err := jwtSvc.Issue("console")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r := protectedRouter(jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_Rejects(t *testing.T) {
	jwtSvc := service.NewJWTServiceWithStore("secret", time.Hour, service.NewMemoryRevocationStore())
	revoked, _, _ := jwtSvc.Issue("console")
	if err := jwtSvc.Revoke(revoked); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	r := protectedRouter(jwtSvc)

	tests := []struct {
		name   string
		header string
	}{
		{"missing token", ""},
		{"garbage token", "Bearer abc.def.ghi"},
		{"revoked token", "Bearer " + revoked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestJWTAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	r := protectedRouter(service.NewJWTService("", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected open access without secret, got %d", rec.Code)
	}
}
