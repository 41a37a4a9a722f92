package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"truckyard/internal/auth"
)

func newTestAuthService(t *testing.T) *auth.AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})

	svc, err := auth.NewAuthService(privPEM, pubPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func newProtectedRouter(svc *auth.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", AuthMiddleware(svc), func(c *gin.Context) {
		userID, _ := c.Get("userID")
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})
	return router
}

func request(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	router := newProtectedRouter(newTestAuthService(t))

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc123"},
		{"bearer without token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := request(router, tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	svc := newTestAuthService(t)
	router := newProtectedRouter(svc)

	pair, err := svc.GenerateTokenPair(7, "admin")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	rec := request(router, "Bearer "+pair.RefreshToken)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh token accepted: status %d", rec.Code)
	}
}

func TestAuthMiddlewareAcceptsAccessToken(t *testing.T) {
	svc := newTestAuthService(t)
	router := newProtectedRouter(svc)

	pair, err := svc.GenerateTokenPair(7, "admin")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	rec := request(router, "Bearer "+pair.AccessToken)
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}
