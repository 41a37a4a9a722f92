package api

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"truckyard/internal/auth"
	"truckyard/internal/config"
	"truckyard/internal/database"
)

func newFeedTestAuthService(t *testing.T) *auth.AuthService {
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
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	svc, err := auth.NewAuthService(privPEM, pubPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

// newFeedTestRouter 走完整的路由注册，验证的是真实挂载方式。
func newFeedTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	router := gin.New()
	RegisterRoutes(router, &config.Config{}, db, nil, newFeedTestAuthService(t), nil, nil, slog.Default())
	return router
}

func TestInquiryFeedReachableWithoutBearerHeader(t *testing.T) {
	router := newFeedTestRouter(t)

	// 浏览器 WebSocket 客户端带不了 Authorization 头；
	// 非升级请求应被升级器以 400 拒绝，而不是撞上 401。
	req := httptest.NewRequest(http.MethodGet, "/api/ws/inquiries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code == http.StatusUnauthorized {
		t.Fatal("feed route rejected before upgrade with 401")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-upgrade request: got %d, want 400", rec.Code)
	}
}

func TestInquiryFeedClosesOnBadAuthMessage(t *testing.T) {
	router := newFeedTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws://" + strings.TrimPrefix(server.URL, "http://") + "/api/ws/inquiries"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": "not-a-jwt"}); err != nil {
		t.Fatalf("write auth message: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("connection stayed open after invalid token")
	}
	closeErr, ok := err.(*websocket.CloseError)
	if !ok || closeErr.Code != websocket.ClosePolicyViolation {
		t.Errorf("close: got %v, want policy violation", err)
	}
}
