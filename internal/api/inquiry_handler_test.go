package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"truckyard/internal/database"
	"truckyard/internal/inquiry"
)

func newInquiryTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
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
	if err := database.SeedCategories(db); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	handler := NewInquiryHandler(inquiry.NewService(db, nil, nil))
	router := gin.New()
	router.POST("/api/inquiries", handler.Create)
	return router, db
}

func seedInquiryVehicle(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	var cat database.Category
	if err := db.Where("slug = ?", "dump-truck").First(&cat).Error; err != nil {
		t.Fatalf("load category: %v", err)
	}
	veh := database.Vehicle{
		CategoryID: cat.ID,
		Make:       "Isuzu",
		Model:      "Giga",
		Year:       2017,
		Price:      6_200_000,
		Status:     "available",
	}
	if err := db.Create(&veh).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return veh.ID
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateInquiryEndpoint(t *testing.T) {
	router, db := newInquiryTestRouter(t)
	vehicleID := seedInquiryVehicle(t, db)

	rec := postJSON(t, router, "/api/inquiries", map[string]any{
		"vehicleId":     vehicleID,
		"customerName":  "山田太郎",
		"customerEmail": "yamada@example.com",
		"message":       "見積もりをお願いします。",
		"inquiryType":   "email",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}

	var count int64
	db.Model(&database.Inquiry{}).Count(&count)
	if count != 1 {
		t.Errorf("inquiry rows: got %d, want 1", count)
	}
}

func TestCreateInquiryHoneypotSilentlyDropped(t *testing.T) {
	router, db := newInquiryTestRouter(t)
	vehicleID := seedInquiryVehicle(t, db)

	rec := postJSON(t, router, "/api/inquiries", map[string]any{
		"vehicleId":     vehicleID,
		"customerName":  "bot",
		"customerEmail": "bot@example.com",
		"message":       "spam",
		"inquiryType":   "email",
		"website":       "https://spam.example.com",
	})

	// 机器人得到和正常提交一样的响应
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}

	var count int64
	db.Model(&database.Inquiry{}).Count(&count)
	if count != 0 {
		t.Errorf("honeypot submission was persisted: %d rows", count)
	}
}

func TestCreateInquiryValidationErrorBody(t *testing.T) {
	router, _ := newInquiryTestRouter(t)

	rec := postJSON(t, router, "/api/inquiries", map[string]any{
		"vehicleId":   0,
		"message":     "",
		"inquiryType": "fax",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "validation_error" {
		t.Errorf("error code: %q", body.Error.Code)
	}
	if len(body.Error.Details) == 0 {
		t.Error("validation details missing")
	}
}

func TestInquiriesHaveNoDeleteRoute(t *testing.T) {
	router := newFeedTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/inquiries/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 咨询只允许状态流转，不提供删除接口。
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE inquiry: got %d, want 404", rec.Code)
	}
}
