package catalog

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"truckyard/internal/database"
	"truckyard/internal/errcode"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
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
	return NewService(db), db
}

func TestSeededCategoriesListedInOrder(t *testing.T) {
	svc, db := newTestService(t)

	views, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 6 {
		t.Fatalf("seeded categories: got %d, want 6", len(views))
	}
	if views[0].Slug != "crane" || views[5].Slug != "other" {
		t.Errorf("order: first=%q last=%q", views[0].Slug, views[5].Slug)
	}

	// 重复播种不追加
	if err := database.SeedCategories(db); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	views, _ = svc.List(context.Background())
	if len(views) != 6 {
		t.Errorf("after reseed: got %d categories", len(views))
	}
}

func TestGetBySlug(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.GetBySlug(context.Background(), "excavator")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if view.NameEn != "Excavator" || view.NameJa == "" {
		t.Errorf("category names: %+v", view)
	}

	_, err = svc.GetBySlug(context.Background(), "hovercraft")
	if e := errcode.As(err); e == nil || e.Kind != errcode.KindNotFound {
		t.Fatalf("unknown slug: got %v, want not found", err)
	}
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), Input{
		NameJa: "クレーン",
		NameEn: "Crane",
		Slug:   "crane",
	})
	e := errcode.As(err)
	if e == nil || e.Code != "duplicate_slug" {
		t.Fatalf("got %v, want duplicate_slug", err)
	}

	view, err := svc.Create(context.Background(), Input{
		NameJa: "高所作業車",
		NameEn: "Aerial Platform",
		Slug:   "aerial-platform",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.ID == 0 || view.Slug != "aerial-platform" {
		t.Errorf("created view: %+v", view)
	}
}

func TestDeleteGuardsReferencedCategory(t *testing.T) {
	svc, db := newTestService(t)

	cat, err := svc.GetBySlug(context.Background(), "trailer")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	veh := database.Vehicle{
		CategoryID: cat.ID,
		Make:       "Tokyu",
		Model:      "TD302",
		Year:       2015,
		Price:      3_000_000,
		Status:     "available",
	}
	if err := db.Create(&veh).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}

	err = svc.Delete(context.Background(), cat.ID)
	e := errcode.As(err)
	if e == nil || e.Code != "category_in_use" {
		t.Fatalf("delete referenced category: got %v, want category_in_use", err)
	}

	// 引用移除后可删除
	if err := db.Delete(&database.Vehicle{}, veh.ID).Error; err != nil {
		t.Fatalf("remove vehicle: %v", err)
	}
	if err := svc.Delete(context.Background(), cat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.Get(context.Background(), cat.ID)
	if e := errcode.As(err); e == nil || e.Kind != errcode.KindNotFound {
		t.Fatalf("after delete: got %v, want not found", err)
	}
}
