package vehicle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"truckyard/internal/catalog"
	"truckyard/internal/database"
	"truckyard/internal/errcode"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedCategories(db); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	return NewService(db, catalog.NewService(db)), db
}

func craneInput() Input {
	return Input{
		Category:   "crane",
		Make:       "Tadano",
		Model:      "GR-250N",
		Year:       2019,
		Mileage:    38000,
		Price:      15800000,
		EngineType: "diesel",
		Dimensions: Dimensions{Length: 1185, Width: 220, Height: 335},
		Condition:  "used",
		Features:   []string{"4WD", "クレーン付", "radio control"},
		DescriptionJa: "ラフテレーンクレーン、整備記録簿あり。",
		DescriptionEn: "Rough terrain crane with full service history.",
	}
}

func TestCreateThenGet_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := craneInput()
	created, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Category != "crane" {
		t.Errorf("category slug round trip: got %q", got.Category)
	}
	if got.Make != in.Make || got.Model != in.Model || got.Year != in.Year {
		t.Errorf("basic fields mismatch: %+v", got)
	}
	if got.Price != in.Price || got.Mileage != in.Mileage {
		t.Errorf("numeric fields mismatch: %+v", got)
	}
	if got.Dimensions != in.Dimensions {
		t.Errorf("dimensions mismatch: got %+v want %+v", got.Dimensions, in.Dimensions)
	}
	if len(got.Features) != len(in.Features) {
		t.Fatalf("features length: got %v want %v", got.Features, in.Features)
	}
	for i := range in.Features {
		if got.Features[i] != in.Features[i] {
			t.Errorf("feature order not preserved at %d: got %q want %q", i, got.Features[i], in.Features[i])
		}
	}
	if got.Status != "available" {
		t.Errorf("default status: got %q", got.Status)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be populated from the persisted row")
	}
}

func TestCreate_InvalidCategorySlug(t *testing.T) {
	svc, _ := newTestService(t)

	in := craneInput()
	in.Category = "submarine"
	_, err := svc.Create(context.Background(), in)
	e := errcode.As(err)
	if e == nil || e.Kind != errcode.KindConflict || e.Code != "invalid_category" {
		t.Fatalf("expected invalid_category conflict, got %v", err)
	}
}

func TestCreate_ValidationErrorsCollected(t *testing.T) {
	svc, _ := newTestService(t)

	in := craneInput()
	in.Make = ""
	in.Year = 1900
	_, err := svc.Create(context.Background(), in)
	e := errcode.As(err)
	if e == nil || e.Kind != errcode.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func seedVehicle(t *testing.T, svc *Service, db *gorm.DB, price int64, year int, createdAt time.Time) uint {
	t.Helper()
	in := craneInput()
	in.Price = price
	in.Year = year
	v, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	if err := db.Model(&database.Vehicle{}).Where("id = ?", v.ID).
		Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("set created_at: %v", err)
	}
	return v.ID
}

func TestList_PriceRangeInclusive(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	seedVehicle(t, svc, db, 999999, 2015, base)
	lower := seedVehicle(t, svc, db, 1000000, 2016, base.Add(time.Hour))
	mid := seedVehicle(t, svc, db, 1500000, 2017, base.Add(2*time.Hour))
	upper := seedVehicle(t, svc, db, 2000000, 2018, base.Add(3*time.Hour))
	seedVehicle(t, svc, db, 2000001, 2019, base.Add(4*time.Hour))

	minPrice, maxPrice := int64(1000000), int64(2000000)
	result, err := svc.List(context.Background(), Filters{MinPrice: &minPrice, MaxPrice: &maxPrice})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if result.TotalCount != 3 {
		t.Fatalf("totalCount: got %d want 3", result.TotalCount)
	}
	wantOrder := []uint{upper, mid, lower} // created_at DESC
	if len(result.Items) != 3 {
		t.Fatalf("items: got %d want 3", len(result.Items))
	}
	for i, want := range wantOrder {
		if result.Items[i].ID != want {
			t.Errorf("order[%d]: got id %d want %d", i, result.Items[i].ID, want)
		}
		p := result.Items[i].Price
		if p < minPrice || p > maxPrice {
			t.Errorf("price %d outside inclusive range", p)
		}
	}
}

func TestList_PaginationAndTotalCount(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedVehicle(t, svc, db, int64(1000000+i), 2018, base.Add(time.Duration(i)*time.Hour))
	}

	result, err := svc.List(context.Background(), Filters{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.TotalCount != 5 {
		t.Errorf("totalCount: got %d want 5", result.TotalCount)
	}
	if len(result.Items) != 2 {
		t.Errorf("page size: got %d want 2", len(result.Items))
	}
	if result.Page != 2 || result.PageSize != 2 {
		t.Errorf("page echo: got %d/%d", result.Page, result.PageSize)
	}
}

func TestList_UnknownCategoryYieldsEmpty(t *testing.T) {
	svc, db := newTestService(t)
	seedVehicle(t, svc, db, 1000000, 2018, time.Now())

	result, err := svc.List(context.Background(), Filters{Category: "hovercraft"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.TotalCount != 0 || len(result.Items) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestSearch_BlankQueryReturnsEmpty(t *testing.T) {
	svc, db := newTestService(t)
	seedVehicle(t, svc, db, 1000000, 2018, time.Now())

	views, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected empty result for blank query, got %d", len(views))
	}
}

func TestSearch_MatchesAcrossFieldsCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	crane := craneInput()
	if _, err := svc.Create(ctx, crane); err != nil {
		t.Fatalf("create crane: %v", err)
	}

	dump := craneInput()
	dump.Category = "dump-truck"
	dump.Make = "Hino"
	dump.Model = "Profia"
	dump.DescriptionJa = "大型ダンプ"
	dump.DescriptionEn = "Heavy duty dump truck"
	if _, err := svc.Create(ctx, dump); err != nil {
		t.Fatalf("create dump: %v", err)
	}

	// 分类英文名 "Crane" に対して小文字で検索。
	views, err := svc.Search(ctx, "crane")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 match, got %d", len(views))
	}
	if views[0].Make != "Tadano" {
		t.Errorf("unexpected match: %+v", views[0])
	}

	// make で部分一致。
	views, err = svc.Search(ctx, "HIN")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(views) != 1 || views[0].Make != "Hino" {
		t.Fatalf("expected Hino match, got %+v", views)
	}

	// 説明文で部分一致。
	views, err = svc.Search(ctx, "service history")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(views) != 1 || views[0].Make != "Tadano" {
		t.Fatalf("expected description match, got %+v", views)
	}
}

func TestUpdate_RequiresExistingVehicle(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 9999, craneInput())
	e := errcode.As(err)
	if e == nil || e.Kind != errcode.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdate_PersistsAndRereads(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, craneInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := craneInput()
	in.Price = 9990000
	in.Features = []string{"ETC", "ナビ"}
	updated, err := svc.Update(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 9990000 {
		t.Errorf("price not updated: %d", updated.Price)
	}
	if len(updated.Features) != 2 || updated.Features[0] != "ETC" {
		t.Errorf("features not updated in order: %v", updated.Features)
	}
}

func TestDelete_CascadesImageMetadata(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, craneInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		img := database.VehicleImage{
			VehicleID:    created.ID,
			Filename:     fmt.Sprintf("img-%d.jpg", i),
			URL:          fmt.Sprintf("/api/images/img-%d.jpg", i),
			DisplayOrder: i,
		}
		if err := db.Create(&img).Error; err != nil {
			t.Fatalf("seed image: %v", err)
		}
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var remaining int64
	if err := db.Model(&database.VehicleImage{}).
		Where("vehicle_id = ?", created.ID).
		Count(&remaining).Error; err != nil {
		t.Fatalf("count images: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 image rows after cascade, got %d", remaining)
	}

	if _, err := svc.Get(ctx, created.ID); errcode.As(err) == nil || errcode.As(err).Kind != errcode.KindNotFound {
		t.Fatalf("expected vehicle gone, got %v", err)
	}
}

func TestRelated_SameCategoryExcludingSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, craneInput())
	b, _ := svc.Create(ctx, craneInput())
	other := craneInput()
	other.Category = "trailer"
	if _, err := svc.Create(ctx, other); err != nil {
		t.Fatalf("create trailer: %v", err)
	}

	views, err := svc.Related(ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("related: %v", err)
	}
	if len(views) != 1 || views[0].ID != b.ID {
		t.Fatalf("expected only the sibling crane, got %+v", views)
	}
}

func TestDecodeFeatures_Unparsable(t *testing.T) {
	if got := decodeFeatures([]byte("not json")); len(got) != 0 {
		t.Errorf("unparsable should decode to empty, got %v", got)
	}
	if got := decodeFeatures(nil); len(got) != 0 {
		t.Errorf("nil should decode to empty, got %v", got)
	}
}
