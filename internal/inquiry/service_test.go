package inquiry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"truckyard/internal/database"
	"truckyard/internal/errcode"
	"truckyard/internal/tasks"
)

// fakeEnqueuer 记录投递的任务类型。
type fakeEnqueuer struct {
	enqueued []string
	fail     bool
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.fail {
		return nil, fmt.Errorf("queue unavailable")
	}
	f.enqueued = append(f.enqueued, task.Type())
	return &asynq.TaskInfo{}, nil
}

func newTestService(t *testing.T, enq Enqueuer) *Service {
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
	return NewService(db, enq, nil)
}

func seedVehicle(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	var cat database.Category
	if err := db.Where("slug = ?", "excavator").First(&cat).Error; err != nil {
		t.Fatalf("load category: %v", err)
	}
	veh := database.Vehicle{
		CategoryID: cat.ID,
		Make:       "Komatsu",
		Model:      "PC200-8",
		Year:       2016,
		Price:      8_900_000,
		Status:     "available",
	}
	if err := db.Create(&veh).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return veh.ID
}

func validInput(vehicleID uint) Input {
	return Input{
		VehicleID:     vehicleID,
		CustomerName:  "山田太郎",
		CustomerEmail: "yamada@example.com",
		Message:       "まだ在庫はありますか。",
		InquiryType:   "email",
	}
}

func TestCreateForcesNewStatusAndNotifies(t *testing.T) {
	enq := &fakeEnqueuer{}
	svc := newTestService(t, enq)
	vehicleID := seedVehicle(t, svc.db)

	view, err := svc.Create(context.Background(), validInput(vehicleID), "corr-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Status != "new" {
		t.Errorf("status: got %q, want new", view.Status)
	}
	if view.CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}
	if len(enq.enqueued) != 1 || enq.enqueued[0] != tasks.TypeInquiryNotify {
		t.Errorf("enqueued tasks: %v", enq.enqueued)
	}
}

func TestCreateSucceedsWhenQueueDown(t *testing.T) {
	enq := &fakeEnqueuer{fail: true}
	svc := newTestService(t, enq)
	vehicleID := seedVehicle(t, svc.db)

	if _, err := svc.Create(context.Background(), validInput(vehicleID), ""); err != nil {
		t.Fatalf("create with failing queue: %v", err)
	}
	var count int64
	svc.db.Model(&database.Inquiry{}).Count(&count)
	if count != 1 {
		t.Errorf("inquiry rows: got %d, want 1", count)
	}
}

func TestCreateWithoutEnqueuer(t *testing.T) {
	svc := newTestService(t, nil)
	vehicleID := seedVehicle(t, svc.db)

	if _, err := svc.Create(context.Background(), validInput(vehicleID), ""); err != nil {
		t.Fatalf("create without enqueuer: %v", err)
	}
}

func TestCreateRejectsUnknownVehicle(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Create(context.Background(), validInput(4242), "")
	e := errcode.As(err)
	if e == nil || e.Code != "invalid_vehicle" {
		t.Fatalf("got %v, want invalid_vehicle", err)
	}
}

func TestCreateRejectsMissingContact(t *testing.T) {
	svc := newTestService(t, nil)
	vehicleID := seedVehicle(t, svc.db)

	in := validInput(vehicleID)
	in.CustomerEmail = ""
	in.CustomerPhone = ""
	_, err := svc.Create(context.Background(), in, "")
	e := errcode.As(err)
	if e == nil || e.Kind != errcode.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestListFiltersByStatusAndVehicle(t *testing.T) {
	svc := newTestService(t, nil)
	vehicleID := seedVehicle(t, svc.db)
	otherID := seedVehicle(t, svc.db)

	mk := func(vid uint, status string, age time.Duration) {
		row := database.Inquiry{
			VehicleID:    vid,
			CustomerName: "客",
			CustomerEmail: "k@example.com",
			Message:      "質問",
			InquiryType:  "email",
			Status:       status,
		}
		if err := svc.db.Create(&row).Error; err != nil {
			t.Fatalf("seed inquiry: %v", err)
		}
		svc.db.Model(&row).Update("created_at", time.Now().Add(-age))
	}
	mk(vehicleID, "new", 3*time.Hour)
	mk(vehicleID, "contacted", 2*time.Hour)
	mk(otherID, "new", 1*time.Hour)

	res, err := svc.List(context.Background(), Filters{Status: "new"})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if res.TotalCount != 2 || len(res.Items) != 2 {
		t.Fatalf("status filter: total=%d items=%d", res.TotalCount, len(res.Items))
	}
	// 最新的在前
	if res.Items[0].VehicleID != otherID {
		t.Errorf("order: first item vehicle %d, want %d", res.Items[0].VehicleID, otherID)
	}

	res, err = svc.List(context.Background(), Filters{VehicleID: vehicleID})
	if err != nil {
		t.Fatalf("list by vehicle: %v", err)
	}
	if res.TotalCount != 2 {
		t.Errorf("vehicle filter: total=%d, want 2", res.TotalCount)
	}

	_, err = svc.List(context.Background(), Filters{Status: "bogus"})
	if errcode.As(err) == nil || errcode.As(err).Kind != errcode.KindValidation {
		t.Errorf("bogus status filter: got %v, want validation error", err)
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	svc := newTestService(t, nil)
	vehicleID := seedVehicle(t, svc.db)

	view, err := svc.Create(context.Background(), validInput(vehicleID), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), view.ID, "resolved")
	e := errcode.As(err)
	if e == nil || e.Kind != errcode.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}

	// 存量行保持不变
	stored, err := svc.Get(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != "new" {
		t.Errorf("status after rejected update: got %q, want new", stored.Status)
	}

	updated, err := svc.UpdateStatus(context.Background(), view.ID, "contacted")
	if err != nil {
		t.Fatalf("valid update: %v", err)
	}
	if updated.Status != "contacted" {
		t.Errorf("status: got %q, want contacted", updated.Status)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.UpdateStatus(context.Background(), 777, "contacted")
	e := errcode.As(err)
	if e == nil || e.Kind != errcode.KindNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestClosedInquiryStaysStored(t *testing.T) {
	svc := newTestService(t, nil)
	vehicleID := seedVehicle(t, svc.db)

	view, err := svc.Create(context.Background(), validInput(vehicleID), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), view.ID, "closed"); err != nil {
		t.Fatalf("close: %v", err)
	}

	// 关闭只是状态流转，记录必须留存。
	got, err := svc.Get(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("get after close: %v", err)
	}
	if got.Status != "closed" {
		t.Errorf("status: got %q, want closed", got.Status)
	}
	page, err := svc.List(context.Background(), Filters{Status: "closed"})
	if err != nil {
		t.Fatalf("list closed: %v", err)
	}
	if page.TotalCount != 1 {
		t.Errorf("closed inquiries listed: got %d, want 1", page.TotalCount)
	}
}

func TestCreateReturnsPersistedRow(t *testing.T) {
	svc := newTestService(t, nil)
	vehicleID := seedVehicle(t, svc.db)

	view, err := svc.Create(context.Background(), validInput(vehicleID), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.ID == 0 {
		t.Fatal("created inquiry has no id")
	}

	stored, err := svc.Get(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *view != *stored {
		t.Errorf("create returned %+v, stored row is %+v", *view, *stored)
	}
}
