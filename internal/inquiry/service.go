package inquiry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"truckyard/internal/database"
	"truckyard/internal/errcode"
	"truckyard/internal/tasks"
	"truckyard/internal/validation"
)

// Enqueuer 抽象任务队列客户端，nil 时跳过通知。
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service 负责客户咨询的受理与后台管理。
type Service struct {
	db       *gorm.DB
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewService 构造咨询服务。enqueuer 允许为 nil（不发通知）。
func NewService(db *gorm.DB, enqueuer Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, enqueuer: enqueuer, logger: logger}
}

// Input 是创建咨询的输入。
type Input struct {
	VehicleID     uint   `json:"vehicleId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	Message       string `json:"message"`
	InquiryType   string `json:"inquiryType"`
}

// View 是咨询的对外表示。
type View struct {
	ID            uint      `json:"id"`
	VehicleID     uint      `json:"vehicleId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone"`
	Message       string    `json:"message"`
	InquiryType   string    `json:"inquiryType"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filters 描述咨询列表的过滤条件。
type Filters struct {
	Status    string
	VehicleID uint
	Page      int
	PageSize  int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (f *Filters) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

// ListResult 是分页后的咨询列表。
type ListResult struct {
	Items      []View `json:"items"`
	TotalCount int64  `json:"totalCount"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

// Create 受理一条咨询。状态强制为 new，车辆必须存在。
// 入库成功后尽力投递通知任务，失败只记录日志。
func (s *Service) Create(ctx context.Context, in Input, correlationID string) (*View, error) {
	if err := validation.ValidateInquiryInputStrict(validation.InquiryInput{
		VehicleID:     in.VehicleID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Message:       in.Message,
		InquiryType:   in.InquiryType,
	}); err != nil {
		return nil, err
	}

	var veh database.Vehicle
	if err := s.db.WithContext(ctx).First(&veh, in.VehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Conflict("invalid_vehicle", "vehicle does not exist")
		}
		return nil, errcode.Internal("failed to query vehicle", err)
	}

	row := database.Inquiry{
		VehicleID:     in.VehicleID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Message:       in.Message,
		InquiryType:   in.InquiryType,
		Status:        "new",
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errcode.Internal("failed to persist inquiry", err)
	}

	s.notify(ctx, row.ID, correlationID)

	return s.Get(ctx, row.ID)
}

func (s *Service) notify(ctx context.Context, inquiryID uint, correlationID string) {
	if s.enqueuer == nil {
		return
	}
	task, err := tasks.NewInquiryNotifyTask(inquiryID, correlationID)
	if err != nil {
		s.logger.Error("build inquiry notify task failed",
			slog.Uint64("inquiry_id", uint64(inquiryID)),
			slog.Any("error", err),
		)
		return
	}
	if _, err := s.enqueuer.EnqueueContext(ctx, task); err != nil {
		s.logger.Error("enqueue inquiry notify failed",
			slog.Uint64("inquiry_id", uint64(inquiryID)),
			slog.Any("error", err),
		)
	}
}

// List 返回按创建时间倒序的咨询分页。
func (s *Service) List(ctx context.Context, f Filters) (*ListResult, error) {
	f.normalize()

	if f.Status != "" && !validation.ValidInquiryStatus(f.Status) {
		return nil, errcode.Validation([]validation.FieldError{
			{Field: "status", Message: "status must be one of new, contacted, closed"},
		})
	}

	query := s.db.WithContext(ctx).Model(&database.Inquiry{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.VehicleID != 0 {
		query = query.Where("vehicle_id = ?", f.VehicleID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, errcode.Internal("failed to count inquiries", err)
	}

	var rows []database.Inquiry
	if err := query.
		Order("created_at DESC").
		Limit(f.PageSize).
		Offset((f.Page - 1) * f.PageSize).
		Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to list inquiries", err)
	}

	items := make([]View, 0, len(rows))
	for _, r := range rows {
		items = append(items, newView(r))
	}
	return &ListResult{Items: items, TotalCount: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Get 返回单条咨询。
func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	var row database.Inquiry
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("inquiry")
		}
		return nil, errcode.Internal("failed to query inquiry", err)
	}
	v := newView(row)
	return &v, nil
}

// UpdateStatus 修改咨询状态。状态不在固定集合内时存量行保持不变。
func (s *Service) UpdateStatus(ctx context.Context, id uint, status string) (*View, error) {
	if !validation.ValidInquiryStatus(status) {
		return nil, errcode.Validation([]validation.FieldError{
			{Field: "status", Message: "status must be one of new, contacted, closed"},
		})
	}

	var row database.Inquiry
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("inquiry")
		}
		return nil, errcode.Internal("failed to query inquiry", err)
	}

	if err := s.db.WithContext(ctx).Model(&row).Update("status", status).Error; err != nil {
		return nil, errcode.Internal("failed to update inquiry status", err)
	}

	return s.Get(ctx, id)
}

func newView(r database.Inquiry) View {
	return View{
		ID:            r.ID,
		VehicleID:     r.VehicleID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Message:       r.Message,
		InquiryType:   r.InquiryType,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}
}
