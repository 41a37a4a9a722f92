package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"truckyard/internal/database"
	"truckyard/internal/errcode"
)

// Service 提供分类的读取与后台维护。
type Service struct {
	db *gorm.DB
}

// NewService 构造分类服务。
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// View 是分类的对外表示。
type View struct {
	ID     uint   `json:"id"`
	NameJa string `json:"nameJa"`
	NameEn string `json:"nameEn"`
	Slug   string `json:"slug"`
}

// Input 是创建分类的输入。
type Input struct {
	NameJa string `json:"nameJa"`
	NameEn string `json:"nameEn"`
	Slug   string `json:"slug"`
}

// List 返回全部分类，按 id 升序。
func (s *Service) List(ctx context.Context) ([]View, error) {
	var rows []database.Category
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to list categories", err)
	}

	views := make([]View, 0, len(rows))
	for _, r := range rows {
		views = append(views, newView(r))
	}
	return views, nil
}

// Get 按 id 返回分类，不存在时返回 NotFound 类错误。
func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	var row database.Category
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("category")
		}
		return nil, errcode.Internal("failed to query category", err)
	}
	v := newView(row)
	return &v, nil
}

// GetBySlug 按 slug 返回分类，不存在时返回 NotFound 类错误。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*View, error) {
	slug = strings.TrimSpace(slug)
	var row database.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("category")
		}
		return nil, errcode.Internal("failed to query category", err)
	}
	v := newView(row)
	return &v, nil
}

// Create 新建分类。slug 冲突返回领域错误。
func (s *Service) Create(ctx context.Context, in Input) (*View, error) {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" || strings.TrimSpace(in.NameJa) == "" {
		return nil, errcode.Conflict("invalid_category", "category slug and Japanese name are required")
	}

	var existing database.Category
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error
	switch {
	case err == nil:
		return nil, errcode.Conflict("duplicate_slug", "category slug already exists")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errcode.Internal("failed to query category", err)
	}

	row := database.Category{
		NameJa: strings.TrimSpace(in.NameJa),
		NameEn: strings.TrimSpace(in.NameEn),
		Slug:   slug,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errcode.Internal("failed to create category", err)
	}
	v := newView(row)
	return &v, nil
}

// Delete 删除分类。仍被车辆引用时拒绝删除。
func (s *Service) Delete(ctx context.Context, id uint) error {
	var row database.Category
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.NotFound("category")
		}
		return errcode.Internal("failed to query category", err)
	}

	var refs int64
	if err := s.db.WithContext(ctx).Model(&database.Vehicle{}).
		Where("category_id = ?", id).
		Count(&refs).Error; err != nil {
		return errcode.Internal("failed to count category references", err)
	}
	if refs > 0 {
		return errcode.Conflict("category_in_use", "category is referenced by vehicles")
	}

	if err := s.db.WithContext(ctx).Delete(&database.Category{}, id).Error; err != nil {
		return errcode.Internal("failed to delete category", err)
	}
	return nil
}

func newView(c database.Category) View {
	return View{
		ID:     c.ID,
		NameJa: c.NameJa,
		NameEn: c.NameEn,
		Slug:   c.Slug,
	}
}
