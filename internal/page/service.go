package page

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"truckyard/internal/database"
	"truckyard/internal/errcode"
	"truckyard/internal/media"
	"truckyard/internal/validation"
)

// BlobRemover 抽象对象存储的删除操作。
type BlobRemover interface {
	Delete(ctx context.Context, objectKey string) error
}

// Service 负责静态内容页的管理。
type Service struct {
	db     *gorm.DB
	blobs  BlobRemover
	logger *slog.Logger
}

// NewService 构造页面服务。blobs 允许为 nil（不清理题图）。
func NewService(db *gorm.DB, blobs BlobRemover, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, blobs: blobs, logger: logger}
}

// Input 是创建或更新页面的输入。
type Input struct {
	Slug              string `json:"slug"`
	TitleJa           string `json:"titleJa"`
	TitleEn           string `json:"titleEn"`
	ContentJa         string `json:"contentJa"`
	ContentEn         string `json:"contentEn"`
	MetaDescriptionJa string `json:"metaDescriptionJa"`
	MetaDescriptionEn string `json:"metaDescriptionEn"`
	IsPublished       bool   `json:"isPublished"`
	ShowInNav         bool   `json:"showInNav"`
	FeaturedImage     string `json:"featuredImage"`
}

// View 是页面的对外表示。
type View struct {
	ID                uint      `json:"id"`
	Slug              string    `json:"slug"`
	TitleJa           string    `json:"titleJa"`
	TitleEn           string    `json:"titleEn"`
	ContentJa         string    `json:"contentJa"`
	ContentEn         string    `json:"contentEn"`
	MetaDescriptionJa string    `json:"metaDescriptionJa"`
	MetaDescriptionEn string    `json:"metaDescriptionEn"`
	IsPublished       bool      `json:"isPublished"`
	ShowInNav         bool      `json:"showInNav"`
	FeaturedImage     string    `json:"featuredImage"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func validateInput(in Input) error {
	var errs []validation.FieldError
	if !slugPattern.MatchString(in.Slug) {
		errs = append(errs, validation.FieldError{
			Field: "slug", Message: "slug must be lowercase letters, digits and hyphens",
		})
	}
	if strings.TrimSpace(in.TitleJa) == "" && strings.TrimSpace(in.TitleEn) == "" {
		errs = append(errs, validation.FieldError{
			Field: "titleJa", Message: "at least one title is required",
		})
	}
	if len(errs) > 0 {
		return errcode.Validation(errs)
	}
	return nil
}

// ListPublished 返回已发布页面，按 slug 升序。
func (s *Service) ListPublished(ctx context.Context) ([]View, error) {
	return s.list(ctx, true)
}

// ListAll 返回全部页面，后台管理用。
func (s *Service) ListAll(ctx context.Context) ([]View, error) {
	return s.list(ctx, false)
}

func (s *Service) list(ctx context.Context, publishedOnly bool) ([]View, error) {
	query := s.db.WithContext(ctx).Model(&database.Page{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var rows []database.Page
	if err := query.Order("slug ASC").Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to list pages", err)
	}

	views := make([]View, 0, len(rows))
	for _, r := range rows {
		views = append(views, newView(r))
	}
	return views, nil
}

// GetBySlug 按 slug 返回页面。publishedOnly 时未发布视为不存在。
func (s *Service) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*View, error) {
	query := s.db.WithContext(ctx).Where("slug = ?", slug)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var row database.Page
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("page")
		}
		return nil, errcode.Internal("failed to query page", err)
	}
	v := newView(row)
	return &v, nil
}

// Get 按 ID 返回页面，后台管理用。
func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	var row database.Page
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("page")
		}
		return nil, errcode.Internal("failed to query page", err)
	}
	v := newView(row)
	return &v, nil
}

// Create 新建页面。slug 冲突返回业务冲突错误。
func (s *Service) Create(ctx context.Context, in Input) (*View, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&database.Page{}).
		Where("slug = ?", in.Slug).
		Count(&count).Error; err != nil {
		return nil, errcode.Internal("failed to check slug", err)
	}
	if count > 0 {
		return nil, errcode.Conflict("duplicate_slug", "a page with this slug already exists")
	}

	row := database.Page{
		Slug:              in.Slug,
		TitleJa:           in.TitleJa,
		TitleEn:           in.TitleEn,
		ContentJa:         in.ContentJa,
		ContentEn:         in.ContentEn,
		MetaDescriptionJa: in.MetaDescriptionJa,
		MetaDescriptionEn: in.MetaDescriptionEn,
		IsPublished:       in.IsPublished,
		ShowInNav:         in.ShowInNav,
		FeaturedImage:     in.FeaturedImage,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errcode.Internal("failed to persist page", err)
	}

	v := newView(row)
	return &v, nil
}

// Update 覆盖式更新页面。题图被替换时旧题图的对象尽力清理。
func (s *Service) Update(ctx context.Context, id uint, in Input) (*View, error) {
	var row database.Page
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("page")
		}
		return nil, errcode.Internal("failed to query page", err)
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}

	if in.Slug != row.Slug {
		var count int64
		if err := s.db.WithContext(ctx).Model(&database.Page{}).
			Where("slug = ? AND id <> ?", in.Slug, id).
			Count(&count).Error; err != nil {
			return nil, errcode.Internal("failed to check slug", err)
		}
		if count > 0 {
			return nil, errcode.Conflict("duplicate_slug", "a page with this slug already exists")
		}
	}

	oldFeatured := row.FeaturedImage

	updates := map[string]any{
		"slug":                in.Slug,
		"title_ja":            in.TitleJa,
		"title_en":            in.TitleEn,
		"content_ja":          in.ContentJa,
		"content_en":          in.ContentEn,
		"meta_description_ja": in.MetaDescriptionJa,
		"meta_description_en": in.MetaDescriptionEn,
		"is_published":        in.IsPublished,
		"show_in_nav":         in.ShowInNav,
		"featured_image":      in.FeaturedImage,
	}
	if err := s.db.WithContext(ctx).Model(&row).Updates(updates).Error; err != nil {
		return nil, errcode.Internal("failed to update page", err)
	}

	if oldFeatured != "" && oldFeatured != in.FeaturedImage {
		s.removeFeaturedBlob(ctx, oldFeatured)
	}

	return s.Get(ctx, id)
}

// Delete 删除页面，题图对象尽力清理。
func (s *Service) Delete(ctx context.Context, id uint) error {
	var row database.Page
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.NotFound("page")
		}
		return errcode.Internal("failed to query page", err)
	}

	if err := s.db.WithContext(ctx).Delete(&database.Page{}, id).Error; err != nil {
		return errcode.Internal("failed to delete page", err)
	}

	if row.FeaturedImage != "" {
		s.removeFeaturedBlob(ctx, row.FeaturedImage)
	}
	return nil
}

const servedImagePrefix = "/api/images/"

// removeFeaturedBlob 清理本服务托管的题图对象。外部 URL 不处理。
func (s *Service) removeFeaturedBlob(ctx context.Context, featured string) {
	if s.blobs == nil || !strings.HasPrefix(featured, servedImagePrefix) {
		return
	}
	filename := strings.TrimPrefix(featured, servedImagePrefix)
	if err := s.blobs.Delete(ctx, media.ObjectKey(filename)); err != nil {
		s.logger.Error("remove featured image failed",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
	}
}

func newView(r database.Page) View {
	return View{
		ID:                r.ID,
		Slug:              r.Slug,
		TitleJa:           r.TitleJa,
		TitleEn:           r.TitleEn,
		ContentJa:         r.ContentJa,
		ContentEn:         r.ContentEn,
		MetaDescriptionJa: r.MetaDescriptionJa,
		MetaDescriptionEn: r.MetaDescriptionEn,
		IsPublished:       r.IsPublished,
		ShowInNav:         r.ShowInNav,
		FeaturedImage:     r.FeaturedImage,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
