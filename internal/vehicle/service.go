package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"truckyard/internal/catalog"
	"truckyard/internal/database"
	"truckyard/internal/errcode"
	"truckyard/internal/validation"
)

// Service 实现车辆的查询、过滤、分页与 CRUD。
type Service struct {
	db      *gorm.DB
	catalog *catalog.Service
}

// NewService 构造车辆服务。
func NewService(db *gorm.DB, catalogService *catalog.Service) *Service {
	return &Service{db: db, catalog: catalogService}
}

// Dimensions 是车辆外形尺寸（厘米）。
type Dimensions struct {
	Length int `json:"length"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Input 是创建/更新车辆的输入。Category 为分类 slug。
type Input struct {
	Category      string     `json:"category"`
	Make          string     `json:"make"`
	Model         string     `json:"model"`
	Year          int        `json:"year"`
	Mileage       int64      `json:"mileage"`
	Price         int64      `json:"price"`
	EngineType    string     `json:"engineType"`
	Dimensions    Dimensions `json:"dimensions"`
	Condition     string     `json:"condition"`
	Features      []string   `json:"features"`
	DescriptionJa string     `json:"descriptionJa"`
	DescriptionEn string     `json:"descriptionEn"`
	Status        string     `json:"status"`
}

// Image 是附属图片的对外表示。
type Image struct {
	ID           uint      `json:"id"`
	VehicleID    uint      `json:"vehicleId"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	DisplayOrder int       `json:"displayOrder"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// View 是完整装配后的车辆表示：分类还原为 slug，图片按展示顺序附带，
// Features 从 jsonb 解码为有序标签。字段命名在此统一转为 camelCase。
type View struct {
	ID            uint       `json:"id"`
	Category      string     `json:"category"`
	Make          string     `json:"make"`
	Model         string     `json:"model"`
	Year          int        `json:"year"`
	Mileage       int64      `json:"mileage"`
	Price         int64      `json:"price"`
	EngineType    string     `json:"engineType"`
	Dimensions    Dimensions `json:"dimensions"`
	Condition     string     `json:"condition"`
	Features      []string   `json:"features"`
	DescriptionJa string     `json:"descriptionJa"`
	DescriptionEn string     `json:"descriptionEn"`
	Status        string     `json:"status"`
	Images        []Image    `json:"images"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ListResult 是分页查询结果，TotalCount 为分页前的过滤总数。
type ListResult struct {
	Items      []View `json:"items"`
	TotalCount int64  `json:"totalCount"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

// List 返回过滤后的分页车辆列表，按创建时间倒序。
func (s *Service) List(ctx context.Context, filters Filters) (*ListResult, error) {
	filters.normalize()

	result := &ListResult{
		Items:    []View{},
		Page:     filters.Page,
		PageSize: filters.PageSize,
	}

	var b predicateBuilder
	if slug := strings.TrimSpace(filters.Category); slug != "" {
		cat, err := s.catalog.GetBySlug(ctx, slug)
		if err != nil {
			if e := errcode.As(err); e != nil && e.Kind == errcode.KindNotFound {
				// 未知 slug 不报错，按空结果返回。
				return result, nil
			}
			return nil, err
		}
		b.add("category_id = ?", cat.ID)
	}
	if filters.MinPrice != nil {
		b.add("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		b.add("price <= ?", *filters.MaxPrice)
	}
	if filters.MinYear != nil {
		b.add("year >= ?", *filters.MinYear)
	}
	if filters.MaxYear != nil {
		b.add("year <= ?", *filters.MaxYear)
	}

	query := b.apply(s.db.WithContext(ctx).Model(&database.Vehicle{}))
	if err := query.Count(&result.TotalCount).Error; err != nil {
		return nil, errcode.Internal("failed to count vehicles", err)
	}

	var rows []database.Vehicle
	offset := (filters.Page - 1) * filters.PageSize
	if err := query.
		Order("created_at DESC").
		Limit(filters.PageSize).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to list vehicles", err)
	}

	views, err := s.hydrate(ctx, rows)
	if err != nil {
		return nil, err
	}
	result.Items = views
	return result, nil
}

// Get 返回装配完成的单辆车，不存在时返回 NotFound 类错误。
func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	var row database.Vehicle
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("vehicle")
		}
		return nil, errcode.Internal("failed to query vehicle", err)
	}

	views, err := s.hydrate(ctx, []database.Vehicle{row})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create 校验输入、解析分类 slug、写入后重新读取，
// 调用方拿到的始终是持久化后的完整记录（含数据库生成的时间戳）。
func (s *Service) Create(ctx context.Context, in Input) (*View, error) {
	if err := validation.ValidateVehicleInputStrict(vehicleValidationInput(in)); err != nil {
		return nil, err
	}

	categoryID, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	row := rowFromInput(in, categoryID)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errcode.Internal("failed to create vehicle", err)
	}

	return s.Get(ctx, row.ID)
}

// Update 覆盖指定车辆并返回重新读取后的记录。目标不存在时返回 NotFound。
func (s *Service) Update(ctx context.Context, id uint, in Input) (*View, error) {
	var existing database.Vehicle
	if err := s.db.WithContext(ctx).First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("vehicle")
		}
		return nil, errcode.Internal("failed to query vehicle", err)
	}

	if err := validation.ValidateVehicleInputStrict(vehicleValidationInput(in)); err != nil {
		return nil, err
	}

	categoryID, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	row := rowFromInput(in, categoryID)
	updates := map[string]any{
		"category_id":    row.CategoryID,
		"make":           row.Make,
		"model":          row.Model,
		"year":           row.Year,
		"mileage":        row.Mileage,
		"price":          row.Price,
		"engine_type":    row.EngineType,
		"length_cm":      row.LengthCm,
		"width_cm":       row.WidthCm,
		"height_cm":      row.HeightCm,
		"condition":      row.Condition,
		"features":       row.Features,
		"description_ja": row.DescriptionJa,
		"description_en": row.DescriptionEn,
		"status":         row.Status,
	}
	if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return nil, errcode.Internal("failed to update vehicle", err)
	}

	return s.Get(ctx, id)
}

// Delete 删除车辆并级联删除其图片元数据。
// 二进制资产的清理由调用方显式交给图片组件。
func (s *Service) Delete(ctx context.Context, id uint) error {
	var existing database.Vehicle
	if err := s.db.WithContext(ctx).First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.NotFound("vehicle")
		}
		return errcode.Internal("failed to query vehicle", err)
	}

	if err := s.db.WithContext(ctx).
		Where("vehicle_id = ?", id).
		Delete(&database.VehicleImage{}).Error; err != nil {
		return errcode.Internal("failed to delete vehicle images", err)
	}
	if err := s.db.WithContext(ctx).Delete(&database.Vehicle{}, id).Error; err != nil {
		return errcode.Internal("failed to delete vehicle", err)
	}
	return nil
}

// Search 在 make、model、分类双语名称与双语描述中做大小写不敏感的子串匹配。
// 空白查询立即返回空结果，不回退为全表列出。
func (s *Service) Search(ctx context.Context, query string) ([]View, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []View{}, nil
	}

	pattern := "%" + strings.ToLower(q) + "%"
	var rows []database.Vehicle
	if err := s.db.WithContext(ctx).
		Model(&database.Vehicle{}).
		Distinct("vehicles.*").
		Joins("JOIN categories ON categories.id = vehicles.category_id").
		Where(`LOWER(vehicles.make) LIKE ? OR LOWER(vehicles.model) LIKE ?
			OR LOWER(categories.name_ja) LIKE ? OR LOWER(categories.name_en) LIKE ?
			OR LOWER(vehicles.description_ja) LIKE ? OR LOWER(vehicles.description_en) LIKE ?`,
			pattern, pattern, pattern, pattern, pattern, pattern).
		Order("vehicles.created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to search vehicles", err)
	}

	return s.hydrate(ctx, rows)
}

// Related 返回同分类下的其他车辆，按创建时间倒序。
func (s *Service) Related(ctx context.Context, id uint, limit int) ([]View, error) {
	if limit <= 0 {
		limit = 6
	}
	if limit > 24 {
		limit = 24
	}

	var row database.Vehicle
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("vehicle")
		}
		return nil, errcode.Internal("failed to query vehicle", err)
	}

	var rows []database.Vehicle
	if err := s.db.WithContext(ctx).
		Where("category_id = ? AND id <> ?", row.CategoryID, id).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to list related vehicles", err)
	}

	return s.hydrate(ctx, rows)
}

func (s *Service) resolveCategory(ctx context.Context, slug string) (uint, error) {
	cat, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		if e := errcode.As(err); e != nil && e.Kind == errcode.KindNotFound {
			return 0, errcode.Conflict("invalid_category", "category slug does not resolve")
		}
		return 0, err
	}
	return cat.ID, nil
}

// hydrate 为一页车辆批量装配分类 slug 与图片。
func (s *Service) hydrate(ctx context.Context, rows []database.Vehicle) ([]View, error) {
	views := make([]View, 0, len(rows))
	if len(rows) == 0 {
		return views, nil
	}

	ids := make([]uint, 0, len(rows))
	categoryIDs := make(map[uint]struct{}, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
		categoryIDs[r.CategoryID] = struct{}{}
	}

	catIDList := make([]uint, 0, len(categoryIDs))
	for id := range categoryIDs {
		catIDList = append(catIDList, id)
	}
	var categories []database.Category
	if err := s.db.WithContext(ctx).Where("id IN ?", catIDList).Find(&categories).Error; err != nil {
		return nil, errcode.Internal("failed to load categories", err)
	}
	slugByID := make(map[uint]string, len(categories))
	for _, c := range categories {
		slugByID[c.ID] = c.Slug
	}

	var images []database.VehicleImage
	if err := s.db.WithContext(ctx).
		Where("vehicle_id IN ?", ids).
		Order("display_order ASC").
		Find(&images).Error; err != nil {
		return nil, errcode.Internal("failed to load vehicle images", err)
	}
	imagesByVehicle := make(map[uint][]Image, len(rows))
	for _, img := range images {
		imagesByVehicle[img.VehicleID] = append(imagesByVehicle[img.VehicleID], Image{
			ID:           img.ID,
			VehicleID:    img.VehicleID,
			Filename:     img.Filename,
			URL:          img.URL,
			ThumbnailURL: img.ThumbnailURL,
			DisplayOrder: img.DisplayOrder,
			UploadedAt:   img.UploadedAt,
		})
	}

	for _, r := range rows {
		imgs := imagesByVehicle[r.ID]
		if imgs == nil {
			imgs = []Image{}
		}
		views = append(views, View{
			ID:       r.ID,
			Category: slugByID[r.CategoryID],
			Make:     r.Make,
			Model:    r.Model,
			Year:     r.Year,
			Mileage:  r.Mileage,
			Price:    r.Price,
			Dimensions: Dimensions{
				Length: r.LengthCm,
				Width:  r.WidthCm,
				Height: r.HeightCm,
			},
			EngineType:    r.EngineType,
			Condition:     r.Condition,
			Features:      decodeFeatures(r.Features),
			DescriptionJa: r.DescriptionJa,
			DescriptionEn: r.DescriptionEn,
			Status:        r.Status,
			Images:        imgs,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return views, nil
}

func vehicleValidationInput(in Input) validation.VehicleInput {
	return validation.VehicleInput{
		Make:          in.Make,
		Model:         in.Model,
		Year:          in.Year,
		Mileage:       in.Mileage,
		Price:         in.Price,
		DescriptionJa: in.DescriptionJa,
		DescriptionEn: in.DescriptionEn,
	}
}

func rowFromInput(in Input, categoryID uint) database.Vehicle {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = "available"
	}
	return database.Vehicle{
		CategoryID:    categoryID,
		Make:          strings.TrimSpace(in.Make),
		Model:         strings.TrimSpace(in.Model),
		Year:          in.Year,
		Mileage:       in.Mileage,
		Price:         in.Price,
		EngineType:    strings.TrimSpace(in.EngineType),
		LengthCm:      in.Dimensions.Length,
		WidthCm:       in.Dimensions.Width,
		HeightCm:      in.Dimensions.Height,
		Condition:     strings.TrimSpace(in.Condition),
		Features:      encodeFeatures(in.Features),
		DescriptionJa: in.DescriptionJa,
		DescriptionEn: in.DescriptionEn,
		Status:        status,
	}
}

// encodeFeatures 将标签序列编码为 jsonb 数组，保留原始顺序。
func encodeFeatures(features []string) datatypes.JSON {
	if features == nil {
		features = []string{}
	}
	data, err := json.Marshal(features)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

// decodeFeatures 解析 jsonb 标签数组；缺失或无法解析时返回空序列。
func decodeFeatures(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var features []string
	if err := json.Unmarshal(raw, &features); err != nil {
		return []string{}
	}
	if features == nil {
		return []string{}
	}
	return features
}
