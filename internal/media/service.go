package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"gorm.io/gorm"

	// 注册 webp 解码器，仅用于解码。
	_ "golang.org/x/image/webp"

	"truckyard/internal/database"
	"truckyard/internal/errcode"
)

// ObjectStore 是图片组件依赖的对象存储接口。
// Delete 必须幂等：对象不存在视为成功。
type ObjectStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectKey string) error
}

// Service 负责图片上传、缩略图生成、配额与孤儿文件清理。
type Service struct {
	db        *gorm.DB
	store     ObjectStore
	logger    *slog.Logger
	maxBytes  int64
	maxImages int
}

// NewService 构造图片服务。
func NewService(db *gorm.DB, store ObjectStore, logger *slog.Logger, maxBytes int64, maxImages int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	if maxImages <= 0 {
		maxImages = 20
	}
	return &Service{
		db:        db,
		store:     store,
		logger:    logger,
		maxBytes:  maxBytes,
		maxImages: maxImages,
	}
}

// Upload 描述一次上传的输入。
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// View 是图片元数据的对外表示。
type View struct {
	ID           uint      `json:"id"`
	VehicleID    uint      `json:"vehicleId"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	DisplayOrder int       `json:"displayOrder"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

const (
	objectPrefix = "vehicle-images/"
	urlPrefix    = "/api/images/"

	thumbWidth  = 300
	thumbHeight = 200
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// ObjectKey 返回文件名对应的存储 key。
func ObjectKey(filename string) string {
	return objectPrefix + filename
}

// Process 将上传内容重编码为统一的全尺寸 JPEG，并生成
// 300×200 中心裁切的缩略图。写入顺序：全图、缩略图、元数据行；
// 元数据写入失败时已写入的对象会被回滚删除，避免孤儿文件。
func (s *Service) Process(ctx context.Context, vehicleID uint, up Upload) (*View, error) {
	if up.Size > s.maxBytes {
		return nil, errcode.Conflict("file_too_large", fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !allowedExtensions[ext] {
		return nil, errcode.Conflict("unsupported_media_type", "file must be jpeg, png or webp")
	}
	if ct := strings.ToLower(strings.TrimSpace(up.ContentType)); ct != "" && !allowedContentTypes[ct] {
		return nil, errcode.Conflict("unsupported_media_type", "content type must be jpeg, png or webp")
	}

	var veh database.Vehicle
	if err := s.db.WithContext(ctx).First(&veh, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Conflict("invalid_vehicle", "vehicle does not exist")
		}
		return nil, errcode.Internal("failed to query vehicle", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&database.VehicleImage{}).
		Where("vehicle_id = ?", vehicleID).
		Count(&count).Error; err != nil {
		return nil, errcode.Internal("failed to count vehicle images", err)
	}
	if count >= int64(s.maxImages) {
		return nil, errcode.Conflict("image_quota_exceeded",
			fmt.Sprintf("vehicle already has %d images", s.maxImages))
	}

	img, err := imaging.Decode(up.Reader)
	if err != nil {
		return nil, errcode.Conflict("invalid_image", "file is not a decodable image")
	}

	full := new(bytes.Buffer)
	if err := imaging.Encode(full, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, errcode.Internal("failed to encode image", err)
	}

	thumbImg := imaging.Fill(img, thumbWidth, thumbHeight, imaging.Center, imaging.Lanczos)
	thumb := new(bytes.Buffer)
	if err := imaging.Encode(thumb, thumbImg, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, errcode.Internal("failed to encode thumbnail", err)
	}

	filename := newFilename()
	thumbName := thumbFilename(filename)

	rb := s.newRollback()
	defer rb.run(ctx)

	if err := s.store.Upload(ctx, ObjectKey(filename), full, int64(full.Len()), "image/jpeg"); err != nil {
		return nil, errcode.Internal("failed to store image", err)
	}
	rb.register(ObjectKey(filename))

	if err := s.store.Upload(ctx, ObjectKey(thumbName), thumb, int64(thumb.Len()), "image/jpeg"); err != nil {
		return nil, errcode.Internal("failed to store thumbnail", err)
	}
	rb.register(ObjectKey(thumbName))

	var nextOrder int
	if err := s.db.WithContext(ctx).Model(&database.VehicleImage{}).
		Where("vehicle_id = ?", vehicleID).
		Select("COALESCE(MAX(display_order) + 1, 0)").
		Scan(&nextOrder).Error; err != nil {
		return nil, errcode.Internal("failed to compute display order", err)
	}

	row := database.VehicleImage{
		VehicleID:    vehicleID,
		Filename:     filename,
		URL:          urlPrefix + filename,
		ThumbnailURL: urlPrefix + thumbName,
		DisplayOrder: nextOrder,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errcode.Internal("failed to persist image metadata", err)
	}
	rb.commit()

	v := newView(row)
	return &v, nil
}

// Delete 删除一张图片：先删对象（幂等），再删元数据行，
// 与上传的写入顺序互为镜像。
func (s *Service) Delete(ctx context.Context, id uint) error {
	var row database.VehicleImage
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.NotFound("image")
		}
		return errcode.Internal("failed to query image", err)
	}

	if err := s.store.Delete(ctx, ObjectKey(row.Filename)); err != nil {
		return errcode.Internal("failed to delete image object", err)
	}
	if err := s.store.Delete(ctx, ObjectKey(thumbFilename(row.Filename))); err != nil {
		return errcode.Internal("failed to delete thumbnail object", err)
	}

	if err := s.db.WithContext(ctx).Delete(&database.VehicleImage{}, id).Error; err != nil {
		return errcode.Internal("failed to delete image metadata", err)
	}
	return nil
}

// ListByVehicle 返回某辆车的全部图片，按展示顺序升序。
func (s *Service) ListByVehicle(ctx context.Context, vehicleID uint) ([]View, error) {
	var rows []database.VehicleImage
	if err := s.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("display_order ASC").
		Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to list vehicle images", err)
	}

	views := make([]View, 0, len(rows))
	for _, r := range rows {
		views = append(views, newView(r))
	}
	return views, nil
}

// VehicleObjectKeys 返回某辆车全部图片对象的 key（含缩略图）。
// 用于在整车删除前收集需要清理的二进制资产。
func (s *Service) VehicleObjectKeys(ctx context.Context, vehicleID uint) ([]string, error) {
	var rows []database.VehicleImage
	if err := s.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Find(&rows).Error; err != nil {
		return nil, errcode.Internal("failed to list vehicle images", err)
	}

	keys := make([]string, 0, len(rows)*2)
	for _, r := range rows {
		keys = append(keys, ObjectKey(r.Filename), ObjectKey(thumbFilename(r.Filename)))
	}
	return keys, nil
}

// RemoveBlobs 尽力删除给定对象。失败只记录日志，不向上传播。
func (s *Service) RemoveBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Error("remove blob failed",
				slog.String("object_key", key),
				slog.Any("error", err),
			)
		}
	}
}

// newFilename 生成时间戳加随机后缀的文件名，并发上传不会撞名。
func newFilename() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d_%s.jpg", time.Now().UnixMilli(), suffix)
}

func thumbFilename(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + "_thumb.jpg"
}

func newView(r database.VehicleImage) View {
	return View{
		ID:           r.ID,
		VehicleID:    r.VehicleID,
		Filename:     r.Filename,
		URL:          r.URL,
		ThumbnailURL: r.ThumbnailURL,
		DisplayOrder: r.DisplayOrder,
		UploadedAt:   r.UploadedAt,
	}
}
