package api

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"truckyard/internal/api/middleware"
	"truckyard/internal/media"
	"truckyard/internal/storage"
)

// ImageHandler 处理车辆图片的上传、删除与公开访问。
type ImageHandler struct {
	media     *media.Service
	storage   *storage.Client
	clamdAddr string
}

// NewImageHandler 构造图片处理器。clamdAddr 为空时跳过病毒扫描。
func NewImageHandler(mediaService *media.Service, storageClient *storage.Client, clamdAddr string) *ImageHandler {
	return &ImageHandler{
		media:     mediaService,
		storage:   storageClient,
		clamdAddr: clamdAddr,
	}
}

// Upload 接收 multipart 上传，扫描后交给图片服务处理。
func (h *ImageHandler) Upload(c *gin.Context) {
	vehicleID, ok := parseIDParam(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	logger := middleware.LoggerFromContext(c)

	if h.clamdAddr != "" {
		clean, err := h.scanFile(file)
		if err != nil {
			logger.Error("scan upload failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer reader.Close()

	view, err := h.media.Process(c.Request.Context(), vehicleID, media.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Reader:      reader,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// scanFile 用 clamd 扫描上传内容，干净返回 true。
func (h *ImageHandler) scanFile(file *multipart.FileHeader) (bool, error) {
	reader, err := file.Open()
	if err != nil {
		return false, err
	}

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	reader.Close()
	if err != nil {
		return false, err
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}

// Delete 删除一张图片。
func (h *ImageHandler) Delete(c *gin.Context) {
	raw := c.Param("imageId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid image id")
		return
	}

	if err := h.media.Delete(c.Request.Context(), uint(id)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListByVehicle 返回某辆车的全部图片。
func (h *ImageHandler) ListByVehicle(c *gin.Context) {
	vehicleID, ok := parseIDParam(c)
	if !ok {
		return
	}

	views, err := h.media.ListByVehicle(c.Request.Context(), vehicleID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Serve 从对象存储流式输出图片内容。
func (h *ImageHandler) Serve(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		BadRequest(c, "invalid filename")
		return
	}

	obj, info, err := h.storage.Get(c.Request.Context(), media.ObjectKey(filename))
	if err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "image not found")
			return
		}
		middleware.LoggerFromContext(c).Error("fetch image failed", slog.Any("error", err))
		Internal(c, "failed to fetch image")
		return
	}
	defer obj.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, info.Size, contentType, obj, nil)
}
