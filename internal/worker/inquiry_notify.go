package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"truckyard/internal/database"
	"truckyard/internal/tasks"
)

// NotifyChannel 是新咨询事件的 redis 发布频道。
const NotifyChannel = "inquiries:new"

// InquiryNotifyHandler 消费新咨询通知任务，把事件广播到
// redis 频道供后台实时订阅端使用。
type InquiryNotifyHandler struct {
	db     *gorm.DB
	rdb    *redis.Client
	logger *slog.Logger
}

func NewInquiryNotifyHandler(db *gorm.DB, rdb *redis.Client, logger *slog.Logger) *InquiryNotifyHandler {
	return &InquiryNotifyHandler{db: db, rdb: rdb, logger: logger}
}

// NotifyEvent 是广播到频道的事件体。
type NotifyEvent struct {
	InquiryID     uint      `json:"inquiryId"`
	VehicleID     uint      `json:"vehicleId"`
	VehicleLabel  string    `json:"vehicleLabel"`
	CustomerName  string    `json:"customerName"`
	InquiryType   string    `json:"inquiryType"`
	CreatedAt     time.Time `json:"createdAt"`
	CorrelationID string    `json:"correlationId"`
}

func (h *InquiryNotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.InquiryNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal inquiry notify payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.Int("inquiry_id", int(payload.InquiryID)),
		slog.String("correlation_id", payload.CorrelationID),
	)
	log.Info("Processing inquiry notification task...")

	var inq database.Inquiry
	if err := h.db.WithContext(ctx).First(&inq, payload.InquiryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("inquiry not found, skipping task")
			return nil
		}
		log.Error("query inquiry failed", slog.Any("error", err))
		return err
	}

	label := ""
	var veh database.Vehicle
	if err := h.db.WithContext(ctx).First(&veh, inq.VehicleID).Error; err == nil {
		label = veh.Make + " " + veh.Model
	}

	event, err := json.Marshal(NotifyEvent{
		InquiryID:     inq.ID,
		VehicleID:     inq.VehicleID,
		VehicleLabel:  label,
		CustomerName:  inq.CustomerName,
		InquiryType:   inq.InquiryType,
		CreatedAt:     inq.CreatedAt,
		CorrelationID: payload.CorrelationID,
	})
	if err != nil {
		log.Error("marshal notify event failed", slog.Any("error", err))
		return err
	}

	if err := h.rdb.Publish(ctx, NotifyChannel, event).Err(); err != nil {
		log.Error("publish notify event failed", slog.Any("error", err))
		return err
	}

	log.Info("Inquiry notification published")
	return nil
}
