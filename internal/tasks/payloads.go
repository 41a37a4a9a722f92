package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型名。
const (
	TypeInquiryNotify = "inquiry:notify"
)

// InquiryNotifyPayload 是新咨询通知任务的载荷。
type InquiryNotifyPayload struct {
	InquiryID     uint   `json:"inquiry_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewInquiryNotifyTask 构造新咨询通知任务。
func NewInquiryNotifyTask(inquiryID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(InquiryNotifyPayload{
		InquiryID:     inquiryID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInquiryNotify, payload, asynq.MaxRetry(5)), nil
}
