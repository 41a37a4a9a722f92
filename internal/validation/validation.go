package validation

import (
	"regexp"
	"strings"
	"time"

	"truckyard/internal/errcode"
)

// FieldError 描述单个字段的校验失败。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// VehicleInput 是车辆校验关心的字段集合。
type VehicleInput struct {
	Make          string
	Model         string
	Year          int
	Mileage       int64
	Price         int64
	DescriptionJa string
	DescriptionEn string
}

// InquiryInput 是咨询校验关心的字段集合。
type InquiryInput struct {
	VehicleID     uint
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Message       string
	InquiryType   string
}

const (
	minVehicleYear    = 1990
	maxNameLen        = 100
	maxDescriptionLen = 2000
	maxMessageLen     = 1000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// InquiryTypes 是允许的咨询渠道。
var InquiryTypes = []string{"phone", "email", "line"}

// InquiryStatuses 是允许的咨询状态。
var InquiryStatuses = []string{"new", "contacted", "closed"}

// ValidateVehicleInput 检查车辆输入并返回全部字段错误。
// 不在第一个错误处停止，客户端可以一次性渲染所有问题。
func ValidateVehicleInput(in VehicleInput) []FieldError {
	var errs []FieldError

	currentYear := time.Now().Year()
	if in.Year < minVehicleYear {
		errs = append(errs, FieldError{Field: "year", Message: "year must be 1990 or later"})
	}
	if in.Year > currentYear+1 {
		errs = append(errs, FieldError{Field: "year", Message: "year is too far in the future"})
	}
	if in.Price <= 0 {
		errs = append(errs, FieldError{Field: "price", Message: "price must be positive"})
	}
	if in.Mileage < 0 {
		errs = append(errs, FieldError{Field: "mileage", Message: "mileage must not be negative"})
	}
	if strings.TrimSpace(in.Make) == "" {
		errs = append(errs, FieldError{Field: "make", Message: "make is required"})
	} else if len([]rune(in.Make)) > maxNameLen {
		errs = append(errs, FieldError{Field: "make", Message: "make must be 100 characters or fewer"})
	}
	if strings.TrimSpace(in.Model) == "" {
		errs = append(errs, FieldError{Field: "model", Message: "model is required"})
	} else if len([]rune(in.Model)) > maxNameLen {
		errs = append(errs, FieldError{Field: "model", Message: "model must be 100 characters or fewer"})
	}
	if len([]rune(in.DescriptionJa)) > maxDescriptionLen {
		errs = append(errs, FieldError{Field: "descriptionJa", Message: "description must be 2000 characters or fewer"})
	}
	if len([]rune(in.DescriptionEn)) > maxDescriptionLen {
		errs = append(errs, FieldError{Field: "descriptionEn", Message: "description must be 2000 characters or fewer"})
	}

	return errs
}

// ValidateInquiryInput 检查咨询输入并返回全部字段错误。
func ValidateInquiryInput(in InquiryInput) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(in.CustomerName) == "" {
		errs = append(errs, FieldError{Field: "customerName", Message: "customer name is required"})
	} else if len([]rune(in.CustomerName)) > maxNameLen {
		errs = append(errs, FieldError{Field: "customerName", Message: "customer name must be 100 characters or fewer"})
	}

	email := strings.TrimSpace(in.CustomerEmail)
	phone := strings.TrimSpace(in.CustomerPhone)
	if email == "" && phone == "" {
		errs = append(errs,
			FieldError{Field: "customerEmail", Message: "either email or phone is required"},
			FieldError{Field: "customerPhone", Message: "either email or phone is required"},
		)
	}
	if email != "" && !emailPattern.MatchString(email) {
		errs = append(errs, FieldError{Field: "customerEmail", Message: "email address is invalid"})
	}

	if strings.TrimSpace(in.Message) == "" {
		errs = append(errs, FieldError{Field: "message", Message: "message is required"})
	} else if len([]rune(in.Message)) > maxMessageLen {
		errs = append(errs, FieldError{Field: "message", Message: "message must be 1000 characters or fewer"})
	}

	if in.VehicleID == 0 {
		errs = append(errs, FieldError{Field: "vehicleId", Message: "vehicle id must be positive"})
	}

	if !contains(InquiryTypes, in.InquiryType) {
		errs = append(errs, FieldError{Field: "inquiryType", Message: "inquiry type must be one of phone, email, line"})
	}

	return errs
}

// ValidateVehicleInputStrict 在存在字段错误时返回校验类错误，便于 fail-fast 调用方。
func ValidateVehicleInputStrict(in VehicleInput) error {
	if errs := ValidateVehicleInput(in); len(errs) > 0 {
		return errcode.Validation(errs)
	}
	return nil
}

// ValidateInquiryInputStrict 同上，针对咨询输入。
func ValidateInquiryInputStrict(in InquiryInput) error {
	if errs := ValidateInquiryInput(in); len(errs) > 0 {
		return errcode.Validation(errs)
	}
	return nil
}

// ValidInquiryStatus 判断状态是否属于固定集合。
func ValidInquiryStatus(status string) bool {
	return contains(InquiryStatuses, status)
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
