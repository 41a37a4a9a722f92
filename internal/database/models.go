package database

import (
	"time"

	"gorm.io/datatypes"
)

// Category 表示车辆分类。Slug 是对外使用的唯一标识。
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	NameJa    string `gorm:"size:100"`
	NameEn    string `gorm:"size:100"`
	Slug      string `gorm:"uniqueIndex;size:64"`
	CreatedAt time.Time
}

// Vehicle 表示在售车辆。Features 为 jsonb 存储的有序标签数组。
type Vehicle struct {
	ID            uint `gorm:"primaryKey"`
	CategoryID    uint `gorm:"index"`
	Category      Category
	Make          string `gorm:"size:100"`
	Model         string `gorm:"size:100"`
	Year          int
	Mileage       int64
	Price         int64
	EngineType    string `gorm:"size:64"`
	LengthCm      int
	WidthCm       int
	HeightCm      int
	Condition     string         `gorm:"size:32"`
	Features      datatypes.JSON `gorm:"type:jsonb"`
	DescriptionJa string         `gorm:"type:text"`
	DescriptionEn string         `gorm:"type:text"`
	Status        string         `gorm:"size:32;default:available"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VehicleImage 表示车辆图片的元数据，二进制内容存放在对象存储。
// DisplayOrder 决定展示顺序，不要求连续。
type VehicleImage struct {
	ID           uint    `gorm:"primaryKey"`
	VehicleID    uint    `gorm:"index"`
	Vehicle      Vehicle `gorm:"constraint:OnDelete:CASCADE"`
	Filename     string  `gorm:"size:255"`
	URL          string  `gorm:"size:512"`
	ThumbnailURL string  `gorm:"size:512"`
	DisplayOrder int
	UploadedAt   time.Time `gorm:"autoCreateTime"`
}

// Inquiry 表示客户针对某辆车的咨询。
type Inquiry struct {
	ID            uint    `gorm:"primaryKey"`
	VehicleID     uint    `gorm:"index"`
	Vehicle       Vehicle `gorm:"constraint:OnDelete:CASCADE"`
	CustomerName  string  `gorm:"size:100"`
	CustomerEmail string  `gorm:"size:255"`
	CustomerPhone string  `gorm:"size:64"`
	Message       string  `gorm:"type:text"`
	InquiryType   string  `gorm:"size:16"`
	Status        string  `gorm:"size:16;default:new"`
	CreatedAt     time.Time
}

// Page 表示静态内容页。未发布的页面不出现在公开列表。
type Page struct {
	ID                uint   `gorm:"primaryKey"`
	Slug              string `gorm:"uniqueIndex;size:64"`
	TitleJa           string `gorm:"size:255"`
	TitleEn           string `gorm:"size:255"`
	ContentJa         string `gorm:"type:text"`
	ContentEn         string `gorm:"type:text"`
	MetaDescriptionJa string `gorm:"size:500"`
	MetaDescriptionEn string `gorm:"size:500"`
	IsPublished       bool   `gorm:"default:false"`
	ShowInNav         bool   `gorm:"default:false"`
	FeaturedImage     string `gorm:"size:512"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// User 表示后台管理账号，不通过 CRUD API 暴露。
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
	Role         string `gorm:"size:32;default:admin"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllModels 返回需要迁移的全部模型。
func AllModels() []any {
	return []any{
		&Category{},
		&Vehicle{},
		&VehicleImage{},
		&Inquiry{},
		&Page{},
		&User{},
	}
}
