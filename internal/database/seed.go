package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"truckyard/internal/auth"
)

// 默认分类。Slug 一旦被车辆引用即视为不可变。
var defaultCategories = []Category{
	{NameJa: "クレーン", NameEn: "Crane", Slug: "crane"},
	{NameJa: "油圧ショベル", NameEn: "Excavator", Slug: "excavator"},
	{NameJa: "ダンプ", NameEn: "Dump Truck", Slug: "dump-truck"},
	{NameJa: "トレーラー", NameEn: "Trailer", Slug: "trailer"},
	{NameJa: "ホイールローダー", NameEn: "Wheel Loader", Slug: "wheel-loader"},
	{NameJa: "その他", NameEn: "Other", Slug: "other"},
}

// SeedCategories 在分类表为空时写入默认分类。
// 所有插入在一个事务内完成，避免中断后留下半套分类。
func SeedCategories(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Category{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count > 0 {
			return nil
		}
		for i := range defaultCategories {
			c := defaultCategories[i]
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", c.Slug, err)
			}
		}
		return nil
	})
}

// SeedAdminUser 在用户表为空时创建唯一的管理员账号。
// password 为空时返回错误而不是静默创建弱口令账号。
func SeedAdminUser(db *gorm.DB, username, password string) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if username == "" {
		return errors.New("admin username is required for seeding")
	}
	if password == "" {
		return errors.New("admin password is required for seeding (set ADMIN_PASSWORD)")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user := User{
		Username:     username,
		PasswordHash: hashed,
		Role:         "admin",
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}
