package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	BaseModel
	Deletable
	Name        string `gorm:"type:varchar(100);uniqueIndex:idx_categories_name_live,where:deleted_at IS NULL;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

type CustomerCategory struct {
	BaseModel
	Deletable
	Code                   string          `gorm:"type:varchar(30);uniqueIndex:idx_customer_categories_code_live,where:deleted_at IS NULL;not null" json:"code"`
	Name                   string          `gorm:"type:varchar(100);not null" json:"name"`
	Description            string          `gorm:"type:text" json:"description"`
	DefaultDiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"default_discount_percent"`
}

type Customer struct {
	BaseModel
	Deletable
	Name                 string     `gorm:"type:varchar(255);not null;index" json:"name"`
	Email                string     `gorm:"type:varchar(255);index" json:"email"`
	Phone                string     `gorm:"type:varchar(30)" json:"phone"`
	Address              string     `gorm:"type:text" json:"address"`
	CustomerCategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"customer_category_id"`
	CustomerCategoryName string     `gorm:"type:varchar(100)" json:"customer_category_name"`
	Notes                string     `gorm:"type:text" json:"notes"`
}
