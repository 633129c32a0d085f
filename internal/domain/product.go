package domain

import "time"

// Product is a catalog item. Prices are stored in cents.
type Product struct {
	ID            string    `gorm:"primaryKey;size:32" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Subtitle      string    `gorm:"size:255" json:"subtitle"`
	Price         int64     `gorm:"not null" json:"price"`
	OldPrice      *int64    `json:"old_price"`
	PriceTwo      *int64    `json:"price_two"` // total for two units ("Leve 2")
	Category      string    `gorm:"index;size:128;not null" json:"category"`
	Brand         string    `gorm:"size:128" json:"brand"`
	Tags          string    `gorm:"size:1024" json:"tags"` // comma separated
	Image         string    `gorm:"size:1024" json:"image"`
	Images        string    `gorm:"type:text" json:"images"` // JSON array
	Description   string    `gorm:"type:text" json:"description"`
	Specs         string    `gorm:"type:text" json:"specs"` // JSON object
	IsActive      bool      `gorm:"index" json:"is_active"`
	IsBlackFriday bool      `gorm:"index" json:"is_black_friday"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
