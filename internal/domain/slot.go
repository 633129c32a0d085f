package domain

import "time"

// SlotGroup describes one curated homepage area backed by its own table
type SlotGroup struct {
	Name  string
	Table string
	Size  int
}

var (
	HeroGroup     = SlotGroup{Name: "hero", Table: "hero_product", Size: 1}
	FeaturedGroup = SlotGroup{Name: "featured", Table: "featured_products", Size: 3}
	HomeGroup     = SlotGroup{Name: "home", Table: "home_products", Size: 6}
)

var SlotGroups = []SlotGroup{HeroGroup, FeaturedGroup, HomeGroup}

// SlotAssignment is the common row shape of every slot table
type SlotAssignment struct {
	Slot      int       `gorm:"primaryKey;autoIncrement:false" json:"slot"`
	ProductID *string   `gorm:"size:32;index" json:"product_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HeroSlot struct {
	Slot      int       `gorm:"primaryKey;autoIncrement:false"`
	ProductID *string   `gorm:"size:32;index"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	UpdatedAt time.Time
}

func (HeroSlot) TableName() string {
	return HeroGroup.Table
}

type FeaturedSlot struct {
	Slot      int       `gorm:"primaryKey;autoIncrement:false"`
	ProductID *string   `gorm:"size:32;index"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	UpdatedAt time.Time
}

func (FeaturedSlot) TableName() string {
	return FeaturedGroup.Table
}

type HomeSlot struct {
	Slot      int       `gorm:"primaryKey;autoIncrement:false"`
	ProductID *string   `gorm:"size:32;index"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	UpdatedAt time.Time
}

func (HomeSlot) TableName() string {
	return HomeGroup.Table
}
