package app

import (
	"context"

	"github.com/maudia1/site/config"
	"github.com/maudia1/site/internal/cart"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/mirror"
	"github.com/maudia1/site/internal/whatsapp"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
	Jobs() []JobInfo
	RunJob(name string) error
}

// CatalogProvider provides the product and slot service
type CatalogProvider interface {
	Catalog() *catalog.Service
}

// CartProvider provides server-side carts
type CartProvider interface {
	Carts() *cart.Service
}

// MirrorProvider provides the external REST mirror
type MirrorProvider interface {
	Mirror() *mirror.Client
	// ResyncMirror pushes every stored product to the mirror
	ResyncMirror(ctx context.Context) (int, error)
	// RecordVisitor queues a visit for phone without blocking the caller
	RecordVisitor(phone, name string)
}

// CheckoutProvider provides the WhatsApp hand-off builder
type CheckoutProvider interface {
	Checkout() *whatsapp.Service
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	CatalogProvider
	CartProvider
	MirrorProvider
	CheckoutProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
