package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/maudia1/site/config"
	"github.com/maudia1/site/internal/cart"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/internal/mirror"
	"github.com/maudia1/site/internal/whatsapp"
	"github.com/maudia1/site/pkg/metrics"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	jobs      []job
	bus       EventBus.Bus
	pool      *ants.Pool
	cache     catalog.Cache
	catalog   *catalog.Service
	cartStore cart.Store
	carts     *cart.Service
	mirror    *mirror.Client
	checkout  *whatsapp.Service
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ CartProvider      = (*Application)(nil)
	_ MirrorProvider    = (*Application)(nil)
	_ CheckoutProvider  = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the database handle and rebuilds the services on top of it (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) error {
	a.gormDB = db
	if err := a.MigrateDB(false); err != nil {
		return err
	}
	if err := a.setupServices(); err != nil {
		return err
	}
	a.checkSlots()
	return nil
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if err := cfg.InitDirs(); err != nil {
		zap.S().Warn("Failed to create work dirs:", err)
	}

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	db, err := getDatabase(cfg)
	if err != nil {
		zap.S().Fatalf("database connection failed: %v", err)
	}
	a.gormDB = db
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	if err := a.setupServices(); err != nil {
		zap.S().Fatalf("service setup failed: %v", err)
	}

	a.checkSlots()
	a.initJob()
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// InitDb recreates every table and seeds the slot rows
func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
	}
	if a.catalog != nil {
		a.checkSlots()
	}
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

func (a *Application) Carts() *cart.Service {
	return a.carts
}

func (a *Application) Mirror() *mirror.Client {
	return a.mirror
}

func (a *Application) Checkout() *whatsapp.Service {
	return a.checkout
}

// StartBackgroundJobs runs loops bound to ctx
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	a.startCounterFlush(ctx, time.Minute)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.pool != nil {
		if err := a.pool.ReleaseTimeout(5 * time.Second); err != nil {
			zap.L().Warn("mirror pool release timeout", zap.Error(err))
		}
	}
	if a.cartStore != nil {
		_ = a.cartStore.Close()
	}
	metrics.FlushCounters()
	_ = metrics.Close()
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
