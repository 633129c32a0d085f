package app

import (
	"context"
	"os"
	"time"

	"github.com/maudia1/site/pkg/metrics"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge("system_cpuuse", int64(_cpuuse[0]*100)) // percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(_meminfo.Used/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("iwanted_cpuuse", int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("iwanted_memuse", int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedCatalogStatsTask records catalog size gauges
func (a *Application) SchedCatalogStatsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	var total, active int64
	a.gormDB.Table("products").Count(&total)
	a.gormDB.Table("products").Where("is_active = ?", true).Count(&active)
	metrics.SetGauge("catalog_products", total)
	metrics.SetGauge("catalog_active_products", active)
}

// SchedPurgeCartsTask drops carts idle for longer than the retention window
func (a *Application) SchedPurgeCartsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	days := a.appConfig.Cart.RetentionDays
	if days <= 0 {
		days = 30
	}
	n, err := a.cartStore.PurgeBefore(context.Background(), time.Now().Add(-24*time.Hour*time.Duration(days)))
	if err != nil {
		zap.L().Error("cart purge failed", zap.Error(err), zap.String("namespace", "cart"))
		return
	}
	if n > 0 {
		zap.L().Info("purged idle carts", zap.Int("count", n), zap.String("namespace", "cart"))
	}
}

// SchedMirrorResyncTask pushes the full catalog to the mirror
func (a *Application) SchedMirrorResyncTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if !a.mirror.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if _, err := a.ResyncMirror(ctx); err != nil {
		zap.L().Warn("scheduled mirror resync failed", zap.Error(err), zap.String("namespace", "mirror"))
	}
}
