package app

import (
	"context"
	"time"

	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/pkg/common"
	"go.uber.org/zap"
)

// checkSlots makes sure every hero/featured/home position has a row
func (a *Application) checkSlots() {
	if err := a.catalog.EnsureSlots(context.Background()); err != nil {
		zap.L().Error("failed to initialize slots", zap.Error(err))
		return
	}
	for _, g := range domain.SlotGroups {
		zap.L().Debug("slots ready", zap.String("group", g.Name), zap.Int("size", g.Size))
	}
}

func demoPrice(c int64) *int64 { return &c }

// SeedDemoProducts creates a small demo catalog; products already present by name are skipped
func (a *Application) SeedDemoProducts(ctx context.Context) (int, error) {
	defaultProducts := []domain.Product{
		{Name: "Fone Bluetooth Pro", Category: "Áudio", Brand: "iWanted", Price: 19990, OldPrice: demoPrice(24990), PriceTwo: demoPrice(34990), Tags: "fone,bluetooth", IsActive: true, IsBlackFriday: true},
		{Name: "Carregador Turbo 30W", Category: "Carregadores", Brand: "iWanted", Price: 8990, Tags: "carregador,usb-c", IsActive: true},
		{Name: "Capa Antichoque", Category: "Capas", Brand: "iWanted", Price: 4990, PriceTwo: demoPrice(7990), Tags: "capa", IsActive: true},
		{Name: "Smartwatch Fit", Category: "Relógios", Brand: "iWanted", Price: 42990, OldPrice: demoPrice(49990), Tags: "relogio,smartwatch", IsActive: true, IsBlackFriday: true},
	}

	created := 0
	for _, p := range defaultProducts {
		var count int64
		a.gormDB.WithContext(ctx).Model(&domain.Product{}).Where("name = ?", p.Name).Count(&count)
		if count > 0 {
			continue
		}
		p.ID = common.NewID()
		p.Images = "[]"
		p.Specs = "{}"
		p.CreatedAt = time.Now()
		p.UpdatedAt = time.Now()
		if _, err := a.catalog.Import(ctx, []domain.Product{p}); err != nil {
			zap.L().Error("failed to create demo product", zap.String("name", p.Name), zap.Error(err))
			return created, err
		}
		created++
		zap.L().Info("initialized demo product", zap.String("name", p.Name))
	}
	return created, nil
}
