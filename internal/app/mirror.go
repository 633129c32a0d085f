package app

import (
	"context"
	"time"

	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/internal/mirror"
	"github.com/maudia1/site/pkg/common"
	"github.com/maudia1/site/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const mirrorTaskTimeout = 30 * time.Second

func (a *Application) subscribeMirror() error {
	if err := a.bus.Subscribe(catalog.TopicProductSaved, a.onProductSaved); err != nil {
		return errors.Wrap(err, "subscribe product saved")
	}
	if err := a.bus.Subscribe(catalog.TopicProductDeleted, a.onProductDeleted); err != nil {
		return errors.Wrap(err, "subscribe product deleted")
	}
	return nil
}

// submit runs task on the mirror pool; it is dropped when the mirror is disabled
func (a *Application) submit(name string, task func(ctx context.Context) error) {
	if !a.mirror.Enabled() || a.pool == nil {
		return
	}
	err := a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTaskTimeout)
		defer cancel()
		if err := task(ctx); err != nil {
			metrics.Incr("mirror_errors")
			zap.L().Warn("mirror task failed", zap.String("task", name), zap.Error(err), zap.String("namespace", "mirror"))
			return
		}
		metrics.Incr("mirror_calls")
	})
	if err != nil {
		zap.L().Warn("mirror task rejected", zap.String("task", name), zap.Error(err), zap.String("namespace", "mirror"))
	}
}

func (a *Application) onProductSaved(p domain.Product) {
	row := mirror.NewProductRow(p)
	a.submit("upsert_product", func(ctx context.Context) error {
		return a.mirror.UpsertProduct(ctx, row)
	})
}

func (a *Application) onProductDeleted(id string) {
	a.submit("delete_product", func(ctx context.Context) error {
		return a.mirror.DeleteProduct(ctx, id)
	})
}

// RecordVisitor registers a visit in the background
func (a *Application) RecordVisitor(phone, name string) {
	digits := common.Digits(phone)
	if digits == "" {
		return
	}
	metrics.Incr("visitors")
	a.submit("ensure_visitor", func(ctx context.Context) error {
		return a.mirror.EnsureVisitor(ctx, digits, name)
	})
}

// ResyncMirror upserts every product, stopping at the first failure
func (a *Application) ResyncMirror(ctx context.Context) (int, error) {
	if !a.mirror.Enabled() {
		return 0, mirror.ErrDisabled
	}
	products, err := a.catalog.All(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range products {
		if err := a.mirror.UpsertProduct(ctx, mirror.NewProductRow(p)); err != nil {
			return n, errors.Wrapf(err, "resync product %s", p.ID)
		}
		n++
	}
	zap.L().Info("mirror resync finished", zap.Int("products", n), zap.String("namespace", "mirror"))
	return n, nil
}
