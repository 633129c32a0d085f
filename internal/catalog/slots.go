package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/maudia1/site/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureSlots creates an empty row for every slot position
func (s *Service) EnsureSlots(ctx context.Context) error {
	for _, g := range domain.SlotGroups {
		rows := make([]domain.SlotAssignment, 0, g.Size)
		for i := 1; i <= g.Size; i++ {
			rows = append(rows, domain.SlotAssignment{Slot: i, UpdatedAt: time.Now()})
		}
		err := s.db.WithContext(ctx).Table(g.Table).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&rows).Error
		if err != nil {
			return errors.Wrapf(err, "seed %s slots", g.Name)
		}
	}
	return nil
}

func (s *Service) slotIDs(ctx context.Context, g domain.SlotGroup) ([]*string, error) {
	var rows []domain.SlotAssignment
	if err := s.db.WithContext(ctx).Table(g.Table).Order("slot ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "load %s slots", g.Name)
	}
	ids := make([]*string, g.Size)
	for _, r := range rows {
		if r.Slot >= 1 && r.Slot <= g.Size && r.ProductID != nil && *r.ProductID != "" {
			id := *r.ProductID
			ids[r.Slot-1] = &id
		}
	}
	return ids, nil
}

func (s *Service) activeByID(ctx context.Context, tx *gorm.DB, ids []*string) (map[string]*domain.Product, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			keys = append(keys, *id)
		}
	}
	result := make(map[string]*domain.Product, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	var rows []domain.Product
	if err := tx.WithContext(ctx).Where("id IN ? AND is_active = ?", keys, true).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load slot products")
	}
	for i := range rows {
		result[rows[i].ID] = &rows[i]
	}
	return result, nil
}

// Slots lists every position of g; product is set only for active products
func (s *Service) Slots(ctx context.Context, g domain.SlotGroup) ([]SlotView, error) {
	key := "slots:" + g.Name
	var cached []SlotView
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	views, err := s.loadSlots(ctx, g)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, views)
	return views, nil
}

func (s *Service) loadSlots(ctx context.Context, g domain.SlotGroup) ([]SlotView, error) {
	ids, err := s.slotIDs(ctx, g)
	if err != nil {
		return nil, err
	}
	products, err := s.activeByID(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	views := make([]SlotView, 0, g.Size)
	for i, id := range ids {
		v := SlotView{Slot: i + 1, ProductID: id}
		if id != nil {
			if p, ok := products[*id]; ok {
				v.Product = newSlotProduct(p)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// SlotProducts returns the full active products of g in slot order
func (s *Service) SlotProducts(ctx context.Context, g domain.SlotGroup) ([]*ProductView, error) {
	key := "slot-products:" + g.Name
	var cached []*ProductView
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	ids, err := s.slotIDs(ctx, g)
	if err != nil {
		return nil, err
	}
	products, err := s.activeByID(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	views := make([]*ProductView, 0, len(products))
	for _, id := range ids {
		if id == nil {
			continue
		}
		if p, ok := products[*id]; ok {
			views = append(views, NewProductView(p))
		}
	}
	s.cache.Set(ctx, key, views)
	return views, nil
}

func (s *Service) Featured(ctx context.Context) ([]SlotView, error) {
	return s.Slots(ctx, domain.FeaturedGroup)
}

func (s *Service) FeaturedProducts(ctx context.Context) ([]*ProductView, error) {
	return s.SlotProducts(ctx, domain.FeaturedGroup)
}

func (s *Service) Home(ctx context.Context) ([]SlotView, error) {
	return s.Slots(ctx, domain.HomeGroup)
}

func (s *Service) HomeProducts(ctx context.Context) ([]*ProductView, error) {
	return s.SlotProducts(ctx, domain.HomeGroup)
}

// Hero returns the hero assignment with the full product when it is active
func (s *Service) Hero(ctx context.Context) (*HeroView, error) {
	ids, err := s.slotIDs(ctx, domain.HeroGroup)
	if err != nil {
		return nil, err
	}
	view := &HeroView{ProductID: ids[0]}
	if ids[0] == nil {
		return view, nil
	}
	products, err := s.activeByID(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	if p, ok := products[*ids[0]]; ok {
		view.Product = NewProductView(p)
	}
	return view, nil
}

// HeroProduct returns the active hero product or nil
func (s *Service) HeroProduct(ctx context.Context) (*ProductView, error) {
	hero, err := s.Hero(ctx)
	if err != nil {
		return nil, err
	}
	return hero.Product, nil
}

// NormalizeSlotIDs maps a positional list onto size slots. Non-string and blank entries leave a slot empty.
func NormalizeSlotIDs(raw []interface{}, size int) []*string {
	ids := make([]*string, size)
	for i := 0; i < size && i < len(raw); i++ {
		v, ok := raw[i].(string)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v != "" {
			ids[i] = &v
		}
	}
	return ids
}

// SetSlots replaces every assignment of g in one transaction
func (s *Service) SetSlots(ctx context.Context, g domain.SlotGroup, raw []interface{}) ([]SlotView, error) {
	ids := NormalizeSlotIDs(raw, g.Size)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == nil {
			continue
		}
		if seen[*id] {
			return nil, ErrDuplicateProducts
		}
		seen[*id] = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := s.activeByID(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i, id := range ids {
			if id == nil {
				continue
			}
			if _, ok := products[*id]; !ok {
				return &InvalidProductError{Slot: i + 1, ProductID: *id}
			}
		}

		now := time.Now()
		rows := make([]domain.SlotAssignment, 0, g.Size)
		for i, id := range ids {
			rows = append(rows, domain.SlotAssignment{Slot: i + 1, ProductID: id, UpdatedAt: now})
		}
		return tx.Table(g.Table).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_id", "updated_at"}),
		}).Create(&rows).Error
	})
	var invalid *InvalidProductError
	if errors.As(err, &invalid) {
		return nil, invalid
	}
	if err != nil {
		return nil, errors.Wrapf(err, "save %s slots", g.Name)
	}

	s.changed(ctx)
	s.publish(TopicSlotsChanged, g.Name)
	zap.L().Info("slots updated", zap.String("group", g.Name), zap.String("namespace", "catalog"))
	return s.loadSlots(ctx, g)
}

func (s *Service) SetFeatured(ctx context.Context, raw []interface{}) ([]SlotView, error) {
	return s.SetSlots(ctx, domain.FeaturedGroup, raw)
}

func (s *Service) SetHome(ctx context.Context, raw []interface{}) ([]SlotView, error) {
	return s.SetSlots(ctx, domain.HomeGroup, raw)
}

// SetHero assigns the hero product; a blank id clears it
func (s *Service) SetHero(ctx context.Context, productID string) (*HeroView, error) {
	if _, err := s.SetSlots(ctx, domain.HeroGroup, []interface{}{productID}); err != nil {
		return nil, err
	}
	return s.Hero(ctx)
}
