package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TopicProductSaved   = "catalog:product:saved"
	TopicProductDeleted = "catalog:product:deleted"
	TopicSlotsChanged   = "catalog:slots:changed"
)

// Publisher fans out catalog changes; asaskevich/EventBus satisfies it
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Service owns products and homepage slots
type Service struct {
	db    *gorm.DB
	cache Cache
	bus   Publisher
}

func NewService(db *gorm.DB, cache Cache, bus Publisher) *Service {
	if cache == nil {
		cache = NoopCache()
	}
	return &Service{db: db, cache: cache, bus: bus}
}

func (s *Service) publish(topic string, args ...interface{}) {
	if s.bus != nil {
		s.bus.Publish(topic, args...)
	}
}

// changed drops cached reads after any write
func (s *Service) changed(ctx context.Context) {
	s.cache.Purge(ctx)
}

// List returns products matching f, newest first unless another order is requested
func (s *Service) List(ctx context.Context, f Filter) ([]*ProductView, error) {
	key := f.cacheKey()
	var cached []*ProductView
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	query := s.db.WithContext(ctx).Order("created_at DESC")
	if !f.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	var rows []domain.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	rows = f.apply(rows)
	views := make([]*ProductView, 0, len(rows))
	for i := range rows {
		views = append(views, NewProductView(&rows[i]))
	}
	s.cache.Set(ctx, key, views)
	return views, nil
}

// Find loads a stored product regardless of its state
func (s *Service) Find(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find product")
	}
	return &p, nil
}

// Get returns a product; inactive products are hidden unless includeInactive is set
func (s *Service) Get(ctx context.Context, id string, includeInactive bool) (*ProductView, error) {
	p, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !includeInactive {
		return nil, ErrNotFound
	}
	return NewProductView(p), nil
}

// Create stores a new product and returns its id
func (s *Service) Create(ctx context.Context, in ProductInput) (string, error) {
	name := in.text("name")
	category := in.text("category")
	brand := in.text("brand")
	if name == "" || category == "" || brand == "" || in["price"] == nil {
		return "", ErrMissingFields
	}
	price, err := in.cents("price")
	if err != nil {
		return "", err
	}
	oldPrice, err := in.optionalCents("oldPrice")
	if err != nil {
		return "", err
	}

	isActive := true
	if b, ok := common.FirstFlag(in, "isActive"); ok {
		isActive = b
	}
	isBlack := false
	if b, ok := common.FirstFlag(in, blackFridayKeys...); ok {
		isBlack = b
	}

	id := in.text("id")
	if id == "" {
		id = common.NewID()
	}
	now := time.Now()
	p := domain.Product{
		ID:            id,
		Name:          name,
		Subtitle:      in.text("subtitle"),
		Price:         price,
		OldPrice:      oldPrice,
		PriceTwo:      in.comboCents(),
		Category:      category,
		Brand:         brand,
		Tags:          in.tags(),
		Image:         in.text("image"),
		Images:        in.images(),
		Description:   in.text("description"),
		Specs:         in.specs(),
		IsActive:      isActive,
		IsBlackFriday: isBlack,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrProductExists
		}
		return tx.Create(&p).Error
	})
	if errors.Is(err, ErrProductExists) {
		return "", err
	}
	if err != nil {
		return "", errors.Wrap(err, "create product")
	}

	s.changed(ctx)
	s.publish(TopicProductSaved, p)
	zap.L().Info("product created", zap.String("id", id), zap.String("namespace", "catalog"))
	return id, nil
}

// Update applies a partial change. Absent or null fields keep their stored values.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) error {
	p, err := s.Find(ctx, id)
	if err != nil {
		return err
	}

	if v := in.text("name"); v != "" {
		p.Name = v
	}
	if v, ok := in.str("subtitle"); ok {
		p.Subtitle = strings.TrimSpace(v)
	}
	if _, ok := in["price"].(float64); ok {
		price, err := in.cents("price")
		if err != nil {
			return err
		}
		p.Price = price
	}
	if in.has("oldPrice") {
		oldPrice, err := in.optionalCents("oldPrice")
		if err != nil {
			return err
		}
		p.OldPrice = oldPrice
	}
	if in.hasCombo() {
		p.PriceTwo = in.comboCents()
	}
	if v := in.text("category"); v != "" {
		p.Category = v
	}
	if v, ok := in.str("brand"); ok {
		p.Brand = strings.TrimSpace(v)
	}
	if in.truthy("tags") {
		p.Tags = in.tags()
	}
	if v, ok := in.str("image"); ok {
		p.Image = strings.TrimSpace(v)
	}
	if in.truthy("images") {
		p.Images = in.images()
	}
	if v, ok := in.str("description"); ok {
		p.Description = v
	}
	if in.truthy("specs") {
		p.Specs = in.specs()
	}
	if b, present, ok := in.flag("isActive"); present && ok {
		p.IsActive = b
	}
	if b, present, ok := in.flag(blackFridayKeys...); present && ok {
		p.IsBlackFriday = b
	}
	p.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return errors.Wrap(err, "update product")
	}

	s.changed(ctx)
	s.publish(TopicProductSaved, *p)
	return nil
}

// Delete removes a product and empties every slot that referenced it.
// Deleting an unknown id is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, g := range domain.SlotGroups {
			if err := tx.Table(g.Table).Where("product_id = ?", id).
				Updates(map[string]interface{}{"product_id": nil, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&domain.Product{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return errors.Wrap(err, "delete product")
	}

	s.changed(ctx)
	s.publish(TopicProductDeleted, id)
	if deleted > 0 {
		zap.L().Info("product deleted", zap.String("id", id), zap.String("namespace", "catalog"))
	}
	return nil
}

// All returns every stored product, oldest first
func (s *Service) All(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	return rows, nil
}

// Import upserts products by id and returns how many rows were written
func (s *Service) Import(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	now := time.Now()
	for i := range products {
		if strings.TrimSpace(products[i].ID) == "" {
			products[i].ID = common.NewID()
		}
		if products[i].CreatedAt.IsZero() {
			products[i].CreatedAt = now
		}
		products[i].UpdatedAt = now
		if products[i].Images == "" {
			products[i].Images = "[]"
		}
		if products[i].Specs == "" {
			products[i].Specs = "{}"
		}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(products, 100).Error
	if err != nil {
		return 0, errors.Wrap(err, "import products")
	}

	s.changed(ctx)
	for _, p := range products {
		s.publish(TopicProductSaved, p)
	}
	return len(products), nil
}
