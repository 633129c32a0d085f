package catalog

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not_found")
	ErrMissingFields     = errors.New("missing_fields")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrProductExists     = errors.New("product_exists")
	ErrDuplicateProducts = errors.New("duplicate_products")
)

// InvalidProductError reports a slot that references a missing or inactive product
type InvalidProductError struct {
	Slot      int
	ProductID string
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid_product: slot %d references %q", e.Slot, e.ProductID)
}
