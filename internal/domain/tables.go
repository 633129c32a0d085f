package domain

var Tables = []interface{}{
	// Catalog
	&Product{},
	// Homepage slots
	&HeroSlot{},
	&FeaturedSlot{},
	&HomeSlot{},
}
