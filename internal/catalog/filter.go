package catalog

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/pkg/common"
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
)

// Filter narrows a product listing
type Filter struct {
	Query           string
	Category        string
	Brand           string
	BlackFriday     *bool
	IncludeInactive bool
	Sort            string
}

// ParseFilter builds a filter from query parameters. Inactive products are only
// listed for admin callers. Among flag aliases the first one present wins, even
// when its value is empty or unrecognised.
func ParseFilter(q url.Values, admin bool) Filter {
	f := Filter{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Brand:    strings.TrimSpace(q.Get("brand")),
		Sort:     strings.ToLower(strings.TrimSpace(q.Get("sort"))),
	}
	if raw, found := firstParam(q, "black", "blackFriday", "isBlack", "isBlackFriday"); found {
		if b, ok := common.ParseFlag(raw); ok {
			f.BlackFriday = &b
		}
	}
	if admin {
		if raw, found := firstParam(q, "includeInactive", "includeOffline"); found {
			b, ok := common.ParseFlag(raw)
			f.IncludeInactive = ok && b
		}
	}
	return f
}

func firstParam(q url.Values, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := q[k]; ok {
			if len(v) == 0 {
				return "", true
			}
			return v[0], true
		}
	}
	return "", false
}

func (f Filter) cacheKey() string {
	black := "-"
	if f.BlackFriday != nil {
		black = fmt.Sprint(*f.BlackFriday)
	}
	return fmt.Sprintf("products:q=%s:c=%s:b=%s:bf=%s:all=%t:s=%s",
		common.FoldText(f.Query), common.Slugify(f.Category), strings.ToLower(f.Brand), black, f.IncludeInactive, f.Sort)
}

func (f Filter) match(p *domain.Product) bool {
	if f.Query != "" && !common.ContainsFolded(f.Query, p.Name, p.Subtitle, p.Tags, p.Category) {
		return false
	}
	if f.Category != "" && common.Slugify(p.Category) != common.Slugify(f.Category) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(strings.TrimSpace(p.Brand), f.Brand) {
		return false
	}
	if f.BlackFriday != nil && p.IsBlackFriday != *f.BlackFriday {
		return false
	}
	return true
}

// apply filters rows (already ordered newest first) and sorts them
func (f Filter) apply(rows []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(rows))
	for i := range rows {
		if f.match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	switch f.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortNameAsc:
		sort.SliceStable(out, func(i, j int) bool { return common.FoldText(out[i].Name) < common.FoldText(out[j].Name) })
	case SortNameDesc:
		sort.SliceStable(out, func(i, j int) bool { return common.FoldText(out[i].Name) > common.FoldText(out[j].Name) })
	}
	return out
}
