package catalog

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSKU    = errors.New("product with this sku already exists")
	ErrDuplicateSlug   = errors.New("another product already uses this name's slug")
	ErrMissingName     = errors.New("product needs a name in the default locale")
)

type Translation struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID           string                 `json:"id"`
	SKU          string                 `json:"sku"`
	Slug         string                 `json:"slug"`
	PriceCents   int64                  `json:"price_cents"`
	Currency     string                 `json:"currency"`
	Translations map[string]Translation `json:"translations"`
	Active       bool                   `json:"active"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// LocalizedProduct is the storefront view of a product in one locale.
type LocalizedProduct struct {
	ID          string `json:"id"`
	SKU         string `json:"sku"`
	Slug        string `json:"slug"`
	Locale      string `json:"locale"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Available   *int   `json:"available,omitempty"`
}

// Localize picks the translation for locale, then fallback, then the first
// locale in sorted order so the result is stable.
func Localize(p Product, locale, fallback string) LocalizedProduct {
	out := LocalizedProduct{
		ID:         p.ID,
		SKU:        p.SKU,
		Slug:       p.Slug,
		PriceCents: p.PriceCents,
		Currency:   p.Currency,
	}
	for _, l := range []string{locale, fallback} {
		if tr, ok := p.Translations[l]; ok && tr.Name != "" {
			out.Locale, out.Name, out.Description = l, tr.Name, tr.Description
			return out
		}
	}
	keys := make([]string, 0, len(p.Translations))
	for k := range p.Translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		tr := p.Translations[keys[0]]
		out.Locale, out.Name, out.Description = keys[0], tr.Name, tr.Description
		return out
	}
	out.Name = p.SKU
	return out
}

func LocalizeAll(ps []Product, locale, fallback string) []LocalizedProduct {
	out := make([]LocalizedProduct, 0, len(ps))
	for _, p := range ps {
		out = append(out, Localize(p, locale, fallback))
	}
	return out
}
