package catalog

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestLocalize(t *testing.T) {
	p := Product{
		ID:         "p1",
		SKU:        "TEE-01",
		Slug:       "polera-basica",
		PriceCents: 9990,
		Currency:   "CLP",
		Translations: map[string]Translation{
			"es": {Name: "Polera básica", Description: "Algodón"},
			"en": {Name: "Basic tee"},
		},
	}

	t.Run("requested locale", func(t *testing.T) {
		lp := Localize(p, "en", "es")
		assert.Equal(t, "en", lp.Locale)
		assert.Equal(t, "Basic tee", lp.Name)
		assert.Equal(t, int64(9990), lp.PriceCents)
	})

	t.Run("falls back to default locale", func(t *testing.T) {
		lp := Localize(p, "pt", "es")
		assert.Equal(t, "es", lp.Locale)
		assert.Equal(t, "Polera básica", lp.Name)
		assert.Equal(t, "Algodón", lp.Description)
	})

	t.Run("falls back to first sorted locale", func(t *testing.T) {
		lp := Localize(p, "pt", "fr")
		assert.Equal(t, "en", lp.Locale)
	})

	t.Run("empty name is skipped", func(t *testing.T) {
		q := p
		q.Translations = map[string]Translation{"en": {Name: ""}, "es": {Name: "Polera"}}
		assert.Equal(t, "Polera", Localize(q, "en", "es").Name)
	})

	t.Run("no translations uses sku", func(t *testing.T) {
		q := p
		q.Translations = nil
		lp := Localize(q, "es", "es")
		assert.Equal(t, "TEE-01", lp.Name)
		assert.Empty(t, lp.Locale)
	})
}

func TestLocalizeAll(t *testing.T) {
	ps := []Product{
		{SKU: "A", Translations: map[string]Translation{"es": {Name: "Uno"}}},
		{SKU: "B", Translations: map[string]Translation{"es": {Name: "Dos"}}},
	}
	out := LocalizeAll(ps, "es", "es")
	assert.Len(t, out, 2)
	assert.Equal(t, "Dos", out[1].Name)
}

func TestDuplicateErr(t *testing.T) {
	slugErr := duplicateErr(&pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"}, "TEE-02", "polera-roja")
	assert.ErrorIs(t, slugErr, ErrDuplicateSlug)
	assert.NotErrorIs(t, slugErr, ErrDuplicateSKU)

	assert.ErrorIs(t, duplicateErr(&pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"}, "TEE-02", "x"), ErrDuplicateSKU)

	boom := errors.New("boom")
	assert.Equal(t, boom, duplicateErr(boom, "TEE-02", "x"))
}
