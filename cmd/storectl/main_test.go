package main

import (
	"testing"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in, currency string
		want         int64
		wantErr      bool
	}{
		{"9990", "CLP", 9990, false},
		{" 19.90 ", "USD", 1990, false},
		{"19.9", "EUR", 1990, false},
		{"19.999", "USD", 0, true},
		{"10.5", "CLP", 0, true},
		{"-1", "USD", 0, true},
		{"abc", "USD", 0, true},
	}
	for _, tc := range tests {
		got, err := parsePrice(tc.in, tc.currency)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTranslations(t *testing.T) {
	got := translations(map[string]string{"ES": "Polera", "en": "Tee"}, map[string]string{"en": "Cotton"})
	assert.Equal(t, map[string]catalog.Translation{
		"es": {Name: "Polera"},
		"en": {Name: "Tee", Description: "Cotton"},
	}, got)
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"migrate"},
		{"b2b", "issue"}, {"b2b", "revoke"}, {"b2b", "list"},
		{"catalog", "add"}, {"catalog", "activate"}, {"catalog", "deactivate"},
		{"session", "create"}, {"session", "delete"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
