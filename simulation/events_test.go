package simulation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	events := c.List()
	require.Len(t, events, 9)
	assert.Equal(t, "competitor_offline", events[0].ID)

	e, err := c.Get("stock_shortage")
	require.NoError(t, err)
	require.NotNil(t, e.Effects.StockReduction)
	assert.Equal(t, 0.8, *e.Effects.StockReduction)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
- id: flash_sale
  name: 限时秒杀
  description: 整点秒杀开始
  type: positive
  effects:
    viewers_change: [500, 1500]
    conversion_boost: 0.04
    duration: 120
- id: outage
  name: 断流
  type: negative
  effects:
    viewers_change: [-3000, -1000]
`)

	c, err := ParseCatalog(data)
	require.NoError(t, err)
	require.Len(t, c.List(), 2)

	e, err := c.Get("flash_sale")
	require.NoError(t, err)
	assert.Equal(t, [2]int{500, 1500}, *e.Effects.ViewersChange)
	assert.Equal(t, 0.04, *e.Effects.ConversionBoost)
	assert.Nil(t, e.Effects.StockReduction)
	assert.Equal(t, 120, e.Effects.Duration)
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"malformed":       "- id: [",
		"missing id":      "- type: positive\n  effects: {conversion_boost: 0.1}",
		"unknown type":    "- id: a\n  type: neutral\n  effects: {conversion_boost: 0.1}",
		"no effects":      "- id: a\n  type: positive\n  effects: {duration: 10}",
		"reversed range":  "- id: a\n  type: positive\n  effects: {viewers_change: [10, 1]}",
		"reduction > 1":   "- id: a\n  type: negative\n  effects: {stock_reduction: 1.5}",
		"zero multiplier": "- id: a\n  type: positive\n  effects: {product_sales_multiplier: 0}",
		"negative boost":  "- id: a\n  type: positive\n  effects: {conversion_boost: -0.1}",
		"duplicate id": "- id: a\n  type: positive\n  effects: {conversion_boost: 0.1}\n" +
			"- id: a\n  type: positive\n  effects: {conversion_boost: 0.2}",
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidEffectData)
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n  type: positive\n  effects: {conversion_boost: 0.1}\n"), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, c.List(), 1)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
