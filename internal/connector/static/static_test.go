package static

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []Item {
	return []Item{
		{Name: "Organic Milk 1L", Price: "1.29", URL: "https://a.example/milk"},
		{Name: "Rye Bread", Price: 2.5, URL: "https://a.example/bread", OriginalPrice: 3.0, DiscountPrice: 2.5},
		{Name: "Skimmed Milk 1L", Price: 0.99},
	}
}

func TestConnector_Search(t *testing.T) {
	c := New("store-a", catalog())
	ctx := context.Background()

	got, err := c.Search(ctx, "MILK")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Organic Milk 1L", got[0].Name)
	assert.Nil(t, got[0].Promotion)

	got, err = c.Search(ctx, "caviar")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConnector_CurrentPrice(t *testing.T) {
	c := New("store-a", catalog())

	price, ok, err := c.CurrentPrice(context.Background(), "https://a.example/bread")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.5, price)

	_, ok, err = c.CurrentPrice(context.Background(), "https://a.example/gone")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnector_CurrentPromotions(t *testing.T) {
	c := New("store-a", catalog())

	promos, err := c.CurrentPromotions(context.Background())
	require.NoError(t, err)
	require.Len(t, promos, 1)
	require.NotNil(t, promos[0].Promotion)
	assert.Equal(t, 3.0, promos[0].Promotion.OriginalPrice)
}

func TestConnector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New("store-a", catalog()).Search(ctx, "milk")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnector_Replace(t *testing.T) {
	c := New("store-a", catalog())
	c.Replace([]Item{{Name: "Tea", Price: 3}})

	got, err := c.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tea", got[0].Name)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[
		{"name": "Milk", "price": 1.29, "url": "https://a.example/milk"},
		{"name": "Bread", "price": "2,10"}
	]`), 0o600))

	c, err := Load("store-a", jsonPath)
	require.NoError(t, err)
	got, err := c.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, json.Number("1.29"), got[0].Price)

	tomlPath := filepath.Join(dir, "catalog.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[[items]]
name = "Coffee 500g"
price = 5.49
url = "https://b.example/coffee"
original_price = 6.99
discount_price = 5.49
`), 0o600))

	c, err = Load("store-b", tomlPath)
	require.NoError(t, err)
	promos, err := c.CurrentPromotions(context.Background())
	require.NoError(t, err)
	require.Len(t, promos, 1)
	assert.Equal(t, "Coffee 500g", promos[0].Name)
	assert.Equal(t, 5.49, promos[0].Price)

	_, err = Load("store-c", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
