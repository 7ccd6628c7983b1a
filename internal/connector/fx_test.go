package connector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRegistryFromConfig(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(catalog, []byte(`[{"name":"Milk","price":"1.29"}]`), 0o600))

	prefs := config.NewStaticPreferences(config.Preferences{
		Connectors: []config.ConnectorConfig{
			{Name: "store-a", Type: "static", CatalogFile: catalog},
			{Name: "store-b", Type: "httpfeed", BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 2},
			{Name: "store-c", Type: "static"},
		},
	})

	reg, err := NewRegistryFromConfig(Params{
		Config:      config.Config{ConnectorTimeout: 5 * time.Second},
		Preferences: prefs,
		Log:         zap.NewNop(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"store-a", "store-b", "store-c"}, reg.Names())
	assert.Equal(t, 5*time.Second, reg.Timeout("store-a"))
	assert.Equal(t, 2*time.Second, reg.Timeout("store-b"))
}

func TestNewRegistryFromConfig_BadCatalog(t *testing.T) {
	prefs := config.NewStaticPreferences(config.Preferences{
		Connectors: []config.ConnectorConfig{
			{Name: "store-a", Type: "static", CatalogFile: filepath.Join(t.TempDir(), "missing.json")},
		},
	})
	_, err := NewRegistryFromConfig(Params{Preferences: prefs, Log: zap.NewNop()})
	assert.Error(t, err)
}
