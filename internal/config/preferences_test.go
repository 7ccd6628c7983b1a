package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const samplePreferences = `preferences:
  priceAlerts:
    - name: "Organic Milk 1L"
      maxPrice: 1.2
    - name: "Rye Bread"
      maxPrice: 2.5
  favoriteStores: ["store-a", "store-b"]
  checkIntervalHours: 6
  notificationEnabled: false
  connectors:
    - name: store-a
      type: static
      catalogFile: ./catalog.json
    - name: store-b
      type: httpfeed
      baseUrl: http://localhost:9000
      timeoutSeconds: 3
`

func writePreferences(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preferences.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewPreferencesHolder_ReadsFile(t *testing.T) {
	path := writePreferences(t, samplePreferences)

	holder, err := NewPreferencesHolder(Config{PreferencesFile: path}, zap.NewNop())
	require.NoError(t, err)

	prefs := holder.Get()
	assert.Equal(t, []string{"store-a", "store-b"}, prefs.FavoriteStores)
	assert.Equal(t, 6, prefs.CheckIntervalHours)
	assert.Equal(t, 6*time.Hour, prefs.CheckInterval())
	assert.False(t, prefs.NotificationEnabled)
	require.Len(t, prefs.Connectors, 2)
	assert.Equal(t, "httpfeed", prefs.Connectors[1].Type)
	assert.Equal(t, "http://localhost:9000", prefs.Connectors[1].BaseURL)
	assert.Equal(t, 3, prefs.Connectors[1].TimeoutSeconds)

	thresholds := prefs.Thresholds()
	require.Len(t, thresholds, 2)
	assert.True(t, thresholds["Organic Milk 1L"].Equal(decimal.RequireFromString("1.2")))
	assert.True(t, thresholds["Rye Bread"].Equal(decimal.RequireFromString("2.5")))
}

func TestNewPreferencesHolder_RejectsInvalid(t *testing.T) {
	path := writePreferences(t, `preferences:
  priceAlerts:
    - name: "Milk"
      maxPrice: -1
`)

	_, err := NewPreferencesHolder(Config{PreferencesFile: path}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxPrice")
}

func TestValidatePreferences(t *testing.T) {
	cases := []struct {
		name  string
		prefs Preferences
		ok    bool
	}{
		{name: "defaults", prefs: DefaultPreferences(), ok: true},
		{name: "negative interval", prefs: Preferences{CheckIntervalHours: -1}},
		{name: "blank alert name", prefs: Preferences{PriceAlerts: []PriceAlert{{Name: " ", MaxPrice: 1}}}},
		{name: "unknown connector type", prefs: Preferences{Connectors: []ConnectorConfig{{Name: "a", Type: "ftp"}}}},
		{name: "httpfeed without url", prefs: Preferences{Connectors: []ConnectorConfig{{Name: "a", Type: "httpfeed"}}}},
		{name: "duplicate connector", prefs: Preferences{Connectors: []ConnectorConfig{
			{Name: "a", Type: "static"},
			{Name: "a", Type: "static"},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePreferences(tc.prefs)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPreferences_CheckIntervalDefaults(t *testing.T) {
	assert.Equal(t, 24*time.Hour, Preferences{}.CheckInterval())
	assert.Empty(t, Preferences{}.Thresholds())
}
