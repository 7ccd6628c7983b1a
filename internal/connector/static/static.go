// Package static provides a connector backed by an in-memory catalog. It is
// used for local development fixtures and for exercising the aggregation
// pipeline without network access.
package static

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/smallbiznis/pricewatch/internal/connector/domain"
)

// Item is one catalog entry.
type Item struct {
	Name          string     `json:"name" toml:"name"`
	Price         any        `json:"price" toml:"price"`
	URL           string     `json:"url,omitempty" toml:"url"`
	OriginalPrice any        `json:"original_price,omitempty" toml:"original_price"`
	DiscountPrice any        `json:"discount_price,omitempty" toml:"discount_price"`
	ValidUntil    *time.Time `json:"valid_until,omitempty" toml:"valid_until"`
}

type tomlCatalog struct {
	Items []Item `toml:"items"`
}

type Connector struct {
	name string

	mu    sync.RWMutex
	items []Item
}

func New(name string, items []Item) *Connector {
	return &Connector{name: name, items: append([]Item(nil), items...)}
}

// Load reads a catalog from path: a JSON array of items, or a TOML file with
// an [[items]] table array when the extension is .toml.
func Load(name, path string) (*Connector, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var catalog tomlCatalog
		if _, err := toml.Decode(string(raw), &catalog); err != nil {
			return nil, fmt.Errorf("decode catalog %s: %w", path, err)
		}
		return New(name, catalog.Items), nil
	}

	var items []Item
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return New(name, items), nil
}

func (c *Connector) Name() string { return c.name }

// Replace swaps the catalog contents.
func (c *Connector) Replace(items []Item) {
	c.mu.Lock()
	c.items = append([]Item(nil), items...)
	c.mu.Unlock()
}

// Search matches query case-insensitively against item names.
func (c *Connector) Search(ctx context.Context, query string) ([]domain.RawObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.RawObservation, 0)
	for _, item := range c.items {
		if needle != "" && !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		out = append(out, toRaw(item))
	}
	return out, nil
}

func (c *Connector) CurrentPrice(ctx context.Context, productURL string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.URL != "" && item.URL == productURL {
			return item.Price, true, nil
		}
	}
	return nil, false, nil
}

func (c *Connector) CurrentPromotions(ctx context.Context) ([]domain.RawObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.RawObservation, 0)
	for _, item := range c.items {
		if item.DiscountPrice == nil {
			continue
		}
		out = append(out, toRaw(item))
	}
	return out, nil
}

func toRaw(item Item) domain.RawObservation {
	raw := domain.RawObservation{
		Name:  item.Name,
		Price: item.Price,
		URL:   item.URL,
	}
	if item.DiscountPrice != nil {
		raw.Promotion = &domain.RawPromotion{
			OriginalPrice: item.OriginalPrice,
			DiscountPrice: item.DiscountPrice,
			ValidUntil:    item.ValidUntil,
		}
	}
	return raw
}

var _ domain.Connector = (*Connector)(nil)
