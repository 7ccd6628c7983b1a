// Package httpfeed implements a connector for sources that publish a JSON
// price feed over HTTP:
//
//	GET {base}/search?q=<query>   -> {"items": [item, ...]}
//	GET {base}/price?url=<url>    -> {"price": <number|string>, "available": bool}
//	GET {base}/promotions         -> {"items": [item, ...]}
//
// where item is {"name", "price", "url", "promotion": {"original_price",
// "discount_price", "valid_until"}}.
package httpfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/pricewatch/internal/connector/domain"
)

const maxBodyBytes = 8 << 20

// Config describes one feed source.
type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

// Client is the feed connector.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// New creates a feed connector. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	name := strings.TrimSpace(cfg.Name)
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if name == "" || base == "" {
		return nil, domain.ErrInvalidConnector
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: base url: %v", domain.ErrInvalidConnector, err)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{name: name, baseURL: base, httpClient: httpClient}, nil
}

func (c *Client) Name() string { return c.name }

type feedPromotion struct {
	OriginalPrice json.Number `json:"original_price"`
	DiscountPrice json.Number `json:"discount_price"`
	ValidUntil    *time.Time  `json:"valid_until"`
}

type feedItem struct {
	Name      string         `json:"name"`
	Price     any            `json:"price"`
	URL       string         `json:"url"`
	Promotion *feedPromotion `json:"promotion"`
}

type itemsResponse struct {
	Items []feedItem `json:"items"`
}

type priceResponse struct {
	Price     any   `json:"price"`
	Available *bool `json:"available"`
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.RawObservation, error) {
	params := url.Values{}
	params.Set("q", query)

	var resp itemsResponse
	if _, err := c.get(ctx, "/search?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("httpfeed %s: search: %w", c.name, err)
	}
	return toRaw(resp.Items), nil
}

func (c *Client) CurrentPrice(ctx context.Context, productURL string) (any, bool, error) {
	params := url.Values{}
	params.Set("url", productURL)

	var resp priceResponse
	status, err := c.get(ctx, "/price?"+params.Encode(), &resp)
	if status == http.StatusNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("httpfeed %s: price: %w", c.name, err)
	}
	if resp.Available != nil && !*resp.Available {
		return nil, false, nil
	}
	if resp.Price == nil {
		return nil, false, nil
	}
	return resp.Price, true, nil
}

func (c *Client) CurrentPromotions(ctx context.Context) ([]domain.RawObservation, error) {
	var resp itemsResponse
	if _, err := c.get(ctx, "/promotions", &resp); err != nil {
		return nil, fmt.Errorf("httpfeed %s: promotions: %w", c.name, err)
	}
	return toRaw(resp.Items), nil
}

func (c *Client) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode: %w", err)
	}
	return resp.StatusCode, nil
}

func toRaw(items []feedItem) []domain.RawObservation {
	out := make([]domain.RawObservation, 0, len(items))
	for _, item := range items {
		raw := domain.RawObservation{
			Name:  item.Name,
			Price: item.Price,
			URL:   item.URL,
		}
		if item.Promotion != nil {
			raw.Promotion = &domain.RawPromotion{
				OriginalPrice: numberOrNil(item.Promotion.OriginalPrice),
				DiscountPrice: numberOrNil(item.Promotion.DiscountPrice),
				ValidUntil:    item.Promotion.ValidUntil,
			}
		}
		out = append(out, raw)
	}
	return out
}

func numberOrNil(n json.Number) any {
	if n == "" {
		return nil
	}
	return n
}

var _ domain.Connector = (*Client)(nil)
