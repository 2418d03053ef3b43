// Package openfoodfacts looks products up in the Open Food Facts database.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL           = "https://world.openfoodfacts.net"
	DefaultSearchALiciousURL = "https://search.openfoodfacts.org/search"
	DefaultAppName           = "foodTracker"

	// statusFound is the barcode endpoint's status flag for a known product.
	statusFound = 1
)

// Client issues single, uncached, unretried requests against Open Food Facts.
type Client struct {
	baseURL           string
	searchALiciousURL string
	userAgent         string
	httpClient        *http.Client
	log               *zap.SugaredLogger
	searchChain       []searchEndpoint
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithSearchALiciousURL(u string) Option {
	return func(c *Client) { c.searchALiciousURL = u }
}

// WithHTTPClient replaces the default client. The default has no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithUserAgent sets the "<app>/<version> (<contact>)" identification header
// Open Food Facts asks API consumers to send.
func WithUserAgent(app, version, contact string) Option {
	return func(c *Client) { c.userAgent = UserAgent(app, version, contact) }
}

func UserAgent(app, version, contact string) string {
	ua := app + "/" + version
	if contact != "" {
		ua += " (" + contact + ")"
	}
	return ua
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:           DefaultBaseURL,
		searchALiciousURL: DefaultSearchALiciousURL,
		userAgent:         UserAgent(DefaultAppName, "dev", ""),
		httpClient:        &http.Client{},
		log:               zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.searchChain = []searchEndpoint{
		v2SearchEndpoint{baseURL: c.baseURL},
		searchALiciousEndpoint{endpoint: c.searchALiciousURL},
		v1SearchEndpoint{baseURL: c.baseURL},
	}
	return c
}

type barcodeResponse struct {
	Status  flexFloat       `json:"status"`
	Product json.RawMessage `json:"product"`
}

// LookupByBarcode fetches one product. It returns ErrNotFound when the
// database reports status 0, a *NetworkError for transport failures and
// non-2xx statuses, and ErrMalformedResponse for undecodable bodies.
func (c *Client) LookupByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrEmptyBarcode
	}

	u := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp barcodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !resp.Status.Valid {
		return nil, fmt.Errorf("%w: missing status flag", ErrMalformedResponse)
	}
	if int(resp.Status.Value) != statusFound {
		c.log.Debugw("barcode not found", "barcode", barcode)
		return nil, ErrNotFound
	}
	if len(resp.Product) == 0 || string(resp.Product) == "null" {
		return nil, fmt.Errorf("%w: status found without product", ErrMalformedResponse)
	}

	return DecodeProduct(resp.Product)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", u, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: u, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return body, nil
}
