package openfoodfacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// searchFields asks for just what normalization and display need.
	searchFields = "code,product_name,generic_name,brands,quantity,nutriments,serving_quantity,serving_quantity_unit,serving_size,nutrition_data_prepared_per"
)

type SearchOptions struct {
	Page     int
	PageSize int
}

func (o SearchOptions) normalized() SearchOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

// SearchResults is one page of candidate products from a single endpoint.
type SearchResults struct {
	Source   string    `json:"source"`
	Count    int       `json:"count"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Products []Product `json:"products"`
}

type searchEndpoint interface {
	name() string
	requestURL(query string, opts SearchOptions) string
}

type v2SearchEndpoint struct{ baseURL string }

func (v2SearchEndpoint) name() string { return "v2" }

func (e v2SearchEndpoint) requestURL(query string, opts SearchOptions) string {
	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("fields", searchFields)
	params.Set("page_size", strconv.Itoa(opts.PageSize))
	params.Set("page", strconv.Itoa(opts.Page))
	return e.baseURL + "/api/v2/search/?" + params.Encode()
}

type searchALiciousEndpoint struct{ endpoint string }

func (searchALiciousEndpoint) name() string { return "search-a-licious" }

func (e searchALiciousEndpoint) requestURL(query string, opts SearchOptions) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", searchFields)
	params.Set("page_size", strconv.Itoa(opts.PageSize))
	params.Set("page", strconv.Itoa(opts.Page))
	return e.endpoint + "?" + params.Encode()
}

type v1SearchEndpoint struct{ baseURL string }

func (v1SearchEndpoint) name() string { return "v1" }

func (e v1SearchEndpoint) requestURL(query string, opts SearchOptions) string {
	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("fields", searchFields)
	params.Set("page_size", strconv.Itoa(opts.PageSize))
	params.Set("page", strconv.Itoa(opts.Page))
	return e.baseURL + "/cgi/search.pl?" + params.Encode()
}

// searchResponse covers the v1/v2 "products" shape and the search-a-licious "hits" shape.
type searchResponse struct {
	Count    flexFloat          `json:"count"`
	Page     flexFloat          `json:"page"`
	PageSize flexFloat          `json:"page_size"`
	Products *[]json.RawMessage `json:"products"`
	Hits     *[]json.RawMessage `json:"hits"`
	Errors   []json.RawMessage  `json:"errors"`
}

// LookupByName searches the endpoints in order (v2, search-a-licious, v1) and
// returns the first successful page. Empty, non-JSON and error-annotated bodies
// count as failures and move on to the next endpoint.
func (c *Client) LookupByName(ctx context.Context, query string, opts SearchOptions) (SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResults{}, ErrEmptyQuery
	}
	opts = opts.normalized()

	var lastErr error
	for _, ep := range c.searchChain {
		res, err := c.search(ctx, ep, query, opts)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		c.log.Warnw("product search endpoint failed, trying next", "endpoint", ep.name(), "query", query, "error", err)
	}
	return SearchResults{}, fmt.Errorf("%w: %w", ErrSearchUnavailable, lastErr)
}

func (c *Client) search(ctx context.Context, ep searchEndpoint, query string, opts SearchOptions) (SearchResults, error) {
	body, err := c.get(ctx, ep.requestURL(query, opts))
	if err != nil {
		return SearchResults{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return SearchResults{}, fmt.Errorf("%w: empty %s search body", ErrMalformedResponse, ep.name())
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SearchResults{}, fmt.Errorf("%w: %s search: %v", ErrMalformedResponse, ep.name(), err)
	}
	if len(resp.Errors) > 0 {
		return SearchResults{}, &SearchError{Source: ep.name(), Messages: errorMessages(resp.Errors)}
	}

	items := resp.Products
	if items == nil {
		items = resp.Hits
	}
	if items == nil {
		return SearchResults{}, fmt.Errorf("%w: %s search body has no product list", ErrMalformedResponse, ep.name())
	}

	res := SearchResults{
		Source:   ep.name(),
		Count:    int(resp.Count.Value),
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Products: make([]Product, 0, len(*items)),
	}
	if resp.Page.Valid {
		res.Page = int(resp.Page.Value)
	}
	if resp.PageSize.Valid {
		res.PageSize = int(resp.PageSize.Value)
	}

	for i, raw := range *items {
		p, err := DecodeProduct(raw)
		if err != nil {
			c.log.Warnw("skipping undecodable search result", "endpoint", ep.name(), "index", i, "error", err)
			continue
		}
		res.Products = append(res.Products, p)
	}
	if !resp.Count.Valid {
		res.Count = len(res.Products)
	}
	return res, nil
}

// errorMessages reads entries that are either plain strings or objects with
// a description or title.
func errorMessages(raw []json.RawMessage) []string {
	msgs := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			msgs = append(msgs, s)
			continue
		}
		var obj struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(r, &obj); err == nil {
			switch {
			case obj.Description != "":
				msgs = append(msgs, obj.Description)
			case obj.Title != "":
				msgs = append(msgs, obj.Title)
			default:
				msgs = append(msgs, string(r))
			}
			continue
		}
		msgs = append(msgs, string(r))
	}
	return msgs
}

// IsLookupFailure reports whether err is one of the lookup failure kinds
// a caller presents as "product unavailable".
func IsLookupFailure(err error) bool {
	var netErr *NetworkError
	var searchErr *SearchError
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedResponse) ||
		errors.As(err, &netErr) || errors.As(err, &searchErr)
}
