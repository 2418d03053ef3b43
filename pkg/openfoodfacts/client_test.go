package openfoodfacts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nutellaResponse = `{
	"code": "3017620422003",
	"status": 1,
	"status_verbose": "product found",
	"product": {
		"code": "3017620422003",
		"product_name": "Nutella",
		"brands": "Ferrero",
		"serving_quantity": 15,
		"serving_quantity_unit": "g",
		"nutriments": {"energy-kcal_serving": 530, "fat_serving": 4.6}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(
		WithBaseURL(srv.URL),
		WithSearchALiciousURL(srv.URL+"/search"),
		WithUserAgent("foodTracker", "0.0.1", "diary@example.com"),
	)
	return c, srv
}

func TestLookupByBarcode(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		var gotPath, gotUA string
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotUA = r.URL.Path, r.Header.Get("User-Agent")
			w.Write([]byte(nutellaResponse))
		})

		p, err := c.LookupByBarcode(ctx, "3017620422003")
		require.NoError(t, err)
		assert.Equal(t, "/api/v2/product/3017620422003.json", gotPath)
		assert.Equal(t, "foodTracker/0.0.1 (diary@example.com)", gotUA)
		assert.IsType(t, PerServingProduct{}, p)
		assert.Equal(t, "Nutella", p.Info().Name)
	})

	t.Run("StatusZeroIsNotFound", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":"000","status":0,"status_verbose":"product not found"}`))
		})
		_, err := c.LookupByBarcode(ctx, "000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("HTTPErrorIsNetworkError", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":0}`))
		})
		_, err := c.LookupByBarcode(ctx, "123")
		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
		assert.True(t, IsLookupFailure(err))
	})

	t.Run("TransportFailureIsNetworkError", func(t *testing.T) {
		c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()
		_, err := c.LookupByBarcode(ctx, "123")
		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Zero(t, netErr.StatusCode)
	})

	t.Run("Malformed", func(t *testing.T) {
		for name, body := range map[string]string{
			"NotJSON":          `<html>oops</html>`,
			"NoStatus":         `{"product": {}}`,
			"FoundNoProduct":   `{"status": 1}`,
			"FoundNullProduct": `{"status": 1, "product": null}`,
		} {
			t.Run(name, func(t *testing.T) {
				c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte(body))
				})
				_, err := c.LookupByBarcode(ctx, "123")
				assert.ErrorIs(t, err, ErrMalformedResponse)
			})
		}
	})

	t.Run("EmptyBarcodeMakesNoRequest", func(t *testing.T) {
		var calls int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		})
		_, err := c.LookupByBarcode(ctx, "  ")
		assert.ErrorIs(t, err, ErrEmptyBarcode)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})
}

func TestLookupByName(t *testing.T) {
	ctx := context.Background()

	t.Run("V2Success", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v2/search/", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "nutella", q.Get("search_terms"))
			assert.Equal(t, "2", q.Get("page"))
			assert.Equal(t, "5", q.Get("page_size"))
			assert.Contains(t, q.Get("fields"), "nutriments")
			w.Write([]byte(`{"count": 42, "page": 2, "page_size": 5, "products": [
				{"code": "1", "product_name": "Nutella", "nutriments": {"energy-kcal_100g": 539}},
				{"code": "2", "product_name": "Nutella B-ready"}
			]}`))
		})

		res, err := c.LookupByName(ctx, " nutella ", SearchOptions{Page: 2, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, "v2", res.Source)
		assert.Equal(t, 42, res.Count)
		assert.Equal(t, 2, res.Page)
		assert.Equal(t, 5, res.PageSize)
		require.Len(t, res.Products, 2)
		assert.IsType(t, Per100gProduct{}, res.Products[0])
		assert.IsType(t, UnrecognizedProduct{}, res.Products[1])
	})

	t.Run("FallsBackThroughChain", func(t *testing.T) {
		var paths []string
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			switch r.URL.Path {
			case "/api/v2/search/":
				w.WriteHeader(http.StatusServiceUnavailable)
			case "/search":
				assert.Equal(t, "apple", r.URL.Query().Get("q"))
				w.Write([]byte(`{"errors": [{"title": "bad sort", "description": "Invalid sort_by"}]}`))
			case "/cgi/search.pl":
				q := r.URL.Query()
				assert.Equal(t, "1", q.Get("json"))
				assert.Equal(t, "process", q.Get("action"))
				w.Write([]byte(`{"count": "1", "page": "1", "page_size": "10", "products": [{"product_name": "Apple"}]}`))
			}
		})

		res, err := c.LookupByName(ctx, "apple", SearchOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"/api/v2/search/", "/search", "/cgi/search.pl"}, paths)
		assert.Equal(t, "v1", res.Source)
		assert.Equal(t, 1, res.Count)
		assert.Equal(t, 10, res.PageSize)
		require.Len(t, res.Products, 1)
		assert.Equal(t, "Apple", res.Products[0].Info().Name)
	})

	t.Run("SearchALiciousHits", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v2/search/" {
				w.Write([]byte(""))
				return
			}
			w.Write([]byte(`{"hits": [{"code": "9", "product_name": "Pear", "brands": ["Orchard"]}], "count": 1, "page": 1, "page_size": 10}`))
		})

		res, err := c.LookupByName(ctx, "pear", SearchOptions{})
		require.NoError(t, err)
		assert.Equal(t, "search-a-licious", res.Source)
		require.Len(t, res.Products, 1)
		assert.Equal(t, "Orchard", res.Products[0].Info().Brands)
	})

	t.Run("AllEndpointsFail", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/cgi/search.pl" {
				w.Write([]byte(`{"errors": ["rate limited"]}`))
				return
			}
			w.Write([]byte(`{}`))
		})

		_, err := c.LookupByName(ctx, "anything", SearchOptions{})
		assert.ErrorIs(t, err, ErrSearchUnavailable)
		var searchErr *SearchError
		require.ErrorAs(t, err, &searchErr)
		assert.Equal(t, "v1", searchErr.Source)
		assert.Equal(t, []string{"rate limited"}, searchErr.Messages)
		assert.True(t, strings.Contains(err.Error(), "rate limited"))
	})

	t.Run("EmptyProductListIsSuccess", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"count": 0, "products": []}`))
		})
		res, err := c.LookupByName(ctx, "zzzz", SearchOptions{PageSize: 500})
		require.NoError(t, err)
		assert.Empty(t, res.Products)
		assert.Equal(t, MaxPageSize, res.PageSize)
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		c := NewClient()
		_, err := c.LookupByName(ctx, "", SearchOptions{})
		assert.True(t, errors.Is(err, ErrEmptyQuery))
	})
}
