package openfoodfacts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the database answered but has no product for the barcode.
	ErrNotFound = errors.New("product not found")
	// ErrMalformedResponse means the body could not be decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed response from open food facts")
	// ErrSearchUnavailable wraps the last failure after every search endpoint failed.
	ErrSearchUnavailable = errors.New("all product search endpoints failed")
	ErrEmptyBarcode      = errors.New("barcode is required")
	ErrEmptyQuery        = errors.New("search query is required")
)

// NetworkError is a transport failure or a non-2xx HTTP status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SearchError is a search response whose body carried an errors list.
type SearchError struct {
	Source   string
	Messages []string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s search returned errors: %s", e.Source, strings.Join(e.Messages, ", "))
}
