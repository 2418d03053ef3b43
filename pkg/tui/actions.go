package tui

import (
	"context"
	"database/sql"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
	"github.com/unowned-ai/foodtracker/pkg/scan"
)

// scanResultMsg carries the outcome of one scan session lookup.
type scanResultMsg struct {
	sessionID string
	product   openfoodfacts.Product
	err       error
}

type searchResultMsg struct {
	query   string
	results openfoodfacts.SearchResults
	err     error
}

type tickMsg time.Time

// Feed a detection into the scan session. The session issues the lookup.
func detectBarcode(session *scan.Session, d scan.Detection) tea.Cmd {
	return func() tea.Msg {
		product, err := session.Detect(context.Background(), d)
		return scanResultMsg{sessionID: session.ID(), product: product, err: err}
	}
}

// Search products by name and return tea data
func searchProducts(lookup ProductLookup, query string, pageSize int) tea.Cmd {
	return func() tea.Msg {
		res, err := lookup.LookupByName(context.Background(), query, openfoodfacts.SearchOptions{PageSize: pageSize})
		return searchResultMsg{query: query, results: res, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(marqueeTickDuration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Get database name and file path
func getDbPragmaList(db *sql.DB) (string, string) {
	var name, file string
	err := db.QueryRow(`PRAGMA database_list`).Scan(new(int), &name, &file)
	if err != nil {
		return name, file
	}
	return name, file
}
