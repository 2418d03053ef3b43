package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// validSyncModes lists the allowed values for the synchronous pragma.
var validSyncModes = map[string]bool{
	"OFF":    true,
	"NORMAL": true,
	"FULL":   true,
	"EXTRA":  true,
}

// BuildDSN appends the journal and synchronous pragmas to baseDSN.
func BuildDSN(baseDSN string, enableWAL bool, syncPragma string) (string, error) {
	params := url.Values{}

	if enableWAL {
		params.Add("_journal_mode", "WAL")
	}

	if syncPragma != "" {
		ucSyncPragma := strings.ToUpper(syncPragma)
		if !validSyncModes[ucSyncPragma] {
			return "", fmt.Errorf("invalid sync pragma value: %s. Must be one of OFF, NORMAL, FULL, EXTRA", syncPragma)
		}
		params.Add("_synchronous", ucSyncPragma)
	}

	if len(params) == 0 {
		return baseDSN, nil
	}
	if strings.Contains(baseDSN, "?") {
		return baseDSN + "&" + params.Encode(), nil
	}
	return baseDSN + "?" + params.Encode(), nil
}

// OpenDBConnection opens and pings the SQLite database at baseDSN.
// enableWAL switches journal_mode to WAL; syncPragma is one of OFF, NORMAL, FULL, EXTRA.
func OpenDBConnection(baseDSN string, enableWAL bool, syncPragma string) (*sql.DB, error) {
	dsn, err := BuildDSN(baseDSN, enableWAL, syncPragma)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with DSN '%s': %w", dsn, err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database with DSN '%s': %w", dsn, err)
	}

	// An in-memory database exists per connection, so keep exactly one.
	if strings.HasPrefix(baseDSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
