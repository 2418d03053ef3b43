package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// TargetSchemaVersion is the highest diarydb schema version this build supports.
	TargetSchemaVersion int64 = 1
	// DiaryDBComponent names the diary component in foodtracker_versions.
	DiaryDBComponent = "diarydb"
)

// GetComponentSchemaVersion retrieves the schema version for a given component.
// Returns 0 if the component is not recorded or the versions table does not exist yet.
func GetComponentSchemaVersion(db *sql.DB, componentName string) (int64, error) {
	var version int64
	err := db.QueryRow(`SELECT version FROM foodtracker_versions WHERE component = ?;`, componentName).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		if strings.Contains(err.Error(), "no such table") && strings.Contains(err.Error(), "foodtracker_versions") {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan version for component '%s': %w", componentName, err)
	}
	return version, nil
}

// InitializeSchema creates the diarydb tables and records schemaVersionToSet.
func InitializeSchema(db *sql.DB, schemaVersionToSet int64) error {
	if _, err := db.Exec(SchemaV1); err != nil {
		return fmt.Errorf("failed to execute schema v1 SQL: %w", err)
	}

	insertVersionSQL := `
INSERT INTO foodtracker_versions (component, version) VALUES (?, ?)
ON CONFLICT(component) DO UPDATE SET version = excluded.version, created_at = unixepoch();`

	if _, err := db.Exec(insertVersionSQL, DiaryDBComponent, schemaVersionToSet); err != nil {
		return fmt.Errorf("failed to insert/update version for component %s to %d: %w", DiaryDBComponent, schemaVersionToSet, err)
	}
	return nil
}

// UpgradeDB brings the diarydb component of db to appTargetSchemaVersion.
// dbIdentifier only appears in log lines and errors.
func UpgradeDB(db *sql.DB, dbIdentifier string, appTargetSchemaVersion int64, log *zap.SugaredLogger) error {
	currentDBVersion, err := GetComponentSchemaVersion(db, DiaryDBComponent)
	if err != nil {
		return err
	}

	switch {
	case currentDBVersion == 0:
		log.Infow("initializing diary database", "db", dbIdentifier, "component", DiaryDBComponent, "version", appTargetSchemaVersion)
		if err := InitializeSchema(db, appTargetSchemaVersion); err != nil {
			return fmt.Errorf("failed to initialize component %s in database '%s': %w", DiaryDBComponent, dbIdentifier, err)
		}
		return nil
	case currentDBVersion == appTargetSchemaVersion:
		log.Debugw("diary database up to date", "db", dbIdentifier, "version", currentDBVersion)
		return nil
	case currentDBVersion < appTargetSchemaVersion:
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is older than application's target schema version %d. Automatic migration from this older version is not yet supported", DiaryDBComponent, dbIdentifier, currentDBVersion, appTargetSchemaVersion)
	default:
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is newer than application's target schema version %d. Please upgrade the application", DiaryDBComponent, dbIdentifier, currentDBVersion, appTargetSchemaVersion)
	}
}
