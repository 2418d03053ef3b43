package mcp

import (
	"database/sql"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	foodtracker "github.com/unowned-ai/foodtracker/pkg"
	"github.com/unowned-ai/foodtracker/pkg/config"
	pkgdb "github.com/unowned-ai/foodtracker/pkg/db"
	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/kv"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
	"github.com/unowned-ai/foodtracker/pkg/utils"
)

type FoodTrackerMCPServer struct {
	mcpServer *server.MCPServer
	db        *sql.DB
	tools     *Tools
	log       *zap.SugaredLogger
	DbPath    string
}

// NewFoodTrackerMCPServer opens (and migrates) the diary database described
// by cfg and registers every tool on a fresh MCP server.
func NewFoodTrackerMCPServer(cfg config.Config, log *zap.SugaredLogger) (*FoodTrackerMCPServer, error) {
	dbPath, err := utils.ResolveAndEnsureDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		"FoodTracker MCP Server",
		foodtracker.Version,
		server.WithLogging(),
		server.WithRecovery(),
	)

	dbConn, err := pkgdb.OpenDBConnection(dbPath, cfg.WAL, cfg.Sync)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := pkgdb.UpgradeDB(dbConn, dbPath, pkgdb.TargetSchemaVersion, log); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to initialize/upgrade database schema for '%s': %w", dbPath, err)
	}

	store := diary.NewStore(kv.NewSQLiteStore(dbConn), log)
	client := openfoodfacts.NewClient(cfg.ClientOptions(foodtracker.Version, log)...)
	tools := NewTools(store, client, log, WithPageSize(cfg.PageSize))
	tools.Register(s)

	return &FoodTrackerMCPServer{
		mcpServer: s,
		db:        dbConn,
		tools:     tools,
		log:       log,
		DbPath:    dbPath,
	}, nil
}

// Start runs the stdio event loop until stdin closes.
func (s *FoodTrackerMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *FoodTrackerMCPServer) DB() *sql.DB {
	return s.db
}

// MCPRawServer exposes the raw mcp-go server.
func (s *FoodTrackerMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

// Close checkpoints the WAL and closes the database.
func (s *FoodTrackerMCPServer) Close() error {
	if s.db == nil {
		return nil
	}
	// TRUNCATE mode waits for transactions and writes the WAL back to the main DB.
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		s.log.Warnw("WAL checkpoint failed during close", "error", err)
	}
	return s.db.Close()
}
