// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cortexmemory/cortex-mcp/internal/config"
	"github.com/cortexmemory/cortex-mcp/internal/database"
	"github.com/cortexmemory/cortex-mcp/internal/embeddings"
	"github.com/cortexmemory/cortex-mcp/internal/engine"
	"github.com/cortexmemory/cortex-mcp/internal/search"
	"github.com/cortexmemory/cortex-mcp/internal/server"
	"github.com/cortexmemory/cortex-mcp/internal/similarity"
)

// Version is set at build time via ldflags (e.g. -X main.Version={{.Version}}).
var Version string

func main() {
	// CRITICAL: MCP servers must ONLY output JSON-RPC to stdout.
	// All logging goes to stderr.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	configPath := flag.String("config", "", "Path to config file")
	dbType := flag.String("db-type", "", "Database type (sqlite or postgres)")
	dbPath := flag.String("db-path", "", "Database path (for sqlite)")
	dbDSN := flag.String("db-dsn", "", "Database DSN (for postgres)")
	disableEmbeddings := flag.Bool("disable-embeddings", false, "Run without the embedding service (keyword search only)")
	embeddingURL := flag.String("embedding-url", "", "Embedding service base URL")
	logLevel := flag.String("log-level", "", "Log level (trace, debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Cortex MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE              Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH              SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN               PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  CORTEX_EMBEDDING_URL Embedding service base URL\n")
	}

	flag.Parse()

	// Load configuration
	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
		}
		logger.Info().Str("path", *configPath).Msg("Loaded configuration")
	} else {
		cfg, err = config.Load()
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to load default config, using built-in defaults")
			cfg = config.DefaultConfig()
		}
	}

	applyEnvOverrides(cfg, logger)
	applyCLIOverrides(cfg, *dbType, *dbPath, *dbDSN, *disableEmbeddings, *embeddingURL, *logLevel, logger)

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		logger = logger.Level(level)
	}

	logger.Info().Str("database", cfg.Database.Type).Msg("Starting Cortex MCP Server")

	// Connect to database. GORM's own logger is silenced so nothing leaks
	// to stdout in stdio mode.
	db, err := database.Connect(&database.Config{
		Type:        cfg.Database.Type,
		SQLitePath:  cfg.Database.SQLitePath,
		PostgresDSN: cfg.Database.PostgresDSN,
		LogLevel:    gormlogger.Silent,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	if err := database.CreateIndexes(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to create indexes")
	}

	logger.Info().Msg("Database ready")

	// Build the embedding gateway. A nil client keeps the gateway in
	// permanent degraded mode, which is exactly the disabled behavior.
	var client embeddings.Client
	if cfg.Embeddings.Enabled {
		client = embeddings.NewHTTPClient(
			cfg.Embeddings.BaseURL,
			cfg.Embeddings.Dimensions,
			time.Duration(cfg.Embeddings.BatchTimeoutSeconds)*time.Second,
		)
		logger.Info().Str("url", cfg.Embeddings.BaseURL).Int("dimensions", cfg.Embeddings.Dimensions).
			Msg("Semantic search enabled")
	} else {
		logger.Info().Msg("Semantic search disabled, keyword search only")
	}

	gateway := embeddings.NewGateway(embeddings.GatewayConfig{
		Client:       client,
		ProbeTimeout: time.Duration(cfg.Embeddings.ProbeTimeoutSeconds) * time.Second,
		BatchTimeout: time.Duration(cfg.Embeddings.BatchTimeoutSeconds) * time.Second,
		Logger:       logger,
	})

	eng, err := engine.New(engine.Config{
		DB:       db,
		Resolver: similarity.NewResolver(logger),
		Gateway:  gateway,
		Thresholds: engine.Thresholds{
			Note:        cfg.Dedup.NoteThreshold,
			Instruction: cfg.Dedup.InstructionThreshold,
			Error:       cfg.Dedup.ErrorThreshold,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create memory engine")
	}

	searcher := search.NewSearcher(db, gateway, logger)

	mcpSrv, err := server.NewMCPServer(cfg, eng, searcher)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create MCP server")
	}

	logger.Info().Msg("MCP server ready (stdio mode)")

	if err := mcpserver.ServeStdio(mcpSrv.GetMCPServer()); err != nil {
		logger.Fatal().Err(err).Msg("MCP server error")
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *config.Config, logger zerolog.Logger) {
	if dbType := getEnv("DB_TYPE", "CORTEX_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
		logger.Info().Str("type", dbType).Msg("Database type from ENV")
	}
	if dbPath := getEnv("DB_PATH", "CORTEX_DB_PATH"); dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		logger.Info().Msg("Database path from ENV")
	}
	if dbDSN := getEnv("DB_DSN", "CORTEX_DB_DSN"); dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		logger.Info().Msg("Database DSN from ENV (hidden)")
	}
	if url := getEnv("CORTEX_EMBEDDING_URL"); url != "" {
		cfg.Embeddings.BaseURL = url
		logger.Info().Msg("Embedding URL from ENV")
	}
}

// applyCLIOverrides applies command-line flag overrides to configuration.
// Flags take priority over both the config file and environment variables.
func applyCLIOverrides(cfg *config.Config, dbType, dbPath, dbDSN string, disableEmbeddings bool, embeddingURL, logLevel string, logger zerolog.Logger) {
	if dbType != "" {
		cfg.Database.Type = dbType
		logger.Info().Str("type", dbType).Msg("Database type from CLI")
	}
	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
		logger.Info().Msg("Database path from CLI")
	}
	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
		logger.Info().Msg("Database DSN from CLI (hidden)")
	}
	if disableEmbeddings {
		cfg.Embeddings.Enabled = false
		logger.Info().Msg("Embeddings disabled from CLI")
	}
	if embeddingURL != "" {
		cfg.Embeddings.BaseURL = embeddingURL
		logger.Info().Msg("Embedding URL from CLI")
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// getEnv tries multiple environment variable names and returns the first non-empty value
func getEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}
