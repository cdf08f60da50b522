package fx

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/docrag/docrag/internal/constants"
)

// Config holds the application configuration
type Config struct {
	DBPath         string
	Backend        string
	EmbedURL       string
	SourceDir      string // Optional source directory for pre-indexing
	Dimension      int
	ChunkSize      int
	ChunkOverlap   int
	PrefixQuery    string
	PrefixDocument string
}

// ConfigParams represents the parameters needed to create configuration
type ConfigParams struct {
	fx.In

	DBPath    string `name:"dbPath"    optional:"true"`
	Backend   string `name:"backend"   optional:"true"`
	EmbedURL  string `name:"embedURL"  optional:"true"`
	SourceDir string `name:"sourceDir" optional:"true"`
}

// NewConfig creates a new configuration. Flag values win over environment
// variables, which win over defaults. A .env file in the working directory is
// loaded into the environment first if present.
func NewConfig(params ConfigParams) *Config {
	_ = godotenv.Load()

	config := &Config{
		DBPath:         params.DBPath,
		Backend:        params.Backend,
		EmbedURL:       params.EmbedURL,
		SourceDir:      params.SourceDir,
		Dimension:      0, // inferred from the first indexed document
		ChunkSize:      constants.DefaultChunkSize,
		ChunkOverlap:   constants.DefaultChunkOverlap,
		PrefixQuery:    os.Getenv(constants.EnvPrefixQuery),
		PrefixDocument: os.Getenv(constants.EnvPrefixDocument),
	}

	if config.DBPath == "" {
		config.DBPath = envOr(constants.EnvDBPath, constants.DefaultDBPath)
	}
	if config.Backend == "" {
		config.Backend = envOr(constants.EnvBackend, constants.DefaultBackend)
	}
	if config.EmbedURL == "" {
		config.EmbedURL = envOr(constants.EnvEmbedURL, constants.DefaultEmbedURL)
	}

	return config
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ConfigModule provides configuration for the application
var ConfigModule = fx.Module("config",
	fx.Provide(NewConfig),
)
