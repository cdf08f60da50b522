// Package constants holds defaults and environment variable names shared by
// the CLI, the fx config module, and the MCP server.
package constants

const (
	DefaultEmbedURL     = "http://localhost:8000/embed"
	DefaultDBPath       = "docrag.db"
	DefaultBackend      = "sqlvec"
	DefaultLimit        = 5
	DefaultContextSize  = 1
	DefaultChunkSize    = 256
	DefaultChunkOverlap = 32
)

// Store backends selectable via --backend / STORE_BACKEND.
const (
	BackendSqlvec = "sqlvec"
	BackendSqlite = "sqlite"
	BackendMemory = "memory"
)

// Environment variable names, loaded from the process environment with .env
// overlay.
const (
	EnvDBPath         = "DB_PATH"
	EnvEmbedURL       = "EMBEDDING_API_URL"
	EnvBackend        = "STORE_BACKEND"
	EnvPrefixQuery    = "EMBEDDING_PREFIX_QUERY"
	EnvPrefixDocument = "EMBEDDING_PREFIX_EMBEDDING"
)
