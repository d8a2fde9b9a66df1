package domain

import (
	"context"
	"time"
)

// AssetSource is the read-only data access contract the scoring engine
// consumes. Implementations return raw, loosely typed fault records.
type AssetSource interface {
	// ListAssets returns up to a bounded page of assets.
	// An empty sector list means all sectors.
	ListAssets(ctx context.Context, sectors []int) ([]*Asset, error)

	// ListRecentFaultRecords returns the fault records recorded since the
	// given time. An empty assetIDs list means all assets.
	ListRecentFaultRecords(ctx context.Context, since time.Time, assetIDs []string) ([]*RawFaultRecord, error)

	// GetAssetByCode returns the asset with the given display code, or an
	// error wrapping ErrNotFound.
	GetAssetByCode(ctx context.Context, code string) (*Asset, error)

	// ListFaultRecordsByAsset returns the full record history of one asset.
	ListFaultRecordsByAsset(ctx context.Context, assetID string) ([]*RawFaultRecord, error)
}

// Repository is the persistence layer behind AssetSource.
// The write methods feed the ingestion endpoints.
type Repository interface {
	AssetSource

	SaveAsset(ctx context.Context, asset *Asset) error
	SaveFaultRecord(ctx context.Context, record *RawFaultRecord) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDB"`
	PostgresSSLMode  string `yaml:"postgresSSLMode"`

	// Connection pool settings
	MaxOpenConns    int `yaml:"maxOpenConns"`
	MaxIdleConns    int `yaml:"maxIdleConns"`
	ConnMaxLifetime int `yaml:"connMaxLifetime"` // seconds

	// AssetPageSize bounds ListAssets.
	AssetPageSize int `yaml:"assetPageSize"`
}
