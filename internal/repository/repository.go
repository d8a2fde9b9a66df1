// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// defaultAssetPageSize bounds ListAssets when the config sets no page size.
const defaultAssetPageSize = 5000

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db       *sql.DB
	driver   string
	pageSize int
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	pageSize := cfg.AssetPageSize
	if pageSize <= 0 {
		pageSize = defaultAssetPageSize
	}

	repo := &SQLRepository{
		db:       db,
		driver:   cfg.Driver,
		pageSize: pageSize,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

const assetColumns = `id, code, address, city, sector, contract_plan, under_contract, out_of_service, updated_at`

// SaveAsset inserts or updates an asset.
func (r *SQLRepository) SaveAsset(ctx context.Context, asset *domain.Asset) error {
	if asset == nil || asset.ID == "" || asset.Code == "" {
		return fmt.Errorf("%w: asset id and code are required", domain.ErrInvalidInput)
	}

	updatedAt := asset.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO assets (` + assetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			code = excluded.code,
			address = excluded.address,
			city = excluded.city,
			sector = excluded.sector,
			contract_plan = excluded.contract_plan,
			under_contract = excluded.under_contract,
			out_of_service = excluded.out_of_service,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		asset.ID, asset.Code, asset.Address, asset.City, asset.Sector,
		asset.ContractPlan, asset.UnderContract, asset.OutOfService,
		updatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: asset code %q is already registered", domain.ErrInvalidInput, asset.Code)
	}
	return err
}

// isUniqueViolation reports a duplicate key on either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return isPostgresUniqueViolation(err) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListAssets returns up to one page of assets ordered by code.
// An empty sector list means all sectors.
func (r *SQLRepository) ListAssets(ctx context.Context, sectors []int) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets`

	args := make([]any, 0, len(sectors)+1)
	if len(sectors) > 0 {
		query += ` WHERE sector IN (` + placeholders(len(sectors)) + `)`
		for _, s := range sectors {
			args = append(args, s)
		}
	}
	query += ` ORDER BY code LIMIT ?`
	args = append(args, r.pageSize)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// GetAssetByCode retrieves an asset by its display code.
func (r *SQLRepository) GetAssetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE code = ?`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, r.rebind(query), code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(
		&a.ID, &a.Code, &a.Address, &a.City, &a.Sector,
		&a.ContractPlan, &a.UnderContract, &a.OutOfService,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveFaultRecord stores a raw fault record. The payload is stored as-is.
func (r *SQLRepository) SaveFaultRecord(ctx context.Context, record *domain.RawFaultRecord) error {
	if record == nil || record.ID == "" || record.AssetID == "" {
		return fmt.Errorf("%w: record id and asset id are required", domain.ErrInvalidInput)
	}

	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	query := `
		INSERT INTO fault_records (id, asset_id, data, recorded_at)
		VALUES (?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		record.ID, record.AssetID, string(data), recordedAt.UTC(),
	)
	return err
}

// ListRecentFaultRecords returns records recorded since the given time.
// An empty assetIDs list means all assets.
func (r *SQLRepository) ListRecentFaultRecords(ctx context.Context, since time.Time, assetIDs []string) ([]*domain.RawFaultRecord, error) {
	query := `SELECT id, asset_id, data, recorded_at FROM fault_records WHERE recorded_at >= ?`

	args := make([]any, 0, len(assetIDs)+1)
	args = append(args, since.UTC())
	if len(assetIDs) > 0 {
		query += ` AND asset_id IN (` + placeholders(len(assetIDs)) + `)`
		for _, id := range assetIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY recorded_at`

	return r.queryFaultRecords(ctx, query, args...)
}

// ListFaultRecordsByAsset returns the full record history of one asset.
func (r *SQLRepository) ListFaultRecordsByAsset(ctx context.Context, assetID string) ([]*domain.RawFaultRecord, error) {
	query := `SELECT id, asset_id, data, recorded_at FROM fault_records WHERE asset_id = ? ORDER BY recorded_at`
	return r.queryFaultRecords(ctx, query, assetID)
}

func (r *SQLRepository) queryFaultRecords(ctx context.Context, query string, args ...any) ([]*domain.RawFaultRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.RawFaultRecord
	for rows.Next() {
		var rec domain.RawFaultRecord
		var data string

		if err := rows.Scan(&rec.ID, &rec.AssetID, &data, &rec.RecordedAt); err != nil {
			return nil, err
		}

		// A payload that is not a JSON object is left nil and gets
		// quarantined during normalization.
		if data != "" {
			_ = json.Unmarshal([]byte(data), &rec.Data)
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
