package repository

// Schema definitions for the Liftwatch database.
// Compatible with both SQLite and PostgreSQL.

const schemaAssets = `
CREATE TABLE IF NOT EXISTS assets (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    address TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    sector INTEGER NOT NULL DEFAULT 0,
    contract_plan TEXT NOT NULL DEFAULT '',
    under_contract BOOLEAN NOT NULL DEFAULT FALSE,
    out_of_service BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assets_sector ON assets(sector);
`

// schemaFaultRecords stores fault log entries as delivered upstream.
// The payload is kept as raw JSON; it is normalized at read time.
const schemaFaultRecords = `
CREATE TABLE IF NOT EXISTS fault_records (
    id TEXT PRIMARY KEY,
    asset_id TEXT NOT NULL,
    data TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fault_records_asset ON fault_records(asset_id);
CREATE INDEX IF NOT EXISTS idx_fault_records_recorded ON fault_records(recorded_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssets,
		schemaFaultRecords,
	}
}
