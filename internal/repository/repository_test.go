package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

func newTestRepo(t *testing.T, pageSize int) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "liftwatch-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:        "sqlite",
		SQLitePath:    tmpPath,
		AssetPageSize: pageSize,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetAsset", func(t *testing.T) {
		asset := &domain.Asset{
			ID:            "asset-001",
			Code:          "ASC-001",
			Address:       "3 place Bellecour",
			City:          "Lyon",
			Sector:        2,
			UnderContract: true,
			ContractPlan:  "premium",
		}

		if err := repo.SaveAsset(ctx, asset); err != nil {
			t.Fatalf("SaveAsset failed: %v", err)
		}

		got, err := repo.GetAssetByCode(ctx, "ASC-001")
		if err != nil {
			t.Fatalf("GetAssetByCode failed: %v", err)
		}
		if got.ID != asset.ID || got.Sector != 2 || got.City != "Lyon" {
			t.Errorf("unexpected asset: %+v", got)
		}
		if !got.UnderContract || got.OutOfService {
			t.Errorf("flags not round-tripped: %+v", got)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("expected updated_at to be set")
		}
	})

	t.Run("UpsertAsset", func(t *testing.T) {
		asset := &domain.Asset{ID: "asset-001", Code: "ASC-001", Sector: 2, OutOfService: true}
		if err := repo.SaveAsset(ctx, asset); err != nil {
			t.Fatalf("SaveAsset failed: %v", err)
		}

		got, err := repo.GetAssetByCode(ctx, "ASC-001")
		if err != nil {
			t.Fatalf("GetAssetByCode failed: %v", err)
		}
		if !got.OutOfService || got.UnderContract {
			t.Errorf("expected updated flags, got %+v", got)
		}
	})

	t.Run("UnknownAsset", func(t *testing.T) {
		_, err := repo.GetAssetByCode(ctx, "NOPE")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("RequiresIDAndCode", func(t *testing.T) {
		err := repo.SaveAsset(ctx, &domain.Asset{ID: "x"})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}

		err = repo.SaveFaultRecord(ctx, &domain.RawFaultRecord{ID: "r"})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})
}

func TestListAssetsBySector(t *testing.T) {
	repo := newTestRepo(t, 2)
	ctx := context.Background()

	for _, a := range []*domain.Asset{
		{ID: "a1", Code: "ASC-001", Sector: 1},
		{ID: "a2", Code: "ASC-002", Sector: 2},
		{ID: "a3", Code: "ASC-003", Sector: 2},
		{ID: "a4", Code: "ASC-004", Sector: 3},
	} {
		if err := repo.SaveAsset(ctx, a); err != nil {
			t.Fatalf("SaveAsset failed: %v", err)
		}
	}

	t.Run("PageSizeBoundsAll", func(t *testing.T) {
		assets, err := repo.ListAssets(ctx, nil)
		if err != nil {
			t.Fatalf("ListAssets failed: %v", err)
		}
		if len(assets) != 2 {
			t.Fatalf("expected 2 assets, got %d", len(assets))
		}
		if assets[0].Code != "ASC-001" {
			t.Errorf("expected assets ordered by code, got %s first", assets[0].Code)
		}
	})

	t.Run("SectorFilter", func(t *testing.T) {
		assets, err := repo.ListAssets(ctx, []int{1, 3})
		if err != nil {
			t.Fatalf("ListAssets failed: %v", err)
		}
		if len(assets) != 2 {
			t.Fatalf("expected 2 assets, got %d", len(assets))
		}
		for _, a := range assets {
			if a.Sector != 1 && a.Sector != 3 {
				t.Errorf("unexpected sector %d", a.Sector)
			}
		}
	})
}

func TestFaultRecords(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	records := []*domain.RawFaultRecord{
		{
			ID:         "r1",
			AssetID:    "a1",
			Data:       map[string]any{"date": "20250101", "cause": 99, "type": "Visit"},
			RecordedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:         "r2",
			AssetID:    "a1",
			Data:       map[string]any{"date": "2025-13-45", "cause": "12", "type": "Door"},
			RecordedAt: now.AddDate(0, 0, -200),
		},
		{
			ID:         "r3",
			AssetID:    "a2",
			Data:       map[string]any{"cause": "7"},
			RecordedAt: now.Add(-time.Hour),
		},
	}
	for _, r := range records {
		if err := repo.SaveFaultRecord(ctx, r); err != nil {
			t.Fatalf("SaveFaultRecord failed: %v", err)
		}
	}

	t.Run("RecentWindow", func(t *testing.T) {
		got, err := repo.ListRecentFaultRecords(ctx, now.AddDate(0, 0, -90), nil)
		if err != nil {
			t.Fatalf("ListRecentFaultRecords failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
	})

	t.Run("RecentWindowByAsset", func(t *testing.T) {
		got, err := repo.ListRecentFaultRecords(ctx, now.AddDate(0, 0, -90), []string{"a2"})
		if err != nil {
			t.Fatalf("ListRecentFaultRecords failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "r3" {
			t.Fatalf("expected only r3, got %+v", got)
		}
	})

	t.Run("HistoryKeepsRawPayload", func(t *testing.T) {
		got, err := repo.ListFaultRecordsByAsset(ctx, "a1")
		if err != nil {
			t.Fatalf("ListFaultRecordsByAsset failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
		// Oldest first.
		if got[0].ID != "r2" {
			t.Errorf("expected r2 first, got %s", got[0].ID)
		}
		if got[0].Data["date"] != "2025-13-45" {
			t.Errorf("expected malformed date preserved, got %v", got[0].Data["date"])
		}
		if got[1].Data["cause"] != float64(99) {
			t.Errorf("expected numeric cause preserved, got %v (%T)", got[1].Data["cause"], got[1].Data["cause"])
		}
	})
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: "postgres"}
	got := pg.rebind("SELECT * FROM assets WHERE sector IN (" + placeholders(3) + ") LIMIT ?")
	want := "SELECT * FROM assets WHERE sector IN ($1, $2, $3) LIMIT $4"
	if got != want {
		t.Errorf("rebind: got %q, want %q", got, want)
	}

	lite := &SQLRepository{driver: "sqlite"}
	if q := lite.rebind("a = ?"); q != "a = ?" {
		t.Errorf("sqlite query should be unchanged, got %q", q)
	}
}

func TestDuplicateAssetCode(t *testing.T) {
	repo := newTestRepo(t, 0)
	ctx := context.Background()

	if err := repo.SaveAsset(ctx, &domain.Asset{ID: "a-1", Code: "ASC-DUP"}); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}

	err := repo.SaveAsset(ctx, &domain.Asset{ID: "a-2", Code: "ASC-DUP"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for a duplicate code, got %v", err)
	}
}

func TestInMemorySQLite(t *testing.T) {
	repo, err := New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.SaveAsset(ctx, &domain.Asset{ID: "m-1", Code: "ASC-MEM"}); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}
	if _, err := repo.GetAssetByCode(ctx, "ASC-MEM"); err != nil {
		t.Errorf("expected asset to be visible on the same database: %v", err)
	}
}

func TestDSN(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		got := sqliteDSN("/tmp/fleet.db")
		want := "file:/tmp/fleet.db?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
		if got != want {
			t.Errorf("sqliteDSN = %q, want %q", got, want)
		}
	})

	t.Run("PostgresDefaults", func(t *testing.T) {
		got := postgresDSN(domain.RepositoryConfig{PostgresUser: "lw", PostgresPassword: "secret"})
		want := "host=localhost port=5432 user=lw password=secret dbname=liftwatch sslmode=disable"
		if got != want {
			t.Errorf("postgresDSN = %q, want %q", got, want)
		}
	})

	t.Run("PostgresOmitsEmptyCredentials", func(t *testing.T) {
		got := postgresDSN(domain.RepositoryConfig{PostgresHost: "db", PostgresSSLMode: "require"})
		want := "host=db port=5432 dbname=liftwatch sslmode=require"
		if got != want {
			t.Errorf("postgresDSN = %q, want %q", got, want)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New(domain.RepositoryConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
