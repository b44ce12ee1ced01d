package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20261001_120000_gateway_audit.up.sql", "20261001_120000", "gateway_audit", true},
		{"20261001_120000.up.sql", "20261001_120000", "20261001_120000", true},
		{"20261001_120000_gateway_audit.down.sql", "", "", false},
		{"readme.md", "", "", false},
		{"nounderscore.up.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK || version != tt.wantVersion || name != tt.wantName {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.filename, version, name, ok, tt.wantVersion, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestMigrate(t *testing.T) {
	fsys := fstest.MapFS{
		"20261002_090000_second.up.sql":  {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"20261001_120000_first.up.sql":   {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
		"20261001_120000_first.down.sql": {Data: []byte("DROP TABLE things;")},
		"migration_notes_readme.txt":     {Data: []byte("ignored")},
	}

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO things (id, label) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("migrated schema unusable: %v", err)
	}

	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(applied) != 2 || !applied["20261001_120000"] || !applied["20261002_090000"] {
		t.Errorf("applied = %v", applied)
	}

	// A second run is a no-op.
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	fsys := fstest.MapFS{
		"20261001_120000_good.up.sql": {Data: []byte("CREATE TABLE good (id TEXT);")},
		"20261002_120000_bad.up.sql":  {Data: []byte("CREATE TABLE broken (;")},
	}

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() should fail on invalid SQL")
	}

	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if !applied["20261001_120000"] || applied["20261002_120000"] {
		t.Errorf("applied = %v, want only the good migration", applied)
	}
}

func TestLoadMigrations_Nil(t *testing.T) {
	migrations, err := LoadMigrations(nil)
	if err != nil || migrations != nil {
		t.Errorf("LoadMigrations(nil) = %v, %v", migrations, err)
	}
}
