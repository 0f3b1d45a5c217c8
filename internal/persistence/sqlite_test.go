package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewSQLiteRequiresPath(t *testing.T) {
	if _, err := NewSQLite(context.Background(), " ", zap.NewNop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "tracker.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)

	for i := 0; i < 2; i++ {
		if err := RunSQLiteMigrations(ctx, db.DB, zap.NewNop()); err != nil {
			t.Fatalf("run migrations (pass %d): %v", i+1, err)
		}
	}

	var tables []string
	if err := db.DB.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'projects', 'issues') ORDER BY name`); err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 3 || tables[0] != "issues" || tables[1] != "projects" || tables[2] != "users" {
		t.Fatalf("unexpected tables: %v", tables)
	}
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "tracker.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := RunSQLiteMigrations(ctx, db.DB, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	_, err = db.DB.ExecContext(ctx,
		`INSERT INTO issues (id, project_id, title, status, priority, created_at) VALUES ('i', 'missing', 't', 'To Do', 'Medium', 0)`)
	if err == nil {
		t.Fatal("expected foreign key violation for orphan issue")
	}
}
