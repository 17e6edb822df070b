package migration

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/ledger/internal/testutil"
	"go.uber.org/zap"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for version := range ups {
		if !downs[version] {
			t.Fatalf("missing down migration for %s", version)
		}
	}
}

func TestEmbeddedVersionsAreSequential(t *testing.T) {
	versions, err := embeddedVersions()
	if err != nil {
		t.Fatalf("embedded versions: %v", err)
	}
	for i, v := range versions {
		if v != uint(i+1) {
			t.Fatalf("expected version %d at position %d, got %d", i+1, i, v)
		}
	}

	latest, err := latestVersion()
	if err != nil {
		t.Fatalf("latest version: %v", err)
	}
	if latest != versions[len(versions)-1] {
		t.Fatalf("latest %d does not match %d", latest, versions[len(versions)-1])
	}
}

func TestApplyRequiresHandle(t *testing.T) {
	if _, err := Apply(context.Background(), nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}

func TestApplyRejectsOtherDialects(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := Apply(context.Background(), db, zap.NewNop())
	if !errors.Is(err, ErrUnsupportedDialect) {
		t.Fatalf("expected ErrUnsupportedDialect, got %v", err)
	}
}
