package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnsupportedDialect = errors.New("migrations only run against postgres")
	ErrDirtySchema        = errors.New("schema is dirty")
)

// Status is the schema version before and after a run.
type Status struct {
	From    uint
	To      uint
	Latest  uint
	Applied bool
}

// Apply brings the event store and projection schema up to the newest
// embedded version. A dirty schema is reported, never forced.
func Apply(ctx context.Context, db *gorm.DB, log *zap.Logger) (Status, error) {
	if db == nil {
		return Status{}, errors.New("migration database handle is required")
	}
	if name := db.Dialector.Name(); name != "postgres" {
		return Status{}, fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
	}

	latest, err := latestVersion()
	if err != nil {
		return Status{}, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return Status{}, err
	}
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return Status{}, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return Status{}, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return Status{}, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return Status{}, fmt.Errorf("create migrator: %w", err)
	}
	// migrator.Close would close the shared *sql.DB.

	status := Status{Latest: latest}
	from, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return status, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return status, fmt.Errorf("%w at version %d", ErrDirtySchema, from)
	default:
		status.From = from
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			migrator.GracefulStop <- true
		case <-done:
		}
	}()

	log.Info("applying migrations", zap.Uint("from", status.From), zap.Uint("latest", latest))
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return status, fmt.Errorf("apply migrations: %w", err)
	}

	to, _, err := migrator.Version()
	if err != nil {
		return status, fmt.Errorf("read schema version: %w", err)
	}
	status.To = to
	status.Applied = status.To != status.From
	return status, nil
}

// embeddedVersions lists the versions that have an up migration, ascending.
func embeddedVersions() ([]uint, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var versions []uint
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix", name)
		}
		v, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		versions = append(versions, uint(v))
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func latestVersion() (uint, error) {
	versions, err := embeddedVersions()
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, errors.New("no embedded migrations")
	}
	return versions[len(versions)-1], nil
}
