package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	shoppinglistdomain "github.com/smallbiznis/pricewatch/internal/shoppinglist/domain"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations/postgres"

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// sqlite and mysql are migrated from the gorm models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB

	return nil
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&ledgerdomain.Product{},
		&ledgerdomain.PriceHistoryEntry{},
		&shoppinglistdomain.List{},
		&shoppinglistdomain.Item{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
