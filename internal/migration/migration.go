package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	authdomain "github.com/smallbiznis/disputeops/internal/auth/domain"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// the other dialects are created from the models.
func Run(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if strings.EqualFold(strings.TrimSpace(dbType), db.TypePostgres) {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn)
}

// RunMigrations applies the embedded SQL migrations to a Postgres database.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
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

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
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
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates every table from its model, including one table per
// dispute category sharing the record shape.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}, &auditdomain.AuditLog{}); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}

	for _, category := range disputedomain.Categories {
		table := category.Table()
		tx := conn.Table(table)
		if err := tx.AutoMigrate(&disputedomain.Record{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}

		index := "idx_" + table + "_processed_at"
		if conn.Table(table).Migrator().HasIndex(&disputedomain.Record{}, index) {
			continue
		}
		if err := conn.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (processed_at, id)", index, table)).Error; err != nil {
			return fmt.Errorf("index %s: %w", table, err)
		}
	}
	return nil
}
