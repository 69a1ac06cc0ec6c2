/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/karkinos-edge/authserver/config"
	"github.com/karkinos-edge/authserver/internal/db"
	"github.com/karkinos-edge/authserver/internal/store"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd.Context(), true)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd.Context(), false)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigration(ctx context.Context, up bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithField("driver", cfg.Database.Driver)

	var (
		conn    *sql.DB
		dialect db.Dialect
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		conn, err = db.Open(ctx, cfg)
		dialect = db.DialectPostgres
	case config.DriverSQLite:
		conn, err = db.OpenSQLite(ctx, cfg.Database.SQLitePath)
		dialect = db.DialectSQLite
	case config.DriverMySQL:
		if !up {
			return errors.New("mysql schema is managed by AutoMigrate and has no down migration")
		}
		gormDB, err := db.OpenMySQL(ctx, cfg)
		if err != nil {
			return err
		}
		gormStore := store.NewGormStore(gormDB)
		defer gormStore.Close()
		if err := gormStore.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("auto migrate failed: %w", err)
		}
		log.Info("migration completed")
		return nil
	default:
		log.Info("driver has no schema, nothing to migrate")
		return nil
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	migrateFn := db.MigrateDown
	if up {
		migrateFn = db.MigrateUp
	}
	if err := migrateFn(conn, dialect); err != nil {
		return err
	}
	log.WithField("up", up).Info("migration completed")
	return nil
}
