package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/migration"
	"github.com/smashburgertza/astralinelogistics-sub006/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|status>",
	Short:     "Apply the embedded schema migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	db, err := sql.Open("postgres", e.cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	m, err := migration.NewFromFS(db, migrations.FS, e.log)
	if err != nil {
		return err
	}
	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if err != nil {
		return err
	}
	status, err := m.Status()
	if err != nil {
		return err
	}
	fmt.Printf("version %d dirty=%t\n", status.Version, status.Dirty)
	return nil
}
