package commands

import (
	"ticket-marketplace/internal/config"
	"ticket-marketplace/internal/database"

	"github.com/spf13/cobra"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply pending database migrations to the configured database.

Use --status to list migrations and whether each has been applied without
changing anything.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status only")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	p := newPrinter(cmd)

	cfg, err := config.Load()
	if err != nil {
		return p.Error("Failed to load configuration", err.Error())
	}

	db, err := database.NewConnection(database.Config{
		Driver:   cfg.Database.Driver,
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return p.Error("Failed to connect to database", err.Error())
	}
	defer db.Close()

	if !migrateStatus {
		p.Step("Applying migrations")
		if err := db.RunMigrations(); err != nil {
			return p.Error("Migration failed", err.Error())
		}
	}

	status, err := db.GetMigrationStatus()
	if err != nil {
		return p.Error("Failed to read migration status", err.Error())
	}

	for _, m := range status {
		if m.Applied {
			p.Success("%03d %s", m.Version, m.Name)
		} else {
			p.Warning("%03d %s (pending)", m.Version, m.Name)
		}
	}

	return nil
}
