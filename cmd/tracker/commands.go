package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/service"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := initDatabase(a.cfg.Database)
			if err != nil {
				return err
			}
			if err := repository.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.logger.Info("Database migration completed")
			return nil
		},
	}
}

// newImportCmd reconciles a spreadsheet straight into the database, without
// the preview step. Change events are not published.
func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <spare-parts|machine-purchases> <file>",
		Short: "Import a CSV or Excel sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := service.ParseImportKind(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := initDatabase(a.cfg.Database)
			if err != nil {
				return err
			}
			services := service.NewServices(repository.NewRepositories(db), nil, nil, nil, a.cfg, a.logger)
			result, err := services.Import.Import(cmd.Context(), kind, filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			a.logger.Info("Import finished",
				zap.String("file", args[1]),
				zap.Int("inserted", result.Inserted),
				zap.Int("updated", result.Updated),
				zap.Int("dropped", len(result.Dropped)),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
