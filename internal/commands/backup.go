package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/safety"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// BackupCommand returns the CLI command for workspace backups
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Create, inspect and restore workspace backups",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Write a backup of the active workspace",
				ArgsUsage: "<destination-dir>",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					dir := c.Args().First()
					if dir == "" {
						return cli.Exit("destination directory is required", 1)
					}

					result, err := a.Client.CreateBackup(c.Context, dir, "")
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to create backup: %w", err)
					}

					utils.PrintSuccess("Backup written to " + color.YellowString("%s", result.BackupDir))
					printBackupManifest(&result.Manifest)
					return nil
				},
			},
			{
				Name:      "inspect",
				Usage:     "Verify a backup and show its manifest",
				ArgsUsage: "<backup-dir>",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					dir := c.Args().First()
					if dir == "" {
						return cli.Exit("backup directory is required", 1)
					}

					op := safety.NewPendingOperation(safety.KindRestore).SelectSource(dir)
					op, err = a.Transfers.Inspect(c.Context, op)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to inspect backup: %w", err)
					}

					utils.PrintSuccess("Backup verified")
					printBackupManifest(op.BackupManifest)
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "Replace the active workspace with a backup",
				ArgsUsage: "<backup-dir>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Acknowledge that the current workspace will be overwritten",
					},
				},
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					dir := c.Args().First()
					if dir == "" {
						return cli.Exit("backup directory is required", 1)
					}

					op := safety.NewPendingOperation(safety.KindRestore).SelectSource(dir)
					op, err = a.Transfers.Inspect(c.Context, op)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to inspect backup: %w", err)
					}
					printBackupManifest(op.BackupManifest)

					if !c.Bool("yes") {
						utils.PrintWarning("Restoring will overwrite the current workspace.")
						utils.PrintInfo("Re-run with " + color.CyanString("--yes") + " to confirm.")
						return nil
					}

					op = op.Acknowledge(true)
					outcome, err := a.Transfers.Commit(c.Context, op)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to restore backup: %w", err)
					}

					utils.PrintSuccess("Workspace restored: " + color.YellowString("%s", outcome.Restore.DBPath))
					utils.PrintKeyValue("Incidents", fmt.Sprintf("%d", outcome.Restore.Counts.Incidents))
					utils.PrintKeyValue("Timeline events", fmt.Sprintf("%d", outcome.Restore.Counts.TimelineEvents))
					return nil
				},
			},
		},
	}
}

func printBackupManifest(m *gateway.BackupManifest) {
	utils.PrintKeyValue("App version", m.AppVersion)
	utils.PrintKeyValue("Exported", utils.FormatTimestamp(m.ExportTime))
	utils.PrintKeyValue("Incidents", fmt.Sprintf("%d", m.Counts.Incidents))
	utils.PrintKeyValue("Timeline events", fmt.Sprintf("%d", m.Counts.TimelineEvents))
	if len(m.SchemaMigrations) > 0 {
		utils.PrintKeyValue("Schema", m.SchemaMigrations[len(m.SchemaMigrations)-1])
	}
}
