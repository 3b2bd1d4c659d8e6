package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/session"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// WorkspaceCommand returns the CLI command for workspace management
func WorkspaceCommand() *cli.Command {
	return &cli.Command{
		Name:    "workspace",
		Aliases: []string{"ws"},
		Usage:   "Manage incident workspaces",
		Subcommands: []*cli.Command{
			{
				Name:  "current",
				Usage: "Show the active workspace",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					info, err := a.Client.GetCurrentSession(c.Context)
					if err != nil {
						utils.PrintError(fmt.Sprintf("Failed to get current session: %s", err))
						return fmt.Errorf("failed to get current session: %w", err)
					}

					utils.PrintHeading("Current Workspace")
					if info.CurrentPath == "" {
						utils.PrintInfo("No workspace is open yet. Run " + color.CyanString("incidentdeck workspace open <path>") + " to open one.")
						return nil
					}
					utils.PrintKeyValue("Path", info.CurrentPath)

					status, err := a.Client.MigrationStatus(c.Context, info.CurrentPath)
					if err != nil {
						utils.PrintWarning(fmt.Sprintf("Could not read migration status: %s", err))
						return nil
					}
					utils.PrintKeyValue("Schema", status.LatestKnown)
					if len(status.Pending) > 0 {
						utils.PrintWarning(fmt.Sprintf("%d migration(s) pending", len(status.Pending)))
					}
					return nil
				},
			},
			{
				Name:      "open",
				Usage:     "Open an existing workspace database",
				ArgsUsage: "<path>",
				Flags:     switchFlags(),
				Action: func(c *cli.Context) error {
					return runSwitch(c, session.ModeOpen)
				},
			},
			{
				Name:      "create",
				Usage:     "Create a new workspace database",
				ArgsUsage: "<path>",
				Flags:     switchFlags(),
				Action: func(c *cli.Context) error {
					return runSwitch(c, session.ModeCreate)
				},
			},
			{
				Name:  "recent",
				Usage: "List recently opened workspaces",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					info, err := a.Client.GetCurrentSession(c.Context)
					if err != nil {
						utils.PrintError(fmt.Sprintf("Failed to get current session: %s", err))
						return fmt.Errorf("failed to get current session: %w", err)
					}

					if len(info.RecentPaths) == 0 {
						utils.PrintInfo("No recent workspaces")
						return nil
					}
					utils.PrintTreeList("Recent Workspaces", info.RecentPaths)
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Create or open the default workspace",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					utils.PrintHeading("Initializing Workspace")
					utils.PrintInfo("Default workspace: " + color.YellowString("%s", a.Config.Workspace.DefaultPath))

					outcome, err := a.Orchestrator.Initialize(c.Context)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to initialize workspace: %w", err)
					}
					return finishSwitch(c, a, outcome)
				},
			},
		},
	}
}

func switchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "migrate",
			Aliases: []string{"m"},
			Usage:   "Apply pending migrations without prompting",
		},
		&cli.StringFlag{
			Name:  "backup-dir",
			Usage: "Back up the workspace to this directory before applying pending migrations",
		},
	}
}

// runSwitch drives a workspace open or create from the CLI, including
// the migration guard when the target database is behind.
func runSwitch(c *cli.Context, mode session.Mode) error {
	a, err := app.FromContext(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		return cli.Exit("workspace path is required", 1)
	}

	outcome, err := a.Orchestrator.SwitchTo(c.Context, path, mode)
	if err != nil {
		utils.PrintError(gateway.Guidance(err))
		return fmt.Errorf("failed to %s workspace: %w", mode, err)
	}
	return finishSwitch(c, a, outcome)
}

// finishSwitch resolves the outcome of a switch attempt: a suspended
// migration guard is either resolved through the --migrate / --backup-dir
// flags or reported with instructions, success prints the workspace.
func finishSwitch(c *cli.Context, a *app.App, outcome *session.Outcome) error {
	if outcome.Abandoned {
		utils.PrintInfo("Cancelled")
		return nil
	}

	if outcome.Guard != nil {
		guard := *outcome.Guard
		utils.PrintWarning(fmt.Sprintf("Workspace %s has %d pending migration(s):", guard.TargetPath, len(guard.PendingMigrations)))
		utils.PrintTreeList("Pending Migrations", guard.PendingMigrations)

		if dir := c.String("backup-dir"); dir != "" {
			a.Orchestrator.BackupFirst()
			utils.PrintInfo("Creating backup before migrating...")
			// The guarded workspace is not open yet; back up the file
			// the guard suspended on.
			result, err := a.Client.CreateBackup(c.Context, dir, guard.TargetPath)
			if err != nil {
				a.Orchestrator.CancelGuard()
				utils.PrintError(gateway.Guidance(err))
				return fmt.Errorf("failed to create backup: %w", err)
			}
			utils.PrintSuccess("Backup written to " + color.YellowString("%s", result.BackupDir))
		} else if !c.Bool("migrate") {
			a.Orchestrator.CancelGuard()
			utils.PrintInfo("No changes were made. Re-run with " + color.CyanString("--migrate") +
				" to apply them, or " + color.CyanString("--backup-dir <dir>") + " to back up first.")
			return nil
		}

		resolved, err := a.Orchestrator.Proceed(c.Context)
		if err != nil {
			utils.PrintError(gateway.Guidance(err))
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		outcome = resolved
	}

	if outcome.Workspace != nil {
		utils.PrintSuccess("Workspace ready: " + color.YellowString("%s", outcome.Workspace.DBPath))
		if outcome.Workspace.IsEmpty {
			utils.PrintInfo("Workspace is empty")
		}
	}
	return nil
}
