package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/commands"
)

// Version information - populated at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cliApp := &cli.App{
		Name:  "incidentdeck",
		Usage: "Local-first incident review client",
		Description: "Incidentdeck reviews incidents from a local workspace database.\n\n" +
			"When run without subcommands it opens the interactive review deck.\n" +
			"Additional subcommands manage workspaces, backups and evidence sources.",
		Version: Version,
		Compiled: func() time.Time {
			t, err := time.Parse(time.RFC3339, BuildTime)
			if err != nil {
				return time.Now()
			}
			return t
		}(),
		Before: func(c *cli.Context) error {
			application, err := app.New()
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			// Store the app instance in the context for later use
			c.App.Metadata = map[string]interface{}{
				"app": application,
			}

			return nil
		},
		After: func(c *cli.Context) error {
			if application, ok := c.App.Metadata["app"].(*app.App); ok {
				return application.Shutdown()
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.TUICommand(),
			commands.WorkspaceCommand(),
			commands.IncidentsCommand(),
			commands.DashboardCommand(),
			commands.ReportCommand(),
			commands.ValidateCommand(),
			commands.BackupCommand(),
			commands.IngestCommand(),
			commands.DatasetCommand(),
			commands.EvidenceCommand(),
			commands.DoctorCommand(),
		},
		Action: func(c *cli.Context) error {
			// Default action is to open the review deck
			return commands.TUICommand().Action(c)
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
