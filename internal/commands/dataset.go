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

// DatasetCommand returns the CLI command for sanitized dataset transfer
func DatasetCommand() *cli.Command {
	return &cli.Command{
		Name:  "dataset",
		Usage: "Export and import sanitized incident datasets",
		Description: "Sanitized datasets carry incident structure and metrics with all " +
			"free-text fields redacted, so they can be shared outside the workspace.",
		Subcommands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "Export a sanitized dataset from the active workspace",
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

					result, err := a.Client.ExportSanitized(c.Context, dir)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to export dataset: %w", err)
					}

					utils.PrintSuccess("Dataset written to " + color.YellowString("%s", result.DatasetDir))
					printDatasetManifest(&result.Manifest)
					return nil
				},
			},
			{
				Name:      "inspect",
				Usage:     "Verify a sanitized dataset and show its manifest",
				ArgsUsage: "<dataset-dir>",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					dir := c.Args().First()
					if dir == "" {
						return cli.Exit("dataset directory is required", 1)
					}

					op := safety.NewPendingOperation(safety.KindSanitizedImport).SelectSource(dir)
					op, err = a.Transfers.Inspect(c.Context, op)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to inspect dataset: %w", err)
					}

					utils.PrintSuccess("Dataset verified")
					printDatasetManifest(op.DatasetManifest)
					return nil
				},
			},
			{
				Name:      "import",
				Usage:     "Import a sanitized dataset into an empty workspace",
				ArgsUsage: "<dataset-dir>",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					dir := c.Args().First()
					if dir == "" {
						return cli.Exit("dataset directory is required", 1)
					}

					op := safety.NewPendingOperation(safety.KindSanitizedImport).SelectSource(dir)
					op, err = a.Transfers.Inspect(c.Context, op)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to inspect dataset: %w", err)
					}
					printDatasetManifest(op.DatasetManifest)

					outcome, err := a.Transfers.Commit(c.Context, op)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to import dataset: %w", err)
					}

					utils.PrintSuccess("Dataset imported")
					utils.PrintKeyValue("Incidents", fmt.Sprintf("%d", outcome.Import.InsertedIncidents))
					utils.PrintKeyValue("Timeline events", fmt.Sprintf("%d", outcome.Import.InsertedTimelineEvents))
					for _, w := range outcome.Import.ImportWarnings {
						utils.PrintWarning(fmt.Sprintf("%s: %s", w.Code, w.Message))
					}
					return nil
				},
			},
		},
	}
}

func printDatasetManifest(m *gateway.SanitizedManifest) {
	utils.PrintKeyValue("App version", m.AppVersion)
	utils.PrintKeyValue("Exported", utils.FormatTimestamp(m.ExportTime))
	utils.PrintKeyValue("Incidents", fmt.Sprintf("%d", m.Counts.Incidents))
	utils.PrintKeyValue("Timeline events", fmt.Sprintf("%d", m.Counts.TimelineEvents))
	utils.PrintKeyValue("Files", fmt.Sprintf("%d", len(m.Files)))
}
