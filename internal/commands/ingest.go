package commands

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// IngestCommand returns the CLI command for loading incident data
func IngestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load incidents into the active workspace",
		Subcommands: []*cli.Command{
			{
				Name:      "jira",
				Usage:     "Import incidents from a Jira CSV export",
				ArgsUsage: "<csv-file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title-column", Value: "Summary", Usage: "column carrying the incident title"},
					&cli.StringFlag{Name: "id-column", Value: "Issue key", Usage: "column carrying the external issue key"},
					&cli.StringFlag{Name: "description-column", Usage: "column carrying the description"},
					&cli.StringFlag{Name: "severity-column", Usage: "column carrying the severity"},
					&cli.StringFlag{Name: "detection-column", Usage: "column carrying the detection source"},
					&cli.StringFlag{Name: "vendor-column", Usage: "column carrying the vendor"},
					&cli.StringFlag{Name: "service-column", Usage: "column carrying the service"},
					&cli.StringFlag{Name: "impact-column", Usage: "column carrying the impact percentage"},
					&cli.StringFlag{Name: "start-column", Usage: "column carrying the start timestamp"},
					&cli.StringFlag{Name: "first-observed-column", Usage: "column carrying the first-observed timestamp"},
					&cli.StringFlag{Name: "ack-column", Usage: "column carrying the acknowledge timestamp"},
					&cli.StringFlag{Name: "mitigate-column", Usage: "column carrying the mitigate timestamp"},
					&cli.StringFlag{Name: "resolve-column", Usage: "column carrying the resolve timestamp"},
				},
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					path := c.Args().First()
					if path == "" {
						return cli.Exit("CSV file is required", 1)
					}
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("failed to read %s: %w", path, err)
					}

					summary, err := a.Client.ImportJiraCSV(c.Context, &gateway.JiraImportRequest{
						CSV: string(data),
						Mapping: gateway.JiraCSVMapping{
							ExternalID:      c.String("id-column"),
							Title:           c.String("title-column"),
							Description:     c.String("description-column"),
							Severity:        c.String("severity-column"),
							DetectionSource: c.String("detection-column"),
							Vendor:          c.String("vendor-column"),
							Service:         c.String("service-column"),
							ImpactPct:       c.String("impact-column"),
							StartTS:         c.String("start-column"),
							FirstObservedTS: c.String("first-observed-column"),
							AckTS:           c.String("ack-column"),
							MitigateTS:      c.String("mitigate-column"),
							ResolveTS:       c.String("resolve-column"),
						},
					})
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to import CSV: %w", err)
					}

					utils.PrintSuccess("Import complete")
					printImportSummary(summary)
					return nil
				},
			},
			{
				Name:  "demo",
				Usage: "Seed the workspace with the deterministic demo incidents",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					summary, err := a.Client.SeedDemoData(c.Context)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to seed demo data: %w", err)
					}

					utils.PrintSuccess("Demo data seeded")
					printImportSummary(summary)
					return nil
				},
			},
		},
	}
}

func printImportSummary(s *gateway.JiraImportSummary) {
	utils.PrintKeyValue("Inserted", fmt.Sprintf("%d", s.Inserted))
	utils.PrintKeyValue("Updated", fmt.Sprintf("%d", s.Updated))
	utils.PrintKeyValue("Skipped", fmt.Sprintf("%d", s.Skipped))
	for _, w := range s.Warnings {
		utils.PrintWarning(fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
}
