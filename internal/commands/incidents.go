package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// IncidentsCommand returns the CLI command for browsing incidents
func IncidentsCommand() *cli.Command {
	return &cli.Command{
		Name:    "incidents",
		Aliases: []string{"inc"},
		Usage:   "Browse incidents in the active workspace",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List incidents",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					list, err := a.Client.ListIncidents(c.Context)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to list incidents: %w", err)
					}

					if len(list.Incidents) == 0 {
						utils.PrintInfo("No incidents in this workspace")
						return nil
					}

					rows := make([][]string, 0, len(list.Incidents))
					for _, inc := range list.Incidents {
						rows = append(rows, []string{inc.ID, inc.ExternalID, inc.Severity, inc.Title})
					}
					utils.PrintTable([]string{"ID", "External ID", "Severity", "Title"}, rows)
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Show an incident and its timeline",
				ArgsUsage: "<incident-id>",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					id := c.Args().First()
					if id == "" {
						return cli.Exit("incident id is required", 1)
					}

					detail, err := a.Client.IncidentDetail(c.Context, id)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to load incident: %w", err)
					}

					utils.PrintHeading(detail.Incident.Title)
					utils.PrintKeyValue("ID", detail.Incident.ID)
					if detail.Incident.ExternalID != "" {
						utils.PrintKeyValue("External ID", detail.Incident.ExternalID)
					}
					if detail.Incident.Severity != "" {
						utils.PrintKeyValueWithColor("Severity", detail.Incident.Severity, utils.SeverityColors(detail.Incident.Severity))
					}

					if len(detail.Events) == 0 {
						utils.PrintInfo("No timeline events")
						return nil
					}

					rows := make([][]string, 0, len(detail.Events))
					for _, ev := range detail.Events {
						rows = append(rows, []string{utils.FormatTimestamp(ev.Timestamp), ev.Kind, ev.Text})
					}
					utils.PrintTable([]string{"Time", "Kind", "Event"}, rows)
					return nil
				},
			},
		},
	}
}

// DashboardCommand returns the CLI command for the metrics dashboard
func DashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Show incident metrics for the active workspace",
		Action: func(c *cli.Context) error {
			a, err := app.FromContext(c)
			if err != nil {
				return err
			}

			dash, err := a.Client.Dashboard(c.Context)
			if err != nil {
				utils.PrintError(gateway.Guidance(err))
				return fmt.Errorf("failed to load dashboard: %w", err)
			}

			utils.PrintHeading("Dashboard")
			utils.PrintKeyValue("Total incidents", fmt.Sprintf("%d", dash.TotalIncidents))
			utils.PrintKeyValue("Open incidents", fmt.Sprintf("%d", dash.OpenIncidents))
			utils.PrintKeyValue("MTTR", utils.FormatMinutes(dash.MTTRMinutes))
			utils.PrintKeyValue("MTTA", utils.FormatMinutes(dash.MTTAMinutes))

			if len(dash.BySeverity) > 0 {
				utils.PrintDivider()
				for _, sev := range []string{"sev1", "sev2", "sev3", "sev4"} {
					if count, ok := dash.BySeverity[sev]; ok {
						utils.PrintKeyValueWithColor(sev, fmt.Sprintf("%d", count), utils.SeverityColors(sev))
					}
				}
			}
			return nil
		},
	}
}

// ValidateCommand returns the CLI command for the data quality report
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Report data quality warnings for the active workspace",
		Action: func(c *cli.Context) error {
			a, err := app.FromContext(c)
			if err != nil {
				return err
			}

			report, err := a.Client.ValidationReport(c.Context)
			if err != nil {
				utils.PrintError(gateway.Guidance(err))
				return fmt.Errorf("failed to load validation report: %w", err)
			}

			if len(report.Items) == 0 {
				utils.PrintSuccess("No data quality warnings")
				return nil
			}

			utils.PrintHeading("Data Quality Warnings")
			for _, item := range report.Items {
				utils.PrintWarning(fmt.Sprintf("%s (%s)", item.Title, item.IncidentID))
				for _, w := range item.Warnings {
					utils.PrintKeyValue(w.Code, w.Message)
				}
			}
			return nil
		},
	}
}
