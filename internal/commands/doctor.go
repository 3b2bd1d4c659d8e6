package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// DoctorCommand returns the CLI command for environment diagnostics
func DoctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check the incidentdeck environment",
		Action: func(c *cli.Context) error {
			a, err := app.FromContext(c)
			if err != nil {
				return err
			}

			utils.PrintHeading("Environment Check")

			mode := "local (in-process)"
			if a.Config.Gateway.Endpoint != "" {
				mode = "remote: " + a.Config.Gateway.Endpoint
			}
			utils.PrintKeyValue("Transport", mode)
			utils.PrintKeyValue("Default workspace", a.Config.Workspace.DefaultPath)
			utils.PrintKeyValue("Log level", a.Config.Logging.Level)
			fmt.Println("")

			checkWorkspace(c, a)
			checkEmbedding(c, a)
			return nil
		},
	}
}

func checkWorkspace(c *cli.Context, a *app.App) {
	info, err := a.Client.GetCurrentSession(c.Context)
	if err != nil {
		printCheck(false, "Session state: "+err.Error())
		return
	}

	if info.CurrentPath == "" {
		printCheck(false, "No workspace open (run "+color.CyanString("incidentdeck workspace init")+")")
		return
	}
	if _, err := os.Stat(info.CurrentPath); err != nil {
		printCheck(false, fmt.Sprintf("Workspace file missing: %s", info.CurrentPath))
		return
	}
	printCheck(true, "Workspace: "+info.CurrentPath)

	status, err := a.Client.MigrationStatus(c.Context, info.CurrentPath)
	if err != nil {
		printCheck(false, "Migration status: "+err.Error())
		return
	}
	if len(status.Pending) > 0 {
		printCheck(false, fmt.Sprintf("Schema behind: %d migration(s) pending", len(status.Pending)))
	} else {
		printCheck(true, "Schema up-to-date ("+status.LatestKnown+")")
	}
}

func checkEmbedding(c *cli.Context, a *app.App) {
	status, err := a.Client.AIHealthCheck(c.Context)
	if err != nil {
		printCheck(false, "Embedding service: "+err.Error())
		return
	}
	printCheck(status.OK, "Embedding service: "+status.Message)
}

func printCheck(ok bool, message string) {
	if ok {
		fmt.Printf("  %s %s\n", color.GreenString("✓"), message)
	} else {
		fmt.Printf("  %s %s\n", color.RedString("✗"), message)
	}
}
