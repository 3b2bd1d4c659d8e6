package commands

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// ReportCommand returns the CLI command for the incident review report
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Generate the incident review report",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print raw markdown instead of rendering it",
			},
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "Copy the markdown to the clipboard",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := app.FromContext(c)
			if err != nil {
				return err
			}

			result, err := a.Client.GenerateReport(c.Context)
			if err != nil {
				utils.PrintError(gateway.Guidance(err))
				return fmt.Errorf("failed to generate report: %w", err)
			}

			if c.Bool("copy") {
				if err := utils.CopyToClipboard(result.Markdown); err != nil {
					utils.PrintWarning(fmt.Sprintf("Could not copy to clipboard: %s", err))
				} else {
					utils.PrintSuccess("Report copied to clipboard")
				}
			}

			if c.Bool("raw") {
				fmt.Println(result.Markdown)
				return nil
			}

			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				// Fall back to raw output if the renderer cannot be built
				fmt.Println(result.Markdown)
				return nil
			}

			rendered, err := renderer.Render(result.Markdown)
			if err != nil {
				fmt.Println(result.Markdown)
				return nil
			}
			fmt.Print(rendered)
			return nil
		},
	}
}
