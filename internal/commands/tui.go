package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/tui"
)

// TUICommand returns the CLI command that launches the interactive
// review deck. This is also the default action when incidentdeck is run
// without a subcommand.
func TUICommand() *cli.Command {
	return &cli.Command{
		Name:    "deck",
		Aliases: []string{"tui"},
		Usage:   "Open the interactive incident review deck",
		Action: func(c *cli.Context) error {
			a, err := app.FromContext(c)
			if err != nil {
				return err
			}

			service := tui.NewService(a)
			if err := service.Run(c.Context); err != nil {
				return fmt.Errorf("review deck exited with error: %w", err)
			}
			return nil
		},
	}
}
