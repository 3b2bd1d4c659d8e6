package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// EvidenceCommand returns the CLI command for the AI evidence pipeline
func EvidenceCommand() *cli.Command {
	return &cli.Command{
		Name:  "evidence",
		Usage: "Manage evidence sources for AI-assisted drafting",
		Subcommands: []*cli.Command{
			{
				Name:  "health",
				Usage: "Check the embedding service",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					status, err := a.Client.AIHealthCheck(c.Context)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("health check failed: %w", err)
					}

					if status.OK {
						utils.PrintSuccess(status.Message)
					} else {
						utils.PrintWarning(status.Message)
					}
					return nil
				},
			},
			{
				Name:  "sources",
				Usage: "List registered evidence sources",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					list, err := a.Client.ListEvidenceSources(c.Context)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to list sources: %w", err)
					}

					if len(list.Sources) == 0 {
						utils.PrintInfo("No evidence sources. Add one with " + color.CyanString("incidentdeck evidence add <file>"))
						return nil
					}

					rows := make([][]string, 0, len(list.Sources))
					for _, src := range list.Sources {
						rows = append(rows, []string{src.ID, src.Name, src.Kind, fmt.Sprintf("%d", src.Bytes), utils.FormatTimestamp(src.AddedAt)})
					}
					utils.PrintTable([]string{"ID", "Name", "Kind", "Bytes", "Added"}, rows)
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Add a file as an evidence source",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Source name (default: file name)",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Source kind (text, log, chat, doc)",
						Value: "text",
					},
				},
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					file := c.Args().First()
					if file == "" {
						return cli.Exit("evidence file is required", 1)
					}

					content, err := os.ReadFile(file)
					if err != nil {
						utils.PrintError(fmt.Sprintf("Failed to read file: %s", err))
						return fmt.Errorf("failed to read file: %w", err)
					}

					name := c.String("name")
					if name == "" {
						name = filepath.Base(file)
					}

					src, err := a.Client.AddEvidenceSource(c.Context, &gateway.AddSourceRequest{
						Name: name,
						Kind: c.String("kind"),
						Text: string(content),
					})
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to add source: %w", err)
					}

					utils.PrintSuccess(fmt.Sprintf("Added source %s (%s, %d bytes)", src.Name, src.ID, src.Bytes))
					utils.PrintInfo("Run " + color.CyanString("incidentdeck evidence build") + " to refresh the index")
					return nil
				},
			},
			{
				Name:  "build",
				Usage: "Chunk and embed all evidence sources",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					result, err := a.Client.BuildEvidenceChunks(c.Context)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to build chunks: %w", err)
					}

					utils.PrintSuccess(fmt.Sprintf("Processed %d source(s) into %d chunk(s)", result.SourcesProcessed, result.ChunksCreated))
					if result.IndexReady {
						utils.PrintInfo("Evidence index is ready")
					}
					return nil
				},
			},
			{
				Name:  "chunks",
				Usage: "List evidence chunks",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					list, err := a.Client.ListEvidenceChunks(c.Context)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to list chunks: %w", err)
					}

					if len(list.Chunks) == 0 {
						utils.PrintInfo("No chunks built yet")
						return nil
					}

					rows := make([][]string, 0, len(list.Chunks))
					for _, chunk := range list.Chunks {
						embedded := "no"
						if chunk.Embedded {
							embedded = "yes"
						}
						rows = append(rows, []string{chunk.ID, chunk.SourceID, fmt.Sprintf("%d", chunk.Seq), embedded})
					}
					utils.PrintTable([]string{"ID", "Source", "Seq", "Embedded"}, rows)
					return nil
				},
			},
			{
				Name:  "gate",
				Usage: "Show AI readiness for search and drafting",
				Action: func(c *cli.Context) error {
					a, err := app.FromContext(c)
					if err != nil {
						return err
					}

					gate, err := a.Evidence.Gate(c.Context, 0)
					if err != nil {
						utils.PrintError(gateway.Guidance(err))
						return fmt.Errorf("failed to evaluate readiness: %w", err)
					}

					printBool := func(label string, ok bool) {
						if ok {
							utils.PrintSuccess(label + ": ready")
						} else {
							utils.PrintWarning(label + ": blocked")
						}
					}
					printBool("Search", gate.CanSearch)
					printBool("Draft", gate.CanDraft)
					if gate.Reason != "" {
						utils.PrintInfo(gateway.Guidance(gateway.NewCommandError(string(gate.Reason), "")))
					}
					return nil
				},
			},
		},
	}
}
