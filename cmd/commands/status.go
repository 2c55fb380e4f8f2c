package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/wildobs/batchpilot/internal/config"
	"github.com/wildobs/batchpilot/internal/platform/detapi"
	"github.com/wildobs/batchpilot/internal/platform/logger"
)

// NewStatusCommand returns the status subcommand: a one-shot status
// fetch for remote task IDs.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Fetch the current status of remote tasks by ID",
		ArgsUsage: "<task-id> [<task-id>...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return fmt.Errorf("at least one task ID is required")
			}

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Server)
			client := detapi.NewHTTPClient(cfg.Remote.EndpointBase, nil, log)

			for _, id := range ids {
				status, err := client.TaskStatus(ctx, id)
				if err != nil {
					fmt.Printf("%s: error: %v\n", id, err)
					continue
				}
				fmt.Printf("%s: %s", id, status.State)
				if status.NumFailedShards > 0 {
					fmt.Printf(" (%d failed shards)", status.NumFailedShards)
				}
				if status.Note != "" {
					fmt.Printf(" - %s", status.Note)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
