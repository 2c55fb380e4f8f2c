package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wildobs/batchpilot/internal/api"
	"github.com/wildobs/batchpilot/internal/config"
	"github.com/wildobs/batchpilot/internal/items"
	"github.com/wildobs/batchpilot/internal/platform/blob"
	"github.com/wildobs/batchpilot/internal/platform/detapi"
	"github.com/wildobs/batchpilot/internal/platform/logger"
	"github.com/wildobs/batchpilot/internal/taskgroup"
)

// NewRunCommand returns the run subcommand: build one taskgroup per
// item-list file, drive each to completion, and write the combined
// detections per group.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Submit item lists as detection taskgroups and reconcile them to completion",
		ArgsUsage: "<item-list.json> [<item-list.json>...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Directory for combined detection outputs",
				Value:   ".",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			listFiles := cmd.Args().Slice()
			if len(listFiles) == 0 {
				return fmt.Errorf("at least one item-list JSON file is required")
			}

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Server)

			classifier, err := items.NewClassifier(cfg.Tasks.ItemPatterns)
			if err != nil {
				return err
			}

			client := detapi.NewHTTPClient(cfg.Remote.EndpointBase, nil, log)
			store := blob.NewSASClient(cfg.Storage.ContainerURL, cfg.Storage.WriteToken, nil, log)
			coordinator := taskgroup.New(cfg, client, store, classifier, log)

			if cfg.Server.Port > 0 {
				startStatusServer(cfg.Server.Port, coordinator, log)
			}

			groups := make([]*taskgroup.Group, 0, len(listFiles))
			for _, listFile := range listFiles {
				list, err := items.ReadListFile(listFile)
				if err != nil {
					return err
				}
				name := strings.TrimSuffix(filepath.Base(listFile), filepath.Ext(listFile))
				group, err := coordinator.Build(ctx, name, list)
				if err != nil {
					return err
				}
				groups = append(groups, group)
			}

			// Taskgroups are independent; run them in parallel.
			var wg sync.WaitGroup
			runErrs := make([]error, len(groups))
			for i, group := range groups {
				wg.Add(1)
				go func(i int, g *taskgroup.Group) {
					defer wg.Done()
					runErrs[i] = coordinator.Run(ctx, g)
				}(i, group)
			}
			wg.Wait()

			outputDir := cmd.String("output-dir")
			for i, group := range groups {
				if runErrs[i] != nil {
					log.Error("taskgroup did not complete",
						"group", group.Name(), "error", runErrs[i])
					continue
				}
				if err := writeCombinedOutput(ctx, coordinator, group, outputDir, log); err != nil {
					// An aggregation failure aborts this group's
					// combination only, never its siblings.
					log.Error("aggregation failed",
						"group", group.Name(), "error", err)
				}
			}
			return nil
		},
	}
}

func writeCombinedOutput(ctx context.Context, coordinator *taskgroup.Coordinator, group *taskgroup.Group, outputDir string, log *slog.Logger) error {
	agg, err := coordinator.Aggregate(ctx, group)
	if err != nil {
		return err
	}
	data, err := agg.EncodeDetections()
	if err != nil {
		return err
	}

	outPath := filepath.Join(outputDir, group.Name()+"_detections.json")
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write combined output: %w", err)
	}

	// Missing items are written next to the combined output for audit.
	if len(agg.Missing) > 0 {
		missingPath := filepath.Join(outputDir, group.Name()+"_missing.json")
		if err := items.WriteListFile(missingPath, agg.Missing); err != nil {
			return err
		}
	}

	log.Info("wrote combined detections",
		"group", group.Name(),
		"output", outPath,
		"result_items", len(agg.ResultItems),
		"missing", len(agg.Missing))
	return nil
}

func startStatusServer(port int, coordinator *taskgroup.Coordinator, log *slog.Logger) {
	handler := api.NewStatusHandler(coordinator, log)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("status endpoint listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("status server stopped", "error", err)
		}
	}()
}
