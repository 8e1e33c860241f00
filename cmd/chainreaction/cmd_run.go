package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brensch/chainreaction/bridge"
	"github.com/brensch/chainreaction/config"
	"github.com/brensch/chainreaction/runner"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a batch of games and print the win tally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tui, _ := cmd.Flags().GetBool("tui")
			jsonOut, _ := cmd.Flags().GetBool("json")

			// The TUI owns the terminal, so logs would only garble it.
			var logOut io.Writer = cmd.ErrOrStderr()
			if tui {
				logOut = io.Discard
			}
			logger, err := newLogger(cfg, logOut)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := executeBatch(ctx, cfg, logger, tui)
			if err != nil {
				return err
			}
			return printBatchResult(cmd.OutOrStdout(), res, jsonOut)
		},
	}

	addGameFlags(cmd)
	cmd.Flags().Int("games", 0, "Number of games to play")
	cmd.Flags().String("archive-dir", "", "Write every game to a Parquet file in this directory")
	cmd.Flags().String("ledger", "", "Record the batch in this SQLite ledger")
	cmd.Flags().String("bridge", "", "Serve live status over WebSocket on this address")
	cmd.Flags().Bool("tui", false, "Show a live progress view (q stops after the current game)")
	return cmd
}

// executeBatch runs the batch alongside whichever progress surfaces are
// enabled: the WebSocket bridge, the TUI, or periodic progress logs.
func executeBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, tui bool) (batchResult, error) {
	status := runner.NewStatus(len(cfg.Players))

	bridgeCtx, stopBridge := context.WithCancel(ctx)
	defer stopBridge()
	if cfg.Bridge.Addr != "" {
		srv := bridge.New(status, bridge.Options{Interval: cfg.Bridge.Interval, Logger: logger})
		go func() {
			if err := srv.ListenAndServe(bridgeCtx, cfg.Bridge.Addr); err != nil {
				logger.Error("status bridge stopped", "err", err)
			}
		}()
	}

	var (
		res      batchResult
		batchErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, batchErr = runBatch(ctx, cfg, status, logger)
	}()

	if tui {
		if err := runProgressTUI(status, cfg.Players, finished); err != nil {
			// The batch keeps going without a view.
			logger.Warn("progress view failed", "err", err)
		}
		<-finished
		return res, batchErr
	}

	started := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-finished:
			return res, batchErr
		case <-ticker.C:
			snap := status.Snapshot()
			elapsed := time.Since(started)
			logger.Info("progress",
				"games", snap.LastGame,
				"of", snap.Total,
				"wins", snap.Wins,
				"games_per_sec", fmt.Sprintf("%.1f", float64(snap.LastGame)/elapsed.Seconds()),
			)
		}
	}
}

func printBatchResult(w io.Writer, res batchResult, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "batch %s (seed %d): %d/%d games in %s", res.ID, res.Seed, res.Completed, res.Requested, res.Elapsed)
	if res.Stopped {
		fmt.Fprint(w, ", stopped early")
	}
	fmt.Fprintln(w)
	for seat, wins := range res.Tally {
		fmt.Fprintf(w, "  player %d %-13s %6d wins  %s\n", seat, res.Agents[seat], wins, percent(wins, res.Completed))
	}
	if res.ArchivePath != "" {
		fmt.Fprintf(w, "archive: %s\n", res.ArchivePath)
	}
	return nil
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%5.1f%%", 100*float64(n)/float64(total))
}
