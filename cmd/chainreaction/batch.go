package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/chainreaction/config"
	"github.com/brensch/chainreaction/players"
	"github.com/brensch/chainreaction/runner"
	"github.com/brensch/chainreaction/store"
)

// batchResult is what a finished batch reports back to the CLI.
type batchResult struct {
	ID          string    `json:"id"`
	Seed        int64     `json:"seed"`
	Agents      []string  `json:"agents"`
	Requested   int       `json:"requested"`
	Completed   int       `json:"completed"`
	Tally       []int     `json:"tally"`
	Stopped     bool      `json:"stopped"`
	StartedAt   time.Time `json:"started_at"`
	Elapsed     string    `json:"elapsed"`
	ArchivePath string    `json:"archive_path,omitempty"`
}

// resolveSeed turns the configured seed into the one actually used.
func resolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// buildPlayers creates one strategy per seat, each with its own random
// source derived from seed so a batch replays exactly.
func buildPlayers(names []string, seed int64) ([]runner.Player, error) {
	out := make([]runner.Player, len(names))
	for i, name := range names {
		p, err := players.New(name, rand.New(rand.NewSource(seed+int64(i))))
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// runBatch plays cfg.Games games, archiving every game and recording the
// batch in the ledger when those sinks are configured. status may be nil.
func runBatch(ctx context.Context, cfg *config.Config, status *runner.Status, logger *slog.Logger) (batchResult, error) {
	res := batchResult{
		ID:        uuid.NewString(),
		Seed:      resolveSeed(cfg.Seed),
		Agents:    append([]string(nil), cfg.Players...),
		Requested: cfg.Games,
		StartedAt: time.Now(),
	}
	logger = logger.With("batch", res.ID)
	logger.Info("seeding players", "seed", res.Seed, "agents", res.Agents)

	seats, err := buildPlayers(cfg.Players, res.Seed)
	if err != nil {
		return res, err
	}

	// Open the ledger up front so a bad path fails before any game is played.
	var ledger *store.Ledger
	if cfg.Ledger.Path != "" {
		ledger, err = store.OpenLedger(cfg.Ledger.Path)
		if err != nil {
			return res, err
		}
		defer ledger.Close()
	}

	var archive *store.ArchiveWriter
	if cfg.Archive.Dir != "" {
		archive, err = store.NewArchiveWriter(cfg.Archive.Dir)
		if err != nil {
			return res, err
		}
	}

	opts := runner.Options{
		Status: status,
		Logger: logger,
		OnGameFinished: func(tally []int, winner, gameID int) {
			res.Completed = gameID
		},
	}
	if archive != nil {
		opts.OnRecord = func(rec runner.GameRecord) error {
			return archive.Write(store.NewGameRow(res.ID, cfg.Width, cfg.Height, cfg.Players, rec))
		}
	}

	r, err := runner.New(cfg.Width, cfg.Height, seats, opts)
	if err != nil {
		return res, err
	}

	tally, runErr := r.Run(ctx, cfg.Games)

	// Whatever was archived before an abort is still worth keeping.
	if archive != nil {
		path, rows, err := archive.Finalize()
		if err != nil && runErr == nil {
			runErr = err
		}
		if path != "" {
			res.ArchivePath = path
			logger.Info("archive written", "path", path, "games", rows)
		}
	}
	if runErr != nil {
		return res, runErr
	}

	elapsed := time.Since(res.StartedAt)
	res.Tally = tally
	res.Stopped = res.Completed < cfg.Games
	res.Elapsed = elapsed.Round(time.Millisecond).String()

	if ledger != nil {
		// A batch stopped by a signal is still recorded.
		err := ledger.RecordBatch(context.WithoutCancel(ctx), store.Batch{
			ID:        res.ID,
			StartedAt: res.StartedAt,
			Elapsed:   elapsed,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Agents:    res.Agents,
			Requested: cfg.Games,
			Completed: res.Completed,
			Tally:     tally,
			Stopped:   res.Stopped,
		})
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
