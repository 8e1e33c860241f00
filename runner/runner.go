// Package runner plays batches of Chain Reaction games between players and
// tallies the winners.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/brensch/chainreaction/game"
)

// Player picks a move for the current player. The view is only valid for the
// duration of the call.
type Player interface {
	Play(v game.View) (game.Pos, error)
}

// GameRecord summarises a finished game.
type GameRecord struct {
	ID       int
	Winner   int
	Moves    int
	Mass     int // winner's final mass
	Stats    game.Stats
	Duration time.Duration
}

type Options struct {
	// OnGameFinished is called after every completed game with the running
	// tally, the winner and the 1-based game id. The tally is a copy.
	OnGameFinished func(tally []int, winner, gameID int)

	// ShouldStop is polled after every completed game. Returning true ends
	// the batch with the tally so far.
	ShouldStop func() bool

	// OnRecord receives a summary of every completed game. An error aborts
	// the batch.
	OnRecord func(GameRecord) error

	// Status, if set, receives progress after every game and is polled for
	// stop requests.
	Status *Status

	Logger *slog.Logger
}

type Runner struct {
	width   int
	height  int
	players []Player
	opts    Options
	logger  *slog.Logger

	game *game.Game
}

// New prepares a runner for width x height games. The number of players
// fixes the player count of every game.
func New(width, height int, players []Player, opts Options) (*Runner, error) {
	g, err := game.New(width, height, len(players))
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Runner{
		width:   width,
		height:  height,
		players: players,
		opts:    opts,
		logger:  logger,
		game:    g,
	}, nil
}

// Run plays up to times games one after another and returns how many each
// player won. Any error from a player or from the rules aborts the batch.
//
// Stopping is cooperative and only happens between games: after each game
// ShouldStop, the Status stop flag and ctx are checked, and if any of them
// asks to stop the partial tally is returned without error.
func (r *Runner) Run(ctx context.Context, times int) ([]int, error) {
	if times < 0 {
		return nil, fmt.Errorf("game count cannot be negative: %d", times)
	}

	tally := make([]int, len(r.players))
	if r.opts.Status != nil {
		r.opts.Status.setTotal(times)
	}
	r.logger.Info("batch started", "games", times, "width", r.width, "height", r.height, "players", len(r.players))
	started := time.Now()

	for id := 1; id <= times; id++ {
		// Every game starts fresh, including the first one after an earlier
		// Run stopped or aborted part way.
		g, err := game.New(r.width, r.height, len(r.players))
		if err != nil {
			return nil, err
		}
		r.game = g

		start := time.Now()
		winner, err := r.play(id)
		if err != nil {
			r.logger.Error("batch aborted", "game", id, "err", err)
			return nil, err
		}
		tally[winner]++

		rec := GameRecord{
			ID:       id,
			Winner:   winner,
			Moves:    r.game.MoveCount(),
			Mass:     r.game.Mass(winner),
			Stats:    r.game.Stats(),
			Duration: time.Since(start),
		}
		r.logger.Debug("game finished", "game", id, "winner", winner, "moves", rec.Moves, "explosions", rec.Stats.Explosions)

		if r.opts.Status != nil {
			r.opts.Status.Publish(id, winner, rec.Moves)
		}
		if r.opts.OnGameFinished != nil {
			r.opts.OnGameFinished(slices.Clone(tally), winner, id)
		}
		if r.opts.OnRecord != nil {
			if err := r.opts.OnRecord(rec); err != nil {
				r.logger.Error("batch aborted", "game", id, "err", err)
				return nil, fmt.Errorf("game %d: record: %w", id, err)
			}
		}

		if r.stopRequested(ctx) {
			r.logger.Info("batch stopped early", "completed", id, "requested", times, "tally", tally)
			return tally, nil
		}
	}

	r.logger.Info("batch finished", "games", times, "tally", tally, "elapsed", time.Since(started))
	return tally, nil
}

func (r *Runner) play(id int) (int, error) {
	g := r.game
	for g.Active() {
		player := g.CurrentPlayer()
		pos, err := r.players[player].Play(g.View())
		if err != nil {
			return -1, fmt.Errorf("game %d move %d: player %d: %w", id, g.MoveCount()+1, player, err)
		}
		if err := g.Place(pos); err != nil {
			return -1, fmt.Errorf("game %d move %d: player %d at %v: %w", id, g.MoveCount()+1, player, pos, err)
		}
	}

	winner, err := g.Winner()
	if err != nil {
		return -1, fmt.Errorf("game %d: %w", id, err)
	}
	return winner, nil
}

func (r *Runner) stopRequested(ctx context.Context) bool {
	if r.opts.ShouldStop != nil && r.opts.ShouldStop() {
		return true
	}
	if r.opts.Status != nil && r.opts.Status.StopRequested() {
		return true
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return false
}
