package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/brensch/chainreaction/game"
	"github.com/brensch/chainreaction/runner"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Play a single game and print the board after every move",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			seed := resolveSeed(cfg.Seed)
			seats, err := buildPlayers(cfg.Players, seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%dx%d, seed %d, players %v\n\n", cfg.Width, cfg.Height, seed, cfg.Players)
			_, err = showGame(out, cfg.Width, cfg.Height, seats)
			return err
		},
	}
	addGameFlags(cmd)
	return cmd
}

// showGame plays one game between seats, writing the board after every move,
// and returns the winner.
func showGame(w io.Writer, width, height int, seats []runner.Player) (int, error) {
	g, err := game.New(width, height, len(seats))
	if err != nil {
		return -1, err
	}

	for g.Active() {
		player := g.CurrentPlayer()
		pos, err := seats[player].Play(g.View())
		if err != nil {
			return -1, fmt.Errorf("move %d: player %d: %w", g.MoveCount()+1, player, err)
		}
		if err := g.Place(pos); err != nil {
			return -1, fmt.Errorf("move %d: player %d at %v: %w", g.MoveCount()+1, player, pos, err)
		}
		fmt.Fprintf(w, "move %d: player %d plays %v\n%s\n\n", g.MoveCount(), player, pos, g)
	}

	winner, err := g.Winner()
	if err != nil {
		return -1, err
	}
	stats := g.Stats()
	fmt.Fprintf(w, "player %d wins after %d moves (%d explosions, %d captures, longest cascade %d rounds)\n",
		winner, g.MoveCount(), stats.Explosions, stats.Captures, stats.LongestCascade)
	return winner, nil
}
