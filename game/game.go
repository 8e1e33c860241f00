// Package game implements the Chain Reaction rules engine.
//
// A Game owns its grid, capacity map and ownership index and is mutated only
// through Place. Players observe it through View, a read-only wrapper valid
// for a single decision.
package game

import (
	"fmt"
)

// Stats counts cascade activity over the lifetime of a game.
type Stats struct {
	Explosions     int // overflowing cells, including the placed cell
	Captures       int // cells taken over from another player
	CapturedMass   int // tokens taken over from other players
	LongestCascade int // most rounds in a single cascade
}

type Game struct {
	width   int
	height  int
	players int

	current int
	moves   int

	grid     *Grid[Field]
	capacity *Grid[int]
	index    *ownership
	mass     []int

	stats Stats
}

// New starts a game on a width x height board for the given number of players.
func New(width, height, players int) (*Game, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimension, width, height)
	}
	if players < 1 {
		return nil, ErrInvalidPlayerCount
	}

	grid, err := NewGrid(width, height, Empty())
	if err != nil {
		return nil, err
	}
	capacity, err := NewCapacityMap(width, height)
	if err != nil {
		return nil, err
	}

	return &Game{
		width:    width,
		height:   height,
		players:  players,
		grid:     grid,
		capacity: capacity,
		index:    newOwnership(width, height, players),
		mass:     make([]int, players),
	}, nil
}

func (g *Game) Width() int         { return g.width }
func (g *Game) Height() int        { return g.height }
func (g *Game) Players() int       { return g.players }
func (g *Game) CurrentPlayer() int { return g.current }
func (g *Game) MoveCount() int     { return g.moves }
func (g *Game) Stats() Stats       { return g.stats }

// Mass returns the total token count held by player.
func (g *Game) Mass(player int) int {
	if player < 0 || player >= g.players {
		return 0
	}
	return g.mass[player]
}

// Masses returns a copy of every player's mass.
func (g *Game) Masses() []int {
	return append([]int(nil), g.mass...)
}

func (g *Game) Field(p Pos) (Field, error) {
	return g.grid.Get(p)
}

func (g *Game) Capacity(p Pos) (int, error) {
	return g.capacity.Get(p)
}

// CanPlay reports whether the current player may place on p.
func (g *Game) CanPlay(p Pos) (bool, error) {
	f, err := g.grid.Get(p)
	if err != nil {
		return false, err
	}
	switch f.Kind {
	case FieldOwned:
		return f.Owner == g.current, nil
	default:
		return true, nil
	}
}

// Place adds one token for the current player on p, resolves any cascade and
// passes the turn to the next player in round-robin order. Eliminated players
// are not skipped.
func (g *Game) Place(p Pos) error {
	if !g.Active() {
		return ErrGameFinished
	}
	player := g.current

	field, err := g.grid.Get(p)
	if err != nil {
		return err
	}

	var next Field
	switch field.Kind {
	case FieldOwned:
		if field.Owner != player {
			return fmt.Errorf("%w: %v belongs to player %d", ErrCellTaken, p, field.Owner)
		}
		next = Owned(player, field.Count+1)
	default:
		next = Owned(player, 1)
	}

	g.index.transition(p, field, next)
	g.mass[player]++
	g.moves++

	if next.Count >= g.capacity.At(p) {
		g.index.transition(p, next, Empty())
		g.grid.put(p, Empty())
		g.mass[player] -= next.Count
		g.stats.Explosions++
		g.explode(p, player)
	} else {
		g.grid.put(p, next)
	}

	g.current = (player + 1) % g.players
	return nil
}

// cascade describes one explode call.
type cascade struct {
	rounds     int
	explosions int
	captured   int
	halted     bool // the game was decided with tokens still in flight
	spilled    int  // in-flight tokens lost when settling a halted cascade
}

// explode spreads the overflow of origin in rounds. Every cell in a round
// receives one token for player, taking the cell over if another player held
// it. Cells that reach capacity empty and queue their neighbors for the next
// round. Mass changes of a round are applied together once the round ends.
//
// Tokens queued for the next round still belong to player. If counting them
// the game is decided, the cascade stops expanding: the queued tokens are
// settled on their cells without further overflow.
func (g *Game) explode(origin Pos, player int) cascade {
	var c cascade
	queue := g.grid.Neighbors(origin)
	var next []Pos
	delta := make([]int, g.players)

	for len(queue) > 0 {
		c.rounds++
		next = next[:0]
		clear(delta)

		for _, p := range queue {
			count := g.receive(p, player, delta, &c)
			if count >= g.capacity.At(p) {
				g.index.transition(p, Owned(player, count), Empty())
				g.grid.put(p, Empty())
				delta[player] -= count
				c.explosions++
				next = g.grid.AppendNeighbors(next, p)
			} else {
				g.grid.put(p, Owned(player, count))
			}
		}
		g.applyDelta(delta)

		if len(next) > 0 && !g.activeWith(player, len(next)) {
			c.halted = true
			g.settle(next, player, delta, &c)
			break
		}
		queue, next = next, queue
	}

	g.stats.Explosions += c.explosions
	g.stats.CapturedMass += c.captured
	g.stats.LongestCascade = max(g.stats.LongestCascade, c.rounds)
	return c
}

// receive gives p one token for player, transferring ownership if needed,
// and returns the resulting count. The grid cell itself is left to the caller;
// the ownership index already lists p under player.
func (g *Game) receive(p Pos, player int, delta []int, c *cascade) int {
	field := g.grid.At(p)
	var count int
	switch field.Kind {
	case FieldEmpty:
		count = 1
	case FieldOwned:
		if field.Owner != player {
			delta[field.Owner] -= field.Count
			delta[player] += field.Count
			c.captured += field.Count
			g.stats.Captures++
		}
		count = field.Count + 1
	}
	delta[player]++
	g.index.transition(p, field, Owned(player, count))
	return count
}

// settle lands the tokens of a halted cascade, capping every cell one below
// its capacity.
func (g *Game) settle(pending []Pos, player int, delta []int, c *cascade) {
	clear(delta)
	for _, p := range pending {
		count := g.receive(p, player, delta, c)
		if limit := g.capacity.At(p) - 1; count > limit {
			delta[player] -= count - limit
			c.spilled += count - limit
			count = limit
		}
		g.grid.put(p, Owned(player, count))
	}
	g.applyDelta(delta)
}

func (g *Game) applyDelta(delta []int) {
	for i, d := range delta {
		g.mass[i] += d
	}
}

// activeCount counts players holding mass, crediting pending extra tokens to
// player.
func (g *Game) activeCount(player, pending int) int {
	n := 0
	for i, m := range g.mass {
		if i == player {
			m += pending
		}
		if m > 0 {
			n++
		}
	}
	return n
}

// Active reports whether the game is still being played. Until every living
// player has had a move nobody can be eliminated; after that the game is
// active while more than one player holds mass.
func (g *Game) Active() bool {
	return g.activeWith(-1, 0)
}

func (g *Game) activeWith(player, pending int) bool {
	alive := g.activeCount(player, pending)
	if g.moves <= alive {
		return true
	}
	return alive > 1
}

// Winner returns the only player left holding mass.
func (g *Game) Winner() (int, error) {
	if g.Active() {
		return -1, ErrGameInProgress
	}
	for player, m := range g.mass {
		if m > 0 {
			return player, nil
		}
	}
	return -1, ErrNoWinner
}

// View returns a read-only window onto g for the current player.
func (g *Game) View() View {
	return View{g: g}
}

// String renders the board as rows of per-cell mass ("o" for empty) followed
// by each player's total mass.
func (g *Game) String() string {
	return g.grid.Format(Field.String) + "\n" + fmt.Sprint(g.mass)
}
