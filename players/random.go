package players

import (
	"math/rand"

	"github.com/brensch/chainreaction/game"
)

// Random picks uniformly among the available cells.
type Random struct {
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (p *Random) Play(v game.View) (game.Pos, error) {
	available := v.AvailableCells()
	if len(available) == 0 {
		return game.Pos{}, game.ErrNoAvailableMove
	}
	return available[p.rng.Intn(len(available))], nil
}
