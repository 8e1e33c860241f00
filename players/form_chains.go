package players

import (
	"math/rand"

	"github.com/brensch/chainreaction/game"
)

// FormChains keeps building on one target cell. It picks a new target when
// the old one is lost, and once the target is one token from exploding it
// moves to a neighboring cell that is not yet critical, so that the eventual
// explosion can chain.
type FormChains struct {
	rng     *rand.Rand
	current game.Pos
	has     bool
}

func NewFormChains(rng *rand.Rand) *FormChains {
	return &FormChains{rng: rng}
}

func (p *FormChains) Play(v game.View) (game.Pos, error) {
	available := v.AvailableCells()
	if len(available) == 0 {
		p.has = false
		return game.Pos{}, game.ErrNoAvailableMove
	}

	choice, err := nonCritical(v, available)
	if err != nil {
		return game.Pos{}, err
	}
	if len(choice) == 0 {
		choice = available
	}

	if !p.has || !v.IsAvailable(p.current) {
		p.current, p.has = choice[p.rng.Intn(len(choice))], true
		return p.current, nil
	}

	critical, err := isCritical(v, p.current)
	if err != nil {
		return game.Pos{}, err
	}
	if critical {
		neighbors, err := v.Neighbors(p.current)
		if err != nil {
			return game.Pos{}, err
		}
		open := neighbors[:0]
		for _, n := range neighbors {
			if !v.IsAvailable(n) {
				continue
			}
			c, err := isCritical(v, n)
			if err != nil {
				return game.Pos{}, err
			}
			if !c {
				open = append(open, n)
			}
		}
		if len(open) > 0 {
			p.current = open[p.rng.Intn(len(open))]
		} else {
			p.current = choice[p.rng.Intn(len(choice))]
		}
	}
	return p.current, nil
}

// isCritical reports whether p is one token away from exploding.
func isCritical(v game.View, p game.Pos) (bool, error) {
	m, err := v.Mass(p)
	if err != nil {
		return false, err
	}
	c, err := v.Capacity(p)
	if err != nil {
		return false, err
	}
	return m >= c-1, nil
}

func nonCritical(v game.View, cells []game.Pos) ([]game.Pos, error) {
	out := make([]game.Pos, 0, len(cells))
	for _, p := range cells {
		c, err := isCritical(v, p)
		if err != nil {
			return nil, err
		}
		if !c {
			out = append(out, p)
		}
	}
	return out, nil
}
