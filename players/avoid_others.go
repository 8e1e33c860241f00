package players

import "github.com/brensch/chainreaction/game"

// AvoidOthers plays the available cell whose neighbors hold the least mass.
// Ties go to the earliest cell in AvailableCells order.
type AvoidOthers struct{}

func (AvoidOthers) Play(v game.View) (game.Pos, error) {
	available := v.AvailableCells()
	if len(available) == 0 {
		return game.Pos{}, game.ErrNoAvailableMove
	}

	best, bestMass := available[0], -1
	for _, p := range available {
		m, err := neighborMass(v, p)
		if err != nil {
			return game.Pos{}, err
		}
		if bestMass < 0 || m < bestMass {
			best, bestMass = p, m
		}
	}
	return best, nil
}

func neighborMass(v game.View, p game.Pos) (int, error) {
	neighbors, err := v.Neighbors(p)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range neighbors {
		m, err := v.Mass(n)
		if err != nil {
			return 0, err
		}
		total += m
	}
	return total, nil
}
