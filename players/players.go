// Package players holds the reference strategies used to drive batches.
package players

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"github.com/brensch/chainreaction/runner"
)

const (
	NameRandom      = "random"
	NameAvoidOthers = "avoid-others"
	NameFormChains  = "form-chains"
)

// Names lists every strategy New understands.
var Names = []string{NameRandom, NameAvoidOthers, NameFormChains}

// New builds the named strategy. rng seeds strategies that make random
// choices; each player should get its own.
func New(name string, rng *rand.Rand) (runner.Player, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameRandom:
		return NewRandom(rng), nil
	case NameAvoidOthers:
		return AvoidOthers{}, nil
	case NameFormChains:
		return NewFormChains(rng), nil
	default:
		return nil, fmt.Errorf("unknown player %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}

// Valid reports whether New accepts name.
func Valid(name string) bool {
	return slices.Contains(Names, strings.ToLower(strings.TrimSpace(name)))
}
