package runner

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/brensch/chainreaction/game"
)

// randomPlayer picks uniformly among available cells with a fixed seed.
type randomPlayer struct {
	rng *rand.Rand
}

func newRandomPlayer(seed int64) *randomPlayer {
	return &randomPlayer{rng: rand.New(rand.NewSource(seed))}
}

func (p *randomPlayer) Play(v game.View) (game.Pos, error) {
	avail := v.AvailableCells()
	if len(avail) == 0 {
		return game.Pos{}, game.ErrNoAvailableMove
	}
	return avail[p.rng.Intn(len(avail))], nil
}

type fixedPlayer struct {
	pos game.Pos
}

func (p fixedPlayer) Play(game.View) (game.Pos, error) { return p.pos, nil }

type failingPlayer struct {
	err error
}

func (p failingPlayer) Play(game.View) (game.Pos, error) { return game.Pos{}, p.err }

func twoRandom() []Player {
	return []Player{newRandomPlayer(1), newRandomPlayer(2)}
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(0, 3, twoRandom(), Options{}); !errors.Is(err, game.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
	if _, err := New(3, 3, nil, Options{}); !errors.Is(err, game.ErrInvalidPlayerCount) {
		t.Errorf("expected ErrInvalidPlayerCount, got %v", err)
	}
}

func TestRun_TallySumsToGames(t *testing.T) {
	r, err := New(3, 3, twoRandom(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tally, err := r.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tally) != 2 || sum(tally) != 5 {
		t.Errorf("tally = %v, want two entries summing to 5", tally)
	}
}

func TestRun_ZeroGames(t *testing.T) {
	r, _ := New(3, 3, twoRandom(), Options{})
	tally, err := r.Run(context.Background(), 0)
	if err != nil || !slices.Equal(tally, []int{0, 0}) {
		t.Errorf("Run(0) = %v, %v", tally, err)
	}
	if _, err := r.Run(context.Background(), -1); err == nil {
		t.Error("expected error for negative game count")
	}
}

func TestRun_Hooks(t *testing.T) {
	var ids []int
	var records []GameRecord
	opts := Options{
		OnGameFinished: func(tally []int, winner, gameID int) {
			ids = append(ids, gameID)
			if sum(tally) != gameID {
				t.Errorf("game %d: running tally %v", gameID, tally)
			}
			if winner < 0 || winner > 1 || tally[winner] == 0 {
				t.Errorf("game %d: winner %d not counted in %v", gameID, winner, tally)
			}
			tally[0] = -100 // the runner must hand out a copy
		},
		OnRecord: func(rec GameRecord) error {
			records = append(records, rec)
			return nil
		},
	}
	players := []Player{newRandomPlayer(3), newRandomPlayer(4)}
	r, _ := New(4, 4, players, opts)
	tally, err := r.Run(context.Background(), 6)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(ids, []int{1, 2, 3, 4, 5, 6}) {
		t.Errorf("game ids = %v", ids)
	}
	if sum(tally) != 6 || tally[0] < 0 {
		t.Errorf("tally = %v", tally)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records", len(records))
	}
	for _, rec := range records {
		if rec.Moves < len(players) || rec.Mass <= 0 {
			t.Errorf("implausible record %+v", rec)
		}
	}
}

func TestRun_ShouldStop(t *testing.T) {
	calls := 0
	r, _ := New(3, 3, twoRandom(), Options{
		ShouldStop: func() bool {
			calls++
			return calls == 3
		},
	})
	tally, err := r.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum(tally) != 3 {
		t.Errorf("tally = %v, want 3 games", tally)
	}
}

func TestRun_StatusStop(t *testing.T) {
	status := NewStatus(2)
	status.RequestStop()
	r, _ := New(3, 3, twoRandom(), Options{Status: status})

	tally, err := r.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum(tally) != 1 {
		t.Errorf("tally = %v, want exactly one game before stopping", tally)
	}

	snap := status.Snapshot()
	if snap.LastGame != 1 || snap.Total != 10 || !snap.StopRequested {
		t.Errorf("snapshot = %+v", snap)
	}
	if !slices.Equal(snap.Wins, tally) || snap.Moves < 2 {
		t.Errorf("snapshot wins %v moves %d, tally %v", snap.Wins, snap.Moves, tally)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := New(3, 3, twoRandom(), Options{})
	tally, err := r.Run(ctx, 4)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum(tally) != 1 {
		t.Errorf("tally = %v, want one game", tally)
	}
}

func TestRun_PlayerErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	finished := 0
	r, _ := New(3, 3, []Player{newRandomPlayer(1), failingPlayer{err: boom}}, Options{
		OnGameFinished: func([]int, int, int) { finished++ },
	})
	tally, err := r.Run(context.Background(), 3)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if tally != nil || finished != 0 {
		t.Errorf("tally = %v, finished = %d", tally, finished)
	}
}

func TestRun_IllegalMoveAborts(t *testing.T) {
	corner := game.Pos{X: 0, Y: 0}
	r, _ := New(3, 3, []Player{fixedPlayer{pos: corner}, fixedPlayer{pos: corner}}, Options{})
	if _, err := r.Run(context.Background(), 1); !errors.Is(err, game.ErrCellTaken) {
		t.Fatalf("expected ErrCellTaken, got %v", err)
	}

	r, _ = New(3, 3, []Player{fixedPlayer{pos: game.Pos{X: 9, Y: 9}}}, Options{})
	if _, err := r.Run(context.Background(), 1); !errors.Is(err, game.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestRun_RecordErrorAborts(t *testing.T) {
	full := errors.New("disk full")
	r, _ := New(3, 3, twoRandom(), Options{
		OnRecord: func(GameRecord) error { return full },
	})
	if _, err := r.Run(context.Background(), 2); !errors.Is(err, full) {
		t.Fatalf("expected record error, got %v", err)
	}
}

// Two players cannot share a single cell: the second has nowhere to move.
func TestRun_SingleCellTwoPlayers(t *testing.T) {
	r, err := New(1, 1, twoRandom(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	tally, err := r.Run(context.Background(), 3)
	if !errors.Is(err, game.ErrNoAvailableMove) {
		t.Fatalf("expected ErrNoAvailableMove, got %v", err)
	}
	if tally != nil {
		t.Fatalf("tally = %v, want nil on abort", tally)
	}
}

func TestRun_SingleCellOnePlayerHasNoWinner(t *testing.T) {
	r, err := New(1, 1, []Player{newRandomPlayer(3)}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(context.Background(), 1); !errors.Is(err, game.ErrNoWinner) {
		t.Fatalf("expected ErrNoWinner, got %v", err)
	}
}

// recordingPlayer wraps a player and records the move count of every view it
// is shown. The call numbered failAt (1-based) fails.
type recordingPlayer struct {
	inner  Player
	seen   []int
	calls  int
	failAt int
}

func (p *recordingPlayer) Play(v game.View) (game.Pos, error) {
	p.calls++
	p.seen = append(p.seen, v.MoveCount())
	if p.calls == p.failAt {
		return game.Pos{}, errors.New("agent crashed")
	}
	return p.inner.Play(v)
}

func TestRun_ReusedAfterStopPlaysFreshGame(t *testing.T) {
	first := &recordingPlayer{inner: newRandomPlayer(5)}
	second := &recordingPlayer{inner: newRandomPlayer(6)}
	var records []GameRecord
	opts := Options{
		ShouldStop: func() bool { return true },
		OnRecord: func(rec GameRecord) error {
			records = append(records, rec)
			return nil
		},
	}
	r, err := New(3, 3, []Player{first, second}, opts)
	if err != nil {
		t.Fatal(err)
	}

	if tally, err := r.Run(context.Background(), 1); err != nil || sum(tally) != 1 {
		t.Fatalf("first Run = %v, %v", tally, err)
	}
	first.seen, second.seen = nil, nil

	tally, err := r.Run(context.Background(), 1)
	if err != nil || sum(tally) != 1 {
		t.Fatalf("second Run = %v, %v", tally, err)
	}
	if len(first.seen) == 0 || len(second.seen) == 0 {
		t.Fatalf("second batch finished without asking players to move (%v, %v)", first.seen, second.seen)
	}
	if first.seen[0] != 0 || second.seen[0] != 1 {
		t.Errorf("second batch opened at moves %d/%d, want 0/1", first.seen[0], second.seen[0])
	}
	if len(records) != 2 || records[1].Moves != len(first.seen)+len(second.seen) {
		t.Errorf("records = %+v, second game saw %d moves", records, len(first.seen)+len(second.seen))
	}
}

func TestRun_ReusedAfterAbortPlaysFreshGame(t *testing.T) {
	first := &recordingPlayer{inner: newRandomPlayer(7), failAt: 3}
	second := &recordingPlayer{inner: newRandomPlayer(8)}
	r, err := New(3, 3, []Player{first, second}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Run(context.Background(), 2); err == nil {
		t.Fatal("expected the batch to abort")
	}
	first.seen = nil

	tally, err := r.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run after abort: %v", err)
	}
	if sum(tally) != 1 {
		t.Errorf("tally = %v, want one game", tally)
	}
	if len(first.seen) == 0 || first.seen[0] != 0 {
		t.Errorf("game after abort resumed at move %v, want a fresh board", first.seen)
	}
}
