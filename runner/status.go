package runner

import "sync/atomic"

// Status is the host-facing side of a running batch. The runner publishes
// progress after every completed game and polls for a stop request between
// games; hosts read and write it from any goroutine.
type Status struct {
	total    atomic.Int64
	lastGame atomic.Int64
	moves    atomic.Int64
	wins     []atomic.Int64
	stop     atomic.Bool
}

// Snapshot is a point-in-time copy of a Status.
type Snapshot struct {
	Total         int   `json:"total"`
	LastGame      int   `json:"last_game"`
	Moves         int64 `json:"moves"`
	Wins          []int `json:"wins"`
	StopRequested bool  `json:"stop_requested"`
}

func NewStatus(players int) *Status {
	return &Status{wins: make([]atomic.Int64, players)}
}

func (s *Status) setTotal(games int) {
	s.total.Store(int64(games))
}

// Publish records a completed game.
func (s *Status) Publish(gameID, winner, moves int) {
	if winner >= 0 && winner < len(s.wins) {
		s.wins[winner].Add(1)
	}
	s.moves.Add(int64(moves))
	s.lastGame.Store(int64(gameID))
}

// RequestStop asks the runner to stop after the game in progress.
func (s *Status) RequestStop() {
	s.stop.Store(true)
}

func (s *Status) StopRequested() bool {
	return s.stop.Load()
}

func (s *Status) Snapshot() Snapshot {
	wins := make([]int, len(s.wins))
	for i := range s.wins {
		wins[i] = int(s.wins[i].Load())
	}
	return Snapshot{
		Total:         int(s.total.Load()),
		LastGame:      int(s.lastGame.Load()),
		Moves:         s.moves.Load(),
		Wins:          wins,
		StopRequested: s.stop.Load(),
	}
}
