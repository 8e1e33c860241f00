package game

import "errors"

var (
	ErrOutOfBounds        = errors.New("position is out of bounds")
	ErrInvalidDimension   = errors.New("board dimensions must be at least 1x1")
	ErrInvalidPlayerCount = errors.New("player count cannot be zero")
	ErrCellTaken          = errors.New("field is already taken")
	ErrGameFinished       = errors.New("cannot play after the game is finished")
	ErrGameInProgress     = errors.New("game is still in progress")
	ErrNoWinner           = errors.New("there is no winner")

	// ErrNoAvailableMove is returned by players that find no legal cell.
	ErrNoAvailableMove = errors.New("there are no available cells")
)
