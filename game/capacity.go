package game

// MinCapacity is the floor applied to every cell's explosion threshold.
//
// Capacity normally equals the number of in-bounds orthogonal neighbors.
// On boards one cell wide or tall the per-axis edge adjustments overlap and
// would drop to 1 or 0, so they are clamped here. A fresh placement (count 1)
// therefore never explodes on any board.
const MinCapacity = 2

// CapacityAt returns the explosion threshold of p on a width x height board:
// 4, minus one for each board edge the cell touches, floored at MinCapacity.
func CapacityAt(width, height int, p Pos) int {
	c := 4
	if p.X == 0 {
		c--
	}
	if p.X == width-1 {
		c--
	}
	if p.Y == 0 {
		c--
	}
	if p.Y == height-1 {
		c--
	}
	return max(c, MinCapacity)
}

// NewCapacityMap computes the capacity of every cell once.
func NewCapacityMap(width, height int) (*Grid[int], error) {
	grid, err := NewGrid(width, height, 0)
	if err != nil {
		return nil, err
	}
	for i := range grid.cells {
		grid.cells[i] = CapacityAt(width, height, Pos{X: i % width, Y: i / width})
	}
	return grid, nil
}
