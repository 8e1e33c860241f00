package game

import (
	"fmt"
	"iter"
	"strings"
)

// Grid is a fixed-size 2D container addressed by Pos, stored row-major.
// It cannot be resized after construction.
type Grid[T any] struct {
	cells  []T
	width  int
	height int
}

// NewGrid returns a width x height grid with every cell set to fill.
func NewGrid[T any](width, height int, fill T) (*Grid[T], error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimension, width, height)
	}

	cells := make([]T, width*height)
	for i := range cells {
		cells[i] = fill
	}

	return &Grid[T]{cells: cells, width: width, height: height}, nil
}

func (g *Grid[T]) Width() int  { return g.width }
func (g *Grid[T]) Height() int { return g.height }
func (g *Grid[T]) Len() int    { return len(g.cells) }

// Contains reports whether p addresses a cell of the grid.
func (g *Grid[T]) Contains(p Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

func (g *Grid[T]) index(p Pos) (int, error) {
	if !g.Contains(p) {
		return 0, fmt.Errorf("%w: %v on %dx%d board", ErrOutOfBounds, p, g.width, g.height)
	}
	return p.Y*g.width + p.X, nil
}

func (g *Grid[T]) Get(p Pos) (T, error) {
	i, err := g.index(p)
	if err != nil {
		var zero T
		return zero, err
	}
	return g.cells[i], nil
}

func (g *Grid[T]) Set(p Pos, v T) error {
	i, err := g.index(p)
	if err != nil {
		return err
	}
	g.cells[i] = v
	return nil
}

// At is Get for positions already known to be in bounds. It panics otherwise.
func (g *Grid[T]) At(p Pos) T {
	return g.cells[p.Y*g.width+p.X]
}

func (g *Grid[T]) put(p Pos, v T) {
	g.cells[p.Y*g.width+p.X] = v
}

// Neighbors returns the in-bounds orthogonal neighbors of p.
func (g *Grid[T]) Neighbors(p Pos) []Pos {
	return g.AppendNeighbors(make([]Pos, 0, 4), p)
}

// AppendNeighbors appends the in-bounds orthogonal neighbors of p to dst in
// left, right, up, down order.
func (g *Grid[T]) AppendNeighbors(dst []Pos, p Pos) []Pos {
	candidates := [4]Pos{
		{X: p.X - 1, Y: p.Y},
		{X: p.X + 1, Y: p.Y},
		{X: p.X, Y: p.Y - 1},
		{X: p.X, Y: p.Y + 1},
	}
	for _, c := range candidates {
		if g.Contains(c) {
			dst = append(dst, c)
		}
	}
	return dst
}

// All yields every cell in row-major order.
func (g *Grid[T]) All() iter.Seq2[Pos, T] {
	return func(yield func(Pos, T) bool) {
		for i, v := range g.cells {
			if !yield(Pos{X: i % g.width, Y: i / g.width}, v) {
				return
			}
		}
	}
}

// Format renders the grid one row per line with cells separated by spaces.
func (g *Grid[T]) Format(cell func(T) string) string {
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		if y != 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < g.width; x++ {
			if x != 0 {
				b.WriteByte(' ')
			}
			b.WriteString(cell(g.cells[y*g.width+x]))
		}
	}
	return b.String()
}
