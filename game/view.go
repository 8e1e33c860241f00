package game

// View is the read-only surface handed to players. It must not be retained
// past the decision it was created for.
type View struct {
	g *Game
}

func (v View) CurrentPlayer() int { return v.g.current }
func (v View) Players() int       { return v.g.players }
func (v View) Width() int         { return v.g.width }
func (v View) Height() int        { return v.g.height }
func (v View) MoveCount() int     { return v.g.moves }

// Mass returns the number of tokens on p.
func (v View) Mass(p Pos) (int, error) {
	f, err := v.g.grid.Get(p)
	if err != nil {
		return 0, err
	}
	return f.Mass(), nil
}

func (v View) Capacity(p Pos) (int, error) {
	return v.g.capacity.Get(p)
}

func (v View) Field(p Pos) (Field, error) {
	return v.g.grid.Get(p)
}

// PlayerMass returns the total mass of player.
func (v View) PlayerMass(player int) int {
	return v.g.Mass(player)
}

// AvailableCells lists the empty cells followed by the cells owned by the
// current player. The slice is a fresh copy.
func (v View) AvailableCells() []Pos {
	return v.g.index.available(v.g.current)
}

// IsAvailable reports whether the current player may place on p.
func (v View) IsAvailable(p Pos) bool {
	return v.g.grid.Contains(p) && v.g.index.isAvailable(p, v.g.current)
}

// Neighbors returns the in-bounds orthogonal neighbors of p.
func (v View) Neighbors(p Pos) ([]Pos, error) {
	if _, err := v.g.grid.index(p); err != nil {
		return nil, err
	}
	return v.g.grid.Neighbors(p), nil
}
