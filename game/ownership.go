package game

// posSet is an insertion-ordered set of positions with O(1) add, remove and
// membership. Removal swaps the last element into the hole, so iteration
// order depends only on the sequence of operations.
type posSet struct {
	items []Pos
	index map[Pos]int
}

func newPosSet(capacity int) *posSet {
	return &posSet{
		items: make([]Pos, 0, capacity),
		index: make(map[Pos]int, capacity),
	}
}

func (s *posSet) add(p Pos) {
	if _, ok := s.index[p]; ok {
		return
	}
	s.index[p] = len(s.items)
	s.items = append(s.items, p)
}

func (s *posSet) remove(p Pos) {
	i, ok := s.index[p]
	if !ok {
		return
	}
	last := len(s.items) - 1
	if i != last {
		moved := s.items[last]
		s.items[i] = moved
		s.index[moved] = i
	}
	s.items = s.items[:last]
	delete(s.index, p)
}

func (s *posSet) has(p Pos) bool {
	_, ok := s.index[p]
	return ok
}

func (s *posSet) len() int { return len(s.items) }

// ownership mirrors the grid: every cell is in the empty set or in exactly
// one player's owned set.
type ownership struct {
	empty *posSet
	owned []*posSet
}

func newOwnership(width, height, players int) *ownership {
	o := &ownership{
		empty: newPosSet(width * height),
		owned: make([]*posSet, players),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o.empty.add(Pos{X: x, Y: y})
		}
	}
	for i := range o.owned {
		o.owned[i] = newPosSet(0)
	}
	return o
}

func (o *ownership) setFor(f Field) *posSet {
	switch f.Kind {
	case FieldOwned:
		return o.owned[f.Owner]
	default:
		return o.empty
	}
}

// transition moves p from the set matching from to the set matching to.
func (o *ownership) transition(p Pos, from, to Field) {
	src, dst := o.setFor(from), o.setFor(to)
	if src == dst {
		return
	}
	src.remove(p)
	dst.add(p)
}

// available returns the empty cells followed by the cells owned by player.
func (o *ownership) available(player int) []Pos {
	owned := o.owned[player]
	out := make([]Pos, 0, o.empty.len()+owned.len())
	out = append(out, o.empty.items...)
	return append(out, owned.items...)
}

func (o *ownership) isAvailable(p Pos, player int) bool {
	return o.empty.has(p) || o.owned[player].has(p)
}
