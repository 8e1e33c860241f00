package game

import (
	"fmt"
	"strconv"
)

// Pos is a board coordinate. (0,0) is the top-left cell, X grows to the
// right and Y grows downward, matching row-major storage.
type Pos struct {
	X int
	Y int
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

type FieldKind uint8

const (
	FieldEmpty FieldKind = iota
	FieldOwned
)

// Field is the content of a single cell. Owner and Count are only
// meaningful when Kind is FieldOwned; the zero value is an empty cell.
//
// While owned, Count stays below the cell's capacity: reaching capacity
// empties the cell immediately.
type Field struct {
	Kind  FieldKind
	Owner int
	Count int
}

func Empty() Field {
	return Field{Kind: FieldEmpty}
}

func Owned(owner, count int) Field {
	return Field{Kind: FieldOwned, Owner: owner, Count: count}
}

// Mass is the number of tokens in the cell.
func (f Field) Mass() int {
	switch f.Kind {
	case FieldOwned:
		return f.Count
	default:
		return 0
	}
}

func (f Field) String() string {
	switch f.Kind {
	case FieldOwned:
		return strconv.Itoa(f.Count)
	default:
		return "o"
	}
}
