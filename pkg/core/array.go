package core

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies the element type of a column.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt32
	KindFloat64
	KindComplex128
	KindBool
	KindString
)

var kindNames = map[Kind]string{
	KindInt32:      "int32",
	KindFloat64:    "float64",
	KindComplex128: "complex128",
	KindBool:       "bool",
	KindString:     "string",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, s) {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown column kind %q", s)
}

// Element is the set of cell element types a column may hold.
type Element interface {
	int32 | float64 | complex128 | bool | string
}

// KindOf returns the Kind of element type T.
func KindOf[T Element]() Kind {
	var zero T
	switch any(zero).(type) {
	case int32:
		return KindInt32
	case float64:
		return KindFloat64
	case complex128:
		return KindComplex128
	case bool:
		return KindBool
	case string:
		return KindString
	}
	return KindInvalid
}

// Column is a block of consecutive rows read from or written to a store.
// Every row holds a cell of identical shape, stored row-major; a scalar
// column has an empty cell shape.
type Column interface {
	Kind() Kind
	Rows() int
	CellShape() []int
	CellLen() int

	// Swap exchanges two elements addressed by flat index.
	Swap(i, j int)
	// CopyElem overwrites element dst with element src.
	CopyElem(dst, src int)
	// SetRows copies every row of src into this column starting at row start.
	SetRows(start int, src Column) error
	// SliceRows returns a copy of n rows starting at start.
	SliceRows(start, n int) Column
}

// Array is the concrete Column for element type T.
type Array[T Element] struct {
	rows    int
	cell    []int
	cellLen int
	Data    []T
}

// NewArray allocates a zeroed array of rows cells with the given shape.
func NewArray[T Element](rows int, cell ...int) *Array[T] {
	n := cellLen(cell)
	return &Array[T]{rows: rows, cell: slices.Clone(cell), cellLen: n, Data: make([]T, rows*n)}
}

// FromSlice wraps data (not copied) as an array of rows cells.
func FromSlice[T Element](data []T, rows int, cell ...int) (*Array[T], error) {
	n := cellLen(cell)
	if len(data) != rows*n {
		return nil, fmt.Errorf("array of %d rows with cell %v needs %d elements, got %d", rows, cell, rows*n, len(data))
	}
	return &Array[T]{rows: rows, cell: slices.Clone(cell), cellLen: n, Data: data}, nil
}

// NewColumn allocates a zeroed column of the given kind.
func NewColumn(kind Kind, rows int, cell []int) (Column, error) {
	switch kind {
	case KindInt32:
		return NewArray[int32](rows, cell...), nil
	case KindFloat64:
		return NewArray[float64](rows, cell...), nil
	case KindComplex128:
		return NewArray[complex128](rows, cell...), nil
	case KindBool:
		return NewArray[bool](rows, cell...), nil
	case KindString:
		return NewArray[string](rows, cell...), nil
	}
	return nil, fmt.Errorf("cannot allocate column of kind %s", kind)
}

// As asserts c holds elements of type T.
func As[T Element](c Column) (*Array[T], error) {
	a, ok := c.(*Array[T])
	if !ok {
		return nil, fmt.Errorf("column holds %s, not %s", c.Kind(), KindOf[T]())
	}
	return a, nil
}

func cellLen(cell []int) int {
	n := 1
	for _, d := range cell {
		n *= d
	}
	return n
}

func (a *Array[T]) Kind() Kind       { return KindOf[T]() }
func (a *Array[T]) Rows() int        { return a.rows }
func (a *Array[T]) CellShape() []int { return slices.Clone(a.cell) }
func (a *Array[T]) CellLen() int     { return a.cellLen }

// Row returns the cell of row r as a view into Data.
func (a *Array[T]) Row(r int) []T {
	lo := r * a.cellLen
	hi := lo + a.cellLen
	return a.Data[lo:hi:hi]
}

// Swap exchanges two elements addressed by flat index.
func (a *Array[T]) Swap(i, j int) {
	a.Data[i], a.Data[j] = a.Data[j], a.Data[i]
}

// CopyElem overwrites element dst with element src.
func (a *Array[T]) CopyElem(dst, src int) {
	a.Data[dst] = a.Data[src]
}

// SetRows copies every row of src into a starting at row start.
func (a *Array[T]) SetRows(start int, src Column) error {
	s, err := As[T](src)
	if err != nil {
		return err
	}
	if !slices.Equal(s.cell, a.cell) {
		return fmt.Errorf("cell shape mismatch: have %v, got %v", a.cell, s.cell)
	}
	if start < 0 || start+s.rows > a.rows {
		return fmt.Errorf("rows [%d, %d) out of range [0, %d)", start, start+s.rows, a.rows)
	}
	copy(a.Data[start*a.cellLen:], s.Data)
	return nil
}

// SliceRows returns a copy of n rows starting at start.
func (a *Array[T]) SliceRows(start, n int) Column {
	out := NewArray[T](n, a.cell...)
	copy(out.Data, a.Data[start*a.cellLen:(start+n)*a.cellLen])
	return out
}

// Clone returns a deep copy.
func (a *Array[T]) Clone() *Array[T] {
	out := NewArray[T](a.rows, a.cell...)
	copy(out.Data, a.Data)
	return out
}
