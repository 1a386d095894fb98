package db

import (
	"fmt"
	"strconv"
	"time"
)

// CellKind is the closed set of normalized value kinds. Every
// backend-native type maps to exactly one kind so rendering and
// filtering never branch on the source engine.
type CellKind int

const (
	KindNull CellKind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
	KindBytes
)

// Cell is the normalized representation of one backend value. A NULL
// cell is distinct from an empty text cell, in display and in any
// copied payload.
type Cell struct {
	Kind CellKind
	Text string
}

// NullCell is the single representation of SQL NULL.
var NullCell = Cell{Kind: KindNull}

// IsNull reports whether the cell holds SQL NULL.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// String renders the cell for display and clipboard payloads. NULL
// renders as the literal NULL, never as an empty string.
func (c Cell) String() string {
	if c.Kind == KindNull {
		return "NULL"
	}
	return c.Text
}

// Row is an ordered sequence of cells sharing the page's column header.
type Row []Cell

// NewCell normalizes one driver value into a Cell. []byte arrives here
// only for textual columns; binary columns go through BytesCell.
func NewCell(v any) Cell {
	switch val := v.(type) {
	case nil:
		return NullCell
	case string:
		return Cell{Kind: KindText, Text: val}
	case []byte:
		return Cell{Kind: KindText, Text: string(val)}
	case int64:
		return Cell{Kind: KindInt, Text: strconv.FormatInt(val, 10)}
	case int:
		return Cell{Kind: KindInt, Text: strconv.Itoa(val)}
	case uint64:
		return Cell{Kind: KindInt, Text: strconv.FormatUint(val, 10)}
	case float64:
		return Cell{Kind: KindFloat, Text: strconv.FormatFloat(val, 'g', -1, 64)}
	case float32:
		return Cell{Kind: KindFloat, Text: strconv.FormatFloat(float64(val), 'g', -1, 32)}
	case bool:
		if val {
			return Cell{Kind: KindBool, Text: "true"}
		}
		return Cell{Kind: KindBool, Text: "false"}
	case time.Time:
		return Cell{Kind: KindTime, Text: val.UTC().Format(time.RFC3339)}
	default:
		return Cell{Kind: KindText, Text: fmt.Sprintf("%v", val)}
	}
}

// BytesCell normalizes a binary value. Blobs render as 0x-prefixed hex
// so they survive a round trip through display and copy.
func BytesCell(b []byte) Cell {
	if b == nil {
		return NullCell
	}
	return Cell{Kind: KindBytes, Text: fmt.Sprintf("0x%x", b)}
}

// TextCell is a convenience for adapter-built metadata rows.
func TextCell(s string) Cell { return Cell{Kind: KindText, Text: s} }

// BoolCell is a convenience for adapter-built metadata rows.
func BoolCell(b bool) Cell { return NewCell(b) }
