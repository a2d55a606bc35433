package domain

// TableShape identifies which in-memory string table representation a
// StringTable carries.
type TableShape uint8

const (
	// ShapeUnknown is the zero value. Tables with this shape cannot be written.
	ShapeUnknown TableShape = iota

	// ShapeCompact exposes interned strings plus a qualified-name index.
	ShapeCompact

	// ShapeFlat exposes only the plain string sequence. Qualified-name
	// structure already lives in the descriptor payload.
	ShapeFlat
)

// String implements fmt.Stringer.
func (s TableShape) String() string {
	switch s {
	case ShapeCompact:
		return "compact"
	case ShapeFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// QualifiedName is one entry of a compact table's qualified-name index.
// Index points into the table's string sequence.
type QualifiedName struct {
	Index int32 `json:"index" yaml:"index"`
	Local bool  `json:"local" yaml:"local"`
}

// StringTable is the per-record interned string table.
//
// It is a tagged variant over the two shapes; construct it with
// NewCompactTable or NewFlatTable.
type StringTable struct {
	shape     TableShape
	strings   []string
	qualified []QualifiedName
}

// NewCompactTable creates a compact-shape table.
func NewCompactTable(strings []string, qualified []QualifiedName) StringTable {
	return StringTable{
		shape:     ShapeCompact,
		strings:   strings,
		qualified: qualified,
	}
}

// NewFlatTable creates a flat-shape table.
func NewFlatTable(strings []string) StringTable {
	return StringTable{
		shape:   ShapeFlat,
		strings: strings,
	}
}

// Shape returns the table's shape tag.
func (t StringTable) Shape() TableShape {
	return t.shape
}

// Len returns the number of interned strings.
func (t StringTable) Len() int {
	return len(t.strings)
}

// String returns the i-th interned string.
func (t StringTable) String(i int) (string, bool) {
	if i < 0 || i >= len(t.strings) {
		return "", false
	}
	return t.strings[i], true
}

// Strings returns a copy of the interned strings.
func (t StringTable) Strings() []string {
	return append([]string(nil), t.strings...)
}

// QualifiedNames returns a copy of the qualified-name index. Flat tables
// always return an empty slice.
func (t StringTable) QualifiedNames() []QualifiedName {
	return append([]QualifiedName(nil), t.qualified...)
}

// NormalizedTable is the canonical form written to a snapshot: one string per
// interned entry and one QualifiedName per index entry, in original order.
type NormalizedTable struct {
	Strings        []string
	QualifiedNames []QualifiedName
}

// Normalize converts either shape into the canonical write form.
//
// Flat tables yield zero qualified-name entries because no index exists to
// reconstruct. A table of unknown shape returns ErrUnsupportedTableShape.
func (t StringTable) Normalize() (NormalizedTable, error) {
	switch t.shape {
	case ShapeCompact:
		return NormalizedTable{
			Strings:        t.Strings(),
			QualifiedNames: t.QualifiedNames(),
		}, nil
	case ShapeFlat:
		return NormalizedTable{
			Strings:        t.Strings(),
			QualifiedNames: []QualifiedName{},
		}, nil
	default:
		return NormalizedTable{}, ErrUnsupportedTableShape.WithDetailsf("shape %d", uint8(t.shape))
	}
}
