package domain

// RecordKind discriminates the two metadata record variants.
type RecordKind uint8

const (
	KindClass RecordKind = iota + 1
	KindPackagePart
)

// String implements fmt.Stringer.
func (k RecordKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindPackagePart:
		return "package-part"
	default:
		return "unknown"
	}
}

// Descriptor is a decoded type descriptor. Its content belongs to the
// metadata layer; the snapshot engine only passes it through.
type Descriptor = any

// Record is the metadata stored for one symbol.
//
// PackageName is set only for package parts.
type Record struct {
	Kind        RecordKind
	Descriptor  Descriptor
	Table       StringTable
	PackageName FqName
}

// NewClassRecord creates a class record.
func NewClassRecord(desc Descriptor, table StringTable) *Record {
	return &Record{
		Kind:       KindClass,
		Descriptor: desc,
		Table:      table,
	}
}

// NewPackagePartRecord creates a package part record.
func NewPackagePartRecord(desc Descriptor, table StringTable, pkg FqName) *Record {
	return &Record{
		Kind:        KindPackagePart,
		Descriptor:  desc,
		Table:       table,
		PackageName: pkg,
	}
}

// IsClass reports whether r is a class record.
func (r *Record) IsClass() bool {
	return r.Kind == KindClass
}

// Validate checks the invariants a record must satisfy before it is written.
func (r *Record) Validate() error {
	if r == nil {
		return ErrInvalidRecord.WithDetails("record is nil")
	}
	switch r.Kind {
	case KindClass:
		if r.PackageName != "" {
			return ErrInvalidRecord.WithDetailsf("class record carries package name %q", r.PackageName)
		}
	case KindPackagePart:
		if r.PackageName.IsRoot() {
			return ErrInvalidRecord.WithDetails("package part requires a package name")
		}
		if _, err := ParseFqName(r.PackageName.String()); err != nil {
			return ErrInvalidRecord.WithDetailsf("package name %q", r.PackageName).WithCause(err)
		}
	default:
		return ErrInvalidRecord.WithDetailsf("unknown kind %d", uint8(r.Kind))
	}
	if r.Table.Shape() == ShapeUnknown {
		return ErrUnsupportedTableShape
	}
	return nil
}
