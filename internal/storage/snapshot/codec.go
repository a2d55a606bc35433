package snapshot

import (
	"fmt"

	"github.com/yndnr/metasnap/internal/core/domain"
)

// Encoder turns a descriptor plus its normalized string table into the opaque
// payload strings stored in a record.
type Encoder interface {
	Encode(kind domain.RecordKind, desc domain.Descriptor, table domain.NormalizedTable) ([]string, error)
}

// Decoder rebuilds a descriptor and its string table from a stored payload.
// Both methods accept the same (payload, strings) shape.
type Decoder interface {
	DecodeClass(payload, strings []string) (domain.StringTable, domain.Descriptor, error)
	DecodePackage(payload, strings []string) (domain.StringTable, domain.Descriptor, error)
}

// Codec serializes single metadata records.
//
// Record layout:
//
//	name:     utf
//	isClass:  bool
//	package:  utf            (package parts only)
//	payload:  string array   (encoder output)
//	strings:  string array   (normalized interned strings)
type Codec struct {
	enc Encoder
	dec Decoder
}

// NewCodec creates a record codec over the given metadata collaborators.
func NewCodec(enc Encoder, dec Decoder) *Codec {
	return &Codec{enc: enc, dec: dec}
}

// WriteRecord writes one record. Names are checked the way ReadRawRecord
// checks them, so nothing written here is rejected on load.
func (c *Codec) WriteRecord(w *Writer, name domain.FqName, rec *domain.Record) error {
	if _, err := domain.ParseFqName(name.String()); err != nil {
		return fmt.Errorf("snapshot: record name: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("snapshot: record %s: %w", name, err)
	}

	// Each record carries its own table so it can be decoded in isolation.
	table, err := rec.Table.Normalize()
	if err != nil {
		return fmt.Errorf("snapshot: record %s: %w", name, err)
	}
	payload, err := c.enc.Encode(rec.Kind, rec.Descriptor, table)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", name, err)
	}

	if err := w.WriteUTF(name.String()); err != nil {
		return fmt.Errorf("snapshot: write name %s: %w", name, err)
	}
	if err := w.WriteBool(rec.IsClass()); err != nil {
		return fmt.Errorf("snapshot: write tag %s: %w", name, err)
	}
	if !rec.IsClass() {
		if err := w.WriteUTF(rec.PackageName.String()); err != nil {
			return fmt.Errorf("snapshot: write package %s: %w", name, err)
		}
	}
	if err := w.WriteStringArray(payload); err != nil {
		return fmt.Errorf("snapshot: write payload %s: %w", name, err)
	}
	if err := w.WriteStringArray(table.Strings); err != nil {
		return fmt.Errorf("snapshot: write strings %s: %w", name, err)
	}
	return nil
}

// RawRecord is a record as framed on disk, before the payload is decoded.
type RawRecord struct {
	Name        domain.FqName
	IsClass     bool
	PackageName domain.FqName
	Payload     []string
	Strings     []string
}

// ReadRawRecord reads the framing of one record without decoding its payload.
func ReadRawRecord(r *Reader) (*RawRecord, error) {
	rawName, err := r.ReadUTF()
	if err != nil {
		return nil, err
	}
	name, err := domain.ParseFqName(rawName)
	if err != nil {
		return nil, domain.ErrCorruptSnapshot.WithDetailsf("record name %q", rawName).WithCause(err)
	}

	isClass, err := r.ReadBool()
	if err != nil {
		return nil, err
	}

	raw := &RawRecord{Name: name, IsClass: isClass}
	if !isClass {
		rawPkg, err := r.ReadUTF()
		if err != nil {
			return nil, err
		}
		pkg, err := domain.ParseFqName(rawPkg)
		if err != nil {
			return nil, domain.ErrCorruptSnapshot.WithDetailsf("package of %s", name).WithCause(err)
		}
		if pkg.IsRoot() {
			return nil, domain.ErrCorruptSnapshot.WithDetailsf("package part %s has no package name", name)
		}
		raw.PackageName = pkg
	}

	if raw.Payload, err = r.ReadStringArray(); err != nil {
		return nil, err
	}
	if raw.Strings, err = r.ReadStringArray(); err != nil {
		return nil, err
	}
	return raw, nil
}

// ReadRecord reads and decodes one record. Any malformed input, including a
// decoder failure, is reported as domain.ErrCorruptSnapshot.
func (c *Codec) ReadRecord(r *Reader) (domain.FqName, *domain.Record, error) {
	raw, err := ReadRawRecord(r)
	if err != nil {
		return "", nil, err
	}
	rec, err := c.Decode(raw)
	if err != nil {
		return "", nil, err
	}
	return raw.Name, rec, nil
}

// Decode runs the decoder selected by the record tag.
func (c *Codec) Decode(raw *RawRecord) (*domain.Record, error) {
	if raw.IsClass {
		table, desc, err := c.dec.DecodeClass(raw.Payload, raw.Strings)
		if err != nil {
			return nil, domain.ErrCorruptSnapshot.WithDetailsf("decode class %s", raw.Name).WithCause(err)
		}
		return domain.NewClassRecord(desc, table), nil
	}

	table, desc, err := c.dec.DecodePackage(raw.Payload, raw.Strings)
	if err != nil {
		return nil, domain.ErrCorruptSnapshot.WithDetailsf("decode package part %s", raw.Name).WithCause(err)
	}
	return domain.NewPackagePartRecord(desc, table, raw.PackageName), nil
}
