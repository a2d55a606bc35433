package metadata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/metasnap/internal/core/domain"
)

// MaxChunkSize is the largest payload chunk, matching the string field limit.
const MaxChunkSize = 0xFFFF

// Payload field numbers.
const (
	fieldStringTable protowire.Number = 1
	fieldDescriptor  protowire.Number = 2

	fieldQualifiedName protowire.Number = 1
	fieldQNIndex       protowire.Number = 1
	fieldQNLocal       protowire.Number = 2

	fieldClassFlags     protowire.Number = 1
	fieldClassFqName    protowire.Number = 2
	fieldClassSupertype protowire.Number = 3
	fieldMember         protowire.Number = 4
	fieldMemberKind     protowire.Number = 1
	fieldMemberFlags    protowire.Number = 2
	fieldMemberName     protowire.Number = 3
)

var (
	ErrUnexpectedDescriptor = errors.New("metadata: unexpected descriptor type")
	ErrIndexOutOfRange      = errors.New("metadata: string index out of range")
	ErrMissingField         = errors.New("metadata: missing payload field")
)

// Codec implements the snapshot Encoder and Decoder for ClassDescriptor and
// PackageDescriptor values.
type Codec struct{}

// NewCodec returns a descriptor codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode serializes desc together with the table's qualified-name index.
func (c *Codec) Encode(kind domain.RecordKind, desc domain.Descriptor, table domain.NormalizedTable) ([]string, error) {
	if err := checkQualifiedNames(table.QualifiedNames, len(table.Strings)); err != nil {
		return nil, err
	}

	var body []byte
	switch kind {
	case domain.KindClass:
		cd, ok := asClass(desc)
		if !ok {
			return nil, fmt.Errorf("%w: %T for class record", ErrUnexpectedDescriptor, desc)
		}
		if err := cd.check(len(table.Strings)); err != nil {
			return nil, err
		}
		body = appendClass(nil, cd)
	case domain.KindPackagePart:
		pd, ok := asPackage(desc)
		if !ok {
			return nil, fmt.Errorf("%w: %T for package part", ErrUnexpectedDescriptor, desc)
		}
		if err := checkMembers(pd.Members, len(table.Strings)); err != nil {
			return nil, err
		}
		body = appendMembers(nil, pd.Members)
	default:
		return nil, fmt.Errorf("%w: record kind %d", ErrUnexpectedDescriptor, kind)
	}

	var b []byte
	b = protowire.AppendTag(b, fieldStringTable, protowire.BytesType)
	b = protowire.AppendBytes(b, appendStringTable(nil, table.QualifiedNames))
	b = protowire.AppendTag(b, fieldDescriptor, protowire.BytesType)
	b = protowire.AppendBytes(b, body)

	return toChunks(b), nil
}

// DecodeClass rebuilds a class descriptor and its compact string table.
func (c *Codec) DecodeClass(payload, strs []string) (domain.StringTable, domain.Descriptor, error) {
	qnames, body, err := splitPayload(payload, len(strs))
	if err != nil {
		return domain.StringTable{}, nil, err
	}
	cd, err := parseClass(body)
	if err != nil {
		return domain.StringTable{}, nil, err
	}
	if err := cd.check(len(strs)); err != nil {
		return domain.StringTable{}, nil, err
	}
	return domain.NewCompactTable(strs, qnames), cd, nil
}

// DecodePackage rebuilds a package descriptor and its compact string table.
func (c *Codec) DecodePackage(payload, strs []string) (domain.StringTable, domain.Descriptor, error) {
	qnames, body, err := splitPayload(payload, len(strs))
	if err != nil {
		return domain.StringTable{}, nil, err
	}
	members, err := parseMembers(body, nil)
	if err != nil {
		return domain.StringTable{}, nil, err
	}
	if err := checkMembers(members, len(strs)); err != nil {
		return domain.StringTable{}, nil, err
	}
	return domain.NewCompactTable(strs, qnames), &PackageDescriptor{Members: members}, nil
}

func asClass(desc domain.Descriptor) (*ClassDescriptor, bool) {
	switch d := desc.(type) {
	case *ClassDescriptor:
		return d, d != nil
	case ClassDescriptor:
		return &d, true
	}
	return nil, false
}

func asPackage(desc domain.Descriptor) (*PackageDescriptor, bool) {
	switch d := desc.(type) {
	case *PackageDescriptor:
		return d, d != nil
	case PackageDescriptor:
		return &d, true
	}
	return nil, false
}

func toChunks(b []byte) []string {
	text := base64.RawStdEncoding.EncodeToString(b)
	chunks := make([]string, 0, len(text)/MaxChunkSize+1)
	for len(text) > MaxChunkSize {
		chunks = append(chunks, text[:MaxChunkSize])
		text = text[MaxChunkSize:]
	}
	return append(chunks, text)
}

func fromChunks(chunks []string) ([]byte, error) {
	b, err := base64.RawStdEncoding.DecodeString(strings.Join(chunks, ""))
	if err != nil {
		return nil, fmt.Errorf("metadata: payload encoding: %w", err)
	}
	return b, nil
}

func checkIndex(i int32, n int) error {
	if i < 0 || int(i) >= n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, n)
	}
	return nil
}

func checkQualifiedNames(qnames []domain.QualifiedName, n int) error {
	for _, qn := range qnames {
		if err := checkIndex(qn.Index, n); err != nil {
			return err
		}
	}
	return nil
}

func checkMembers(members []Member, n int) error {
	for _, m := range members {
		if err := checkIndex(m.Name, n); err != nil {
			return err
		}
	}
	return nil
}

func (cd *ClassDescriptor) check(n int) error {
	if err := checkIndex(cd.FqName, n); err != nil {
		return err
	}
	for _, st := range cd.Supertypes {
		if err := checkIndex(st, n); err != nil {
			return err
		}
	}
	return checkMembers(cd.Members, n)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendStringTable(b []byte, qnames []domain.QualifiedName) []byte {
	for _, qn := range qnames {
		var rec []byte
		rec = appendInt32(rec, fieldQNIndex, qn.Index)
		if qn.Local {
			rec = protowire.AppendTag(rec, fieldQNLocal, protowire.VarintType)
			rec = protowire.AppendVarint(rec, protowire.EncodeBool(true))
		}
		b = protowire.AppendTag(b, fieldQualifiedName, protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}
	return b
}

func appendMembers(b []byte, members []Member) []byte {
	for _, m := range members {
		var rec []byte
		rec = appendInt32(rec, fieldMemberKind, int32(m.Kind))
		rec = appendInt32(rec, fieldMemberFlags, m.Flags)
		rec = appendInt32(rec, fieldMemberName, m.Name)
		b = protowire.AppendTag(b, fieldMember, protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}
	return b
}

func appendClass(b []byte, cd *ClassDescriptor) []byte {
	b = appendInt32(b, fieldClassFlags, cd.Flags)
	b = appendInt32(b, fieldClassFqName, cd.FqName)
	for _, st := range cd.Supertypes {
		b = appendInt32(b, fieldClassSupertype, st)
	}
	return appendMembers(b, cd.Members)
}

// field is one decoded protobuf field.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// eachField walks the top-level fields of b. Unknown wire types are skipped.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("metadata: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("metadata: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func splitPayload(payload []string, nstrings int) ([]domain.QualifiedName, []byte, error) {
	raw, err := fromChunks(payload)
	if err != nil {
		return nil, nil, err
	}

	var (
		table, body         []byte
		haveTable, haveBody bool
	)
	err = eachField(raw, func(f field) error {
		switch {
		case f.num == fieldStringTable && f.typ == protowire.BytesType:
			table, haveTable = f.bytes, true
		case f.num == fieldDescriptor && f.typ == protowire.BytesType:
			body, haveBody = f.bytes, true
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !haveTable || !haveBody {
		return nil, nil, ErrMissingField
	}

	qnames, err := parseStringTable(table)
	if err != nil {
		return nil, nil, err
	}
	if err := checkQualifiedNames(qnames, nstrings); err != nil {
		return nil, nil, err
	}
	return qnames, body, nil
}

func parseStringTable(b []byte) ([]domain.QualifiedName, error) {
	qnames := []domain.QualifiedName{}
	err := eachField(b, func(f field) error {
		if f.num != fieldQualifiedName || f.typ != protowire.BytesType {
			return nil
		}
		var qn domain.QualifiedName
		err := eachField(f.bytes, func(g field) error {
			if g.typ != protowire.VarintType {
				return nil
			}
			switch g.num {
			case fieldQNIndex:
				qn.Index = int32(g.varint)
			case fieldQNLocal:
				qn.Local = protowire.DecodeBool(g.varint)
			}
			return nil
		})
		if err != nil {
			return err
		}
		qnames = append(qnames, qn)
		return nil
	})
	return qnames, err
}

func parseMember(b []byte) (Member, error) {
	var m Member
	err := eachField(b, func(f field) error {
		if f.typ != protowire.VarintType {
			return nil
		}
		switch f.num {
		case fieldMemberKind:
			m.Kind = MemberKind(int32(f.varint))
		case fieldMemberFlags:
			m.Flags = int32(f.varint)
		case fieldMemberName:
			m.Name = int32(f.varint)
		}
		return nil
	})
	return m, err
}

// parseMembers collects member fields of b. If other is non-nil it receives
// every non-member field.
func parseMembers(b []byte, other func(f field) error) ([]Member, error) {
	var members []Member
	err := eachField(b, func(f field) error {
		if f.num == fieldMember && f.typ == protowire.BytesType {
			m, err := parseMember(f.bytes)
			if err != nil {
				return err
			}
			members = append(members, m)
			return nil
		}
		if other != nil {
			return other(f)
		}
		return nil
	})
	return members, err
}

func parseClass(b []byte) (*ClassDescriptor, error) {
	cd := &ClassDescriptor{}
	members, err := parseMembers(b, func(f field) error {
		if f.typ != protowire.VarintType {
			return nil
		}
		switch f.num {
		case fieldClassFlags:
			cd.Flags = int32(f.varint)
		case fieldClassFqName:
			cd.FqName = int32(f.varint)
		case fieldClassSupertype:
			cd.Supertypes = append(cd.Supertypes, int32(f.varint))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cd.Members = members
	return cd, nil
}
