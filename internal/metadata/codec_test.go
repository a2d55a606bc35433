package metadata

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/metasnap/internal/core/domain"
)

func sampleClass() *ClassDescriptor {
	return &ClassDescriptor{
		Flags:      6,
		FqName:     0,
		Supertypes: []int32{1, 2},
		Members: []Member{
			{Kind: MemberFunction, Flags: 3, Name: 3},
			{Kind: MemberProperty, Flags: -1, Name: 4},
		},
	}
}

func TestCodec_ClassRoundTrip(t *testing.T) {
	c := NewCodec()
	strs := []string{"a/B", "kotlin/Any", "a/I", "run", "size"}
	qnames := []domain.QualifiedName{{Index: 0}, {Index: 2, Local: true}}

	payload, err := c.Encode(domain.KindClass, sampleClass(), domain.NormalizedTable{Strings: strs, QualifiedNames: qnames})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(payload) != 1 {
		t.Fatalf("expected one chunk, got %d", len(payload))
	}

	table, desc, err := c.DecodeClass(payload, strs)
	if err != nil {
		t.Fatalf("DecodeClass failed: %v", err)
	}
	if table.Shape() != domain.ShapeCompact {
		t.Errorf("Shape = %v, want compact", table.Shape())
	}
	if diff := cmp.Diff(qnames, table.QualifiedNames()); diff != "" {
		t.Errorf("qualified names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sampleClass(), desc); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_PackageRoundTrip(t *testing.T) {
	c := NewCodec()
	strs := []string{"main", "Alias"}
	desc := PackageDescriptor{Members: []Member{
		{Kind: MemberFunction, Name: 0},
		{Kind: MemberTypeAlias, Flags: 1, Name: 1},
	}}

	payload, err := c.Encode(domain.KindPackagePart, desc, domain.NormalizedTable{Strings: strs, QualifiedNames: []domain.QualifiedName{}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	table, got, err := c.DecodePackage(payload, strs)
	if err != nil {
		t.Fatalf("DecodePackage failed: %v", err)
	}
	if len(table.QualifiedNames()) != 0 {
		t.Errorf("expected no qualified names, got %v", table.QualifiedNames())
	}
	if diff := cmp.Diff(&desc, got); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_EncodeRejectsWrongDescriptor(t *testing.T) {
	c := NewCodec()
	table := domain.NormalizedTable{Strings: []string{"x"}}

	tests := []struct {
		name string
		kind domain.RecordKind
		desc domain.Descriptor
	}{
		{"package for class", domain.KindClass, &PackageDescriptor{}},
		{"class for package", domain.KindPackagePart, &ClassDescriptor{}},
		{"nil class", domain.KindClass, (*ClassDescriptor)(nil)},
		{"string", domain.KindClass, "desc"},
		{"unknown kind", domain.RecordKind(9), &ClassDescriptor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Encode(tt.kind, tt.desc, table)
			if !errors.Is(err, ErrUnexpectedDescriptor) {
				t.Fatalf("expected ErrUnexpectedDescriptor, got %v", err)
			}
		})
	}
}

func TestCodec_IndexOutOfRange(t *testing.T) {
	c := NewCodec()
	cd := &ClassDescriptor{FqName: 5}
	_, err := c.Encode(domain.KindClass, cd, domain.NormalizedTable{Strings: []string{"a"}})
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Encode: expected ErrIndexOutOfRange, got %v", err)
	}

	// A valid payload decoded against a shorter string list.
	strs := []string{"a", "b", "c", "d", "e"}
	payload, err := c.Encode(domain.KindClass, sampleClass(), domain.NormalizedTable{Strings: strs})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, _, err := c.DecodeClass(payload, strs[:2]); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("DecodeClass: expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestCodec_DecodeMalformed(t *testing.T) {
	c := NewCodec()
	tests := []struct {
		name    string
		payload []string
	}{
		{"not base64", []string{"!!!"}},
		{"empty", []string{}},
		{"truncated varint", []string{"CP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := c.DecodeClass(tt.payload, nil); err == nil {
				t.Fatal("expected error")
			}
			if _, _, err := c.DecodePackage(tt.payload, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCodec_LargePayloadIsChunked(t *testing.T) {
	c := NewCodec()
	members := make([]Member, 20000)
	for i := range members {
		members[i] = Member{Kind: MemberFunction, Flags: int32(i), Name: 0}
	}
	desc := &PackageDescriptor{Members: members}
	strs := []string{"f"}

	payload, err := c.Encode(domain.KindPackagePart, desc, domain.NormalizedTable{Strings: strs})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(payload) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(payload))
	}
	for i, chunk := range payload {
		if len(chunk) > MaxChunkSize {
			t.Fatalf("chunk %d is %d bytes", i, len(chunk))
		}
	}

	_, got, err := c.DecodePackage(payload, strs)
	if err != nil {
		t.Fatalf("DecodePackage failed: %v", err)
	}
	if n := len(got.(*PackageDescriptor).Members); n != len(members) {
		t.Fatalf("decoded %d members, want %d", n, len(members))
	}
}

func TestCodec_DeterministicOutput(t *testing.T) {
	c := NewCodec()
	table := domain.NormalizedTable{Strings: []string{"a/B", "kotlin/Any", "a/I", "run", "size"}}
	first, err := c.Encode(domain.KindClass, sampleClass(), table)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, _ := c.Encode(domain.KindClass, sampleClass(), table)
	if strings.Join(first, "") != strings.Join(second, "") {
		t.Fatal("encoding is not deterministic")
	}
}

func TestMemberKind_String(t *testing.T) {
	if MemberProperty.String() != "property" {
		t.Errorf("MemberProperty.String() = %q", MemberProperty.String())
	}
}
