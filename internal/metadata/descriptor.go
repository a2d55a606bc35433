package metadata

// MemberKind identifies a declaration inside a class or package.
type MemberKind int32

const (
	MemberFunction MemberKind = iota + 1
	MemberProperty
	MemberConstructor
	MemberTypeAlias
)

// String implements fmt.Stringer.
func (k MemberKind) String() string {
	switch k {
	case MemberFunction:
		return "function"
	case MemberProperty:
		return "property"
	case MemberConstructor:
		return "constructor"
	case MemberTypeAlias:
		return "typealias"
	default:
		return "unknown"
	}
}

// Member is one declaration. Name indexes the interned strings.
type Member struct {
	Kind  MemberKind
	Flags int32
	Name  int32
}

// ClassDescriptor describes a compiled class.
type ClassDescriptor struct {
	Flags      int32
	FqName     int32
	Supertypes []int32
	Members    []Member
}

// PackageDescriptor describes the top-level declarations of a package part.
type PackageDescriptor struct {
	Members []Member
}
