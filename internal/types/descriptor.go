package types

import (
	"jetc/internal/frontend/ast"
	"jetc/internal/source"
)

// ID is a stable handle into a Table. The zero ID refers to nothing.
type ID int32

// NoID is the absent handle.
const NoID ID = 0

// Kind of a descriptor.
type Kind uint8

const (
	KindClass Kind = iota + 1
	KindFunction
	KindConstructor
	KindVariable
	KindTypeParam
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindConstructor:
		return "constructor"
	case KindVariable:
		return "variable"
	case KindTypeParam:
		return "type parameter"
	case KindPackage:
		return "package"
	}
	return "invalid"
}

type Visibility uint8

const (
	Public Visibility = iota
	Internal
	Protected
	Private
)

func (v Visibility) String() string {
	return [...]string{"public", "internal", "protected", "private"}[v]
}

type Modality uint8

const (
	Final Modality = iota
	Open
	Abstract
)

// Variance of a declared type parameter.
type Variance uint8

const (
	Invariant Variance = iota
	In
	Out
)

func (v Variance) String() string {
	switch v {
	case In:
		return "in"
	case Out:
		return "out"
	}
	return ""
}

// ClassKind distinguishes class-like descriptors.
type ClassKind uint8

const (
	ClassOrdinary ClassKind = iota
	ClassTrait
	ClassEnum
	ClassEnumEntry
	ClassObject
	ClassAnonymous
)

// Storage is where a variable lives.
type Storage uint8

const (
	StorageLocal Storage = iota
	StorageParameter
	StorageProperty
	StorageTopLevel
)

// Descriptor is a node of the semantic graph. Kind-specific data lives in
// exactly one of the pointer fields. Descriptors are owned by a Table and
// must only be modified through Table.Update.
type Descriptor struct {
	id         ID
	Kind       Kind
	Name       string
	Owner      ID
	Visibility Visibility
	Modality   Modality
	Static     bool
	Loc        *source.Location
	Decl       ast.Node // declaring node, nil for built-ins

	Class     *ClassInfo
	Func      *FuncInfo
	Var       *VarInfo
	TypeParam *TypeParamInfo
	Package   *PackageInfo
}

// ID returns the handle the descriptor was registered under.
func (d *Descriptor) ID() ID { return d.id }

type ClassInfo struct {
	Kind         ClassKind
	TypeParams   []ID
	Supertypes   []*Type
	Members      []ID // functions, properties and nested classes in declaration order
	Ctors        []ID
	Primary      ID
	Entries      []ID // enum entries, each a ClassEnumEntry descriptor
	Ordinal      int  // enum entry position
	InternalName string
	Local        bool
}

type FuncInfo struct {
	TypeParams []ID
	Params     []ID
	Receiver   *Type // extension receiver
	Result     *Type
	Intrinsic  string
	Local      bool
	Operator   bool
}

type VarInfo struct {
	Mutable      bool
	Storage      Storage
	Type         *Type
	CustomGetter bool
	CustomSetter bool
	HasDefault   bool
	Index        int
	Intrinsic    string
}

type TypeParamInfo struct {
	Variance Variance
	Bounds   []*Type
	Index    int
}

type PackageInfo struct {
	FQName  string
	Members []ID
}

// IsTrait reports a trait class descriptor.
func (d *Descriptor) IsTrait() bool {
	return d.Kind == KindClass && d.Class.Kind == ClassTrait
}

// IsObject reports singleton classes: objects and enum entries.
func (d *Descriptor) IsObject() bool {
	return d.Kind == KindClass && (d.Class.Kind == ClassObject || d.Class.Kind == ClassEnumEntry)
}

// IsFinal reports whether the declaration cannot be overridden or subclassed.
func (d *Descriptor) IsFinal() bool {
	return d.Modality == Final
}

// IsCallable reports functions and constructors.
func (d *Descriptor) IsCallable() bool {
	return d.Kind == KindFunction || d.Kind == KindConstructor
}
