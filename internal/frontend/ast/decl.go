package ast

import (
	"jetc/internal/source"
)

// Visibility as written in source. VisibilityDefault lets the resolver pick
// the context-dependent default.
type Visibility int

const (
	VisibilityDefault Visibility = iota
	VisibilityPublic
	VisibilityInternal
	VisibilityProtected
	VisibilityPrivate
)

// Modifiers collects the modifier keywords on a declaration.
type Modifiers struct {
	Visibility Visibility
	Open       bool
	Abstract   bool
	Final      bool
	Override   bool
}

// File represents one Jet source file.
type File struct {
	Path    string
	Package string // dotted, "" for the root package
	Imports []*Import
	Decls   []Decl
	source.Location
}

func (f *File) INode()                {}
func (f *File) Loc() *source.Location { return &f.Location }

// Import is `import a.b.C`, `import a.b.*` or `import a.b.C as D`.
type Import struct {
	Path  string
	Alias string
	All   bool
	source.Location
}

func (i *Import) INode()                {}
func (i *Import) Loc() *source.Location { return &i.Location }

// ClassKind distinguishes the class-like declarations.
type ClassKind int

const (
	ClassKindClass ClassKind = iota
	ClassKindTrait
	ClassKindEnum
	ClassKindObject
)

func (k ClassKind) String() string {
	switch k {
	case ClassKindTrait:
		return "trait"
	case ClassKindEnum:
		return "enum class"
	case ClassKindObject:
		return "object"
	default:
		return "class"
	}
}

// ClassDecl represents class, trait, enum class and object declarations.
// Anonymous object literals reuse it with a nil Name.
type ClassDecl struct {
	Kind       ClassKind
	Mods       Modifiers
	Name       *Ident
	TypeParams []*TypeParam
	// Params are the primary constructor parameters; HasPrimaryCtor is false
	// for traits and objects.
	Params         []*Param
	HasPrimaryCtor bool
	Supers         []*SuperEntry
	Members        []Decl
	Entries        []*EnumEntry
	source.Location
}

func (c *ClassDecl) INode()                {}
func (c *ClassDecl) Decl()                 {}
func (c *ClassDecl) Loc() *source.Location { return &c.Location }

// SuperEntry is one element of the supertype list. Call is true when the
// entry invokes a superclass constructor (`: Base(1)`).
type SuperEntry struct {
	Type *UserType
	Args []*Argument
	Call bool
	source.Location
}

func (s *SuperEntry) INode()                {}
func (s *SuperEntry) Loc() *source.Location { return &s.Location }

// EnumEntry is a value of an enum class, optionally with its own body.
type EnumEntry struct {
	Name    *Ident
	Args    []*Argument
	Members []Decl
	source.Location
}

func (e *EnumEntry) INode()                {}
func (e *EnumEntry) Decl()                 {}
func (e *EnumEntry) Loc() *source.Location { return &e.Location }

// Initializer is an anonymous initializer block in a class body.
type Initializer struct {
	Body *Block
	source.Location
}

func (i *Initializer) INode()                {}
func (i *Initializer) Decl()                 {}
func (i *Initializer) Loc() *source.Location { return &i.Location }

// ParamBinding tells whether a primary constructor parameter is also a property.
type ParamBinding int

const (
	ParamPlain ParamBinding = iota
	ParamVal
	ParamVar
)

// Param is a value parameter of a function, constructor, lambda, catch or for loop.
type Param struct {
	Mods    Modifiers
	Binding ParamBinding
	Name    *Ident
	Type    TypeNode // nil for untyped lambda / for-loop parameters
	Default Expression
	source.Location
}

func (p *Param) INode()                {}
func (p *Param) Decl()                 {}
func (p *Param) Loc() *source.Location { return &p.Location }

// TypeParam is a declared type parameter, `out T : Bound`.
type TypeParam struct {
	Name     *Ident
	Variance Variance
	Bound    TypeNode
	source.Location
}

func (t *TypeParam) INode()                {}
func (t *TypeParam) Loc() *source.Location { return &t.Location }

// FunDecl represents named functions: members, top-level, local and extensions.
type FunDecl struct {
	Mods       Modifiers
	TypeParams []*TypeParam
	Receiver   TypeNode // extension receiver, nil otherwise
	Name       *Ident
	Params     []*Param
	Result     TypeNode   // nil means Unit for block bodies, inferred for expression bodies
	Body       Expression // nil for abstract/trait members
	ExprBody   bool
	source.Location
}

func (f *FunDecl) INode()                {}
func (f *FunDecl) Decl()                 {}
func (f *FunDecl) Loc() *source.Location { return &f.Location }

// PropertyDecl is `val`/`var` at top level, in a class body or in a block.
type PropertyDecl struct {
	Mods   Modifiers
	Var    bool
	Name   *Ident
	Type   TypeNode
	Init   Expression
	Getter *Accessor
	Setter *Accessor
	source.Location
}

func (p *PropertyDecl) INode()                {}
func (p *PropertyDecl) Decl()                 {}
func (p *PropertyDecl) Loc() *source.Location { return &p.Location }

// Accessor is a custom getter or setter.
type Accessor struct {
	Param    *Param // setter value parameter
	Body     Expression
	ExprBody bool
	source.Location
}

func (a *Accessor) INode()                {}
func (a *Accessor) Loc() *source.Location { return &a.Location }
