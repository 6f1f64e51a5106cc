package bytecode

import "sort"

// Access is a set of class, field or method modifier flags.
type Access uint16

const (
	AccPublic    Access = 0x0001
	AccPrivate   Access = 0x0002
	AccProtected Access = 0x0004
	AccStatic    Access = 0x0008
	AccFinal     Access = 0x0010
	AccSuper     Access = 0x0020
	AccBridge    Access = 0x0040
	AccInterface Access = 0x0200
	AccAbstract  Access = 0x0400
	AccSynthetic Access = 0x1000
	AccEnum      Access = 0x4000
)

var accessNames = []struct {
	flag Access
	name string
}{
	{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
	{AccStatic, "static"}, {AccFinal, "final"}, {AccBridge, "bridge"},
	{AccInterface, "interface"}, {AccAbstract, "abstract"},
	{AccSynthetic, "synthetic"}, {AccEnum, "enum"},
}

func (a Access) Has(f Access) bool { return a&f != 0 }

func (a Access) String() string {
	var out string
	for _, n := range accessNames {
		if a.Has(n.flag) {
			if out != "" {
				out += " "
			}
			out += n.name
		}
	}
	return out
}

// Module is the output of one compilation.
type Module struct {
	Build   string // identifier of the compilation that produced the module
	Classes []*ClassNode
}

// Class returns the class with the given internal name.
func (m *Module) Class(name string) *ClassNode {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Sort orders classes by name, which makes output independent of the order
// declarations were generated in.
func (m *Module) Sort() {
	sort.SliceStable(m.Classes, func(i, j int) bool { return m.Classes[i].Name < m.Classes[j].Name })
}

type ClassNode struct {
	Access       Access
	Name         string
	Super        string
	Interfaces   []string
	Fields       []*FieldNode
	Methods      []*MethodNode
	InnerClasses []InnerClass
	Outer        string // enclosing class of a nested, local or anonymous class
	Source       string // source file name
}

// Method returns the method with the given name and descriptor; an empty
// descriptor matches any.
func (c *ClassNode) Method(name, desc string) *MethodNode {
	for _, m := range c.Methods {
		if m.Name == name && (desc == "" || m.Desc == desc) {
			return m
		}
	}
	return nil
}

// Field returns the field with the given name.
func (c *ClassNode) Field(name string) *FieldNode {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type FieldNode struct {
	Access Access
	Name   string
	Desc   string
	Value  any // constant initial value of a static final field
}

type MethodNode struct {
	Access    Access
	Name      string
	Desc      string
	Code      *Stream // nil for abstract methods
	TryCatch  []TryCatchBlock
	LocalVars []LocalVar
	MaxLocals int
	MaxStack  int
}

// TryCatchBlock routes exceptions thrown in [Start, End) to Handler. An
// empty Type catches everything.
type TryCatchBlock struct {
	Start, End, Handler int
	Type                string
}

// LocalVar is a debug name of a slot over [Start, End).
type LocalVar struct {
	Name       string
	Desc       string
	Slot       int
	Start, End int
}

// InnerClass records a nesting relation.
type InnerClass struct {
	Name   string
	Outer  string // empty for local and anonymous classes
	Inner  string // simple name, empty for anonymous classes
	Access Access
}
