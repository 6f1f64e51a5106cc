// Package controlflow builds one pseudocode graph per subroutine: function
// bodies, class initializers, top-level property initializers and accessors.
// Function literals and local functions get nested graphs referenced from a
// local declaration instruction of their parent.
//
// The builder works on syntax alone. Checkers map read and write
// instructions to variables through the binding store.
package controlflow

import (
	"fmt"
	"strings"

	"jetc/internal/frontend/ast"
	"jetc/internal/invariant"
)

// Kind tags an instruction.
type Kind int

const (
	Read Kind = iota
	Write
	Jump
	CondJump
	NondetJump
	Enter
	Exit
	VarDecl
	LocalDecl
	Unsupported
)

var kindNames = [...]string{"r", "w", "jmp", "jf", "jmp?", "<START>", "<END>", "v", "d", "unsupported"}

func (k Kind) String() string { return kindNames[k] }

// JumpKind refines unconditional jumps.
type JumpKind int

const (
	Goto JumpKind = iota
	ReturnValue
	ReturnNoValue
	Throw
)

// ExitKind tells the three synthetic exits apart.
type ExitKind int

const (
	ExitNormal ExitKind = iota
	ExitError
	ExitSink
)

// Label is a jump target. Index is -1 until the label is bound.
type Label struct {
	Name  string
	index int
}

// Index returns the bound instruction index or -1.
func (l *Label) Index() int { return l.index }

// Bound reports whether the label has a target.
func (l *Label) Bound() bool { return l.index >= 0 }

func (l *Label) String() string { return l.Name }

// Instruction is one pseudocode element. Fields beyond Kind and Element are
// meaningful only for the kinds that use them.
type Instruction struct {
	Kind    Kind
	Element ast.Node

	// Write: the assigned expression (a name, qualified or index expression)
	// or nil when Element declares the variable itself.
	Target ast.Node
	// Jump
	Jump JumpKind
	// Jump, CondJump: destination. NondetJump uses Targets.
	Label   *Label
	Targets []*Label
	// CondJump jumps when the condition evaluates to OnTrue.
	OnTrue bool
	// Exit
	Exit ExitKind
	// LocalDecl
	Body *Pseudocode
	// NonLocal marks a return that leaves an enclosing subroutine.
	NonLocal bool

	index int
}

// Index is the instruction's position in its graph.
func (in *Instruction) Index() int { return in.index }

// Pseudocode is the instruction list and label table of one subroutine.
type Pseudocode struct {
	Owner  ast.Node
	Parent *Pseudocode

	instrs []*Instruction
	labels []*Label
	locals []*Pseudocode

	exit, errLabel, sink *Label
	sealed               bool
	preds                [][]int
}

func newPseudocode(owner ast.Node, parent *Pseudocode) *Pseudocode {
	p := &Pseudocode{Owner: owner, Parent: parent}
	p.exit = p.newLabel("exit")
	p.errLabel = p.newLabel("error")
	p.sink = p.newLabel("sink")
	return p
}

func (p *Pseudocode) newLabel(name string) *Label {
	l := &Label{Name: fmt.Sprintf("L%d [%s]", len(p.labels), name), index: -1}
	p.labels = append(p.labels, l)
	return l
}

func (p *Pseudocode) add(in *Instruction) *Instruction {
	if p.sealed {
		invariant.Failf("emitting into sealed pseudocode of %T", p.Owner)
	}
	in.index = len(p.instrs)
	p.instrs = append(p.instrs, in)
	return in
}

func (p *Pseudocode) bind(l *Label) {
	if l.index >= 0 {
		invariant.Failf("label %s bound twice", l.Name)
	}
	l.index = len(p.instrs)
}

// seal binds the synthetic exits and verifies that every jump target is
// bound.
func (p *Pseudocode) seal() {
	p.bind(p.exit)
	p.add(&Instruction{Kind: Exit, Exit: ExitNormal, Element: p.Owner})
	p.bind(p.errLabel)
	p.add(&Instruction{Kind: Exit, Exit: ExitError, Element: p.Owner})
	p.bind(p.sink)
	p.add(&Instruction{Kind: Exit, Exit: ExitSink, Element: p.Owner})

	for _, in := range p.instrs {
		if in.Label != nil && !in.Label.Bound() {
			invariant.Failf("unbound label %s at instruction %d", in.Label.Name, in.index)
		}
		for _, l := range in.Targets {
			if !l.Bound() {
				invariant.Failf("unbound label %s at instruction %d", l.Name, in.index)
			}
		}
	}
	p.sealed = true

	p.preds = make([][]int, len(p.instrs))
	for i := range p.instrs {
		for _, s := range p.Successors(i) {
			p.preds[s] = append(p.preds[s], i)
		}
	}
}

// Sealed reports whether the graph is complete.
func (p *Pseudocode) Sealed() bool { return p.sealed }

// Instructions returns the instruction list.
func (p *Pseudocode) Instructions() []*Instruction { return p.instrs }

// Labels returns every label allocated for this graph.
func (p *Pseudocode) Labels() []*Label { return p.labels }

// Locals returns the graphs of function literals and local functions
// declared directly in this subroutine.
func (p *Pseudocode) Locals() []*Pseudocode { return p.locals }

// ExitIndex, ErrorIndex and SinkIndex locate the synthetic exits.
func (p *Pseudocode) ExitIndex() int  { return p.exit.index }
func (p *Pseudocode) ErrorIndex() int { return p.errLabel.index }
func (p *Pseudocode) SinkIndex() int  { return p.sink.index }

// Successors returns the indices control may reach from instruction i.
func (p *Pseudocode) Successors(i int) []int {
	in := p.instrs[i]
	switch in.Kind {
	case Jump:
		return []int{in.Label.index}
	case CondJump:
		return []int{i + 1, in.Label.index}
	case NondetJump:
		out := []int{i + 1}
		for _, l := range in.Targets {
			out = append(out, l.index)
		}
		return out
	case Exit:
		if in.Exit == ExitSink {
			return nil
		}
		return []int{p.sink.index}
	}
	return []int{i + 1}
}

// Predecessors returns the indices that may transfer control to i. Only
// available once sealed.
func (p *Pseudocode) Predecessors(i int) []int { return p.preds[i] }

// String renders the graph in a compact text form, one instruction per line,
// with label bindings on their own lines.
func (p *Pseudocode) String() string {
	var sb strings.Builder
	byIndex := map[int][]*Label{}
	for _, l := range p.labels {
		if l.Bound() {
			byIndex[l.index] = append(byIndex[l.index], l)
		}
	}
	for i, in := range p.instrs {
		for _, l := range byIndex[i] {
			fmt.Fprintf(&sb, "%s:\n", l.Name)
		}
		fmt.Fprintf(&sb, "    %s\n", in)
	}
	return sb.String()
}

func (in *Instruction) String() string {
	switch in.Kind {
	case Jump:
		prefix := "jmp"
		switch in.Jump {
		case ReturnValue:
			prefix = "ret(*)"
		case ReturnNoValue:
			prefix = "ret"
		case Throw:
			prefix = "throw"
		}
		return prefix + " " + in.Label.Name
	case CondJump:
		if in.OnTrue {
			return "jt " + in.Label.Name
		}
		return "jf " + in.Label.Name
	case NondetJump:
		names := make([]string, len(in.Targets))
		for i, l := range in.Targets {
			names[i] = l.Name
		}
		return "jmp? " + strings.Join(names, ", ")
	case Exit:
		return [...]string{"<END>", "<ERROR>", "<SINK>"}[in.Exit]
	case Enter:
		return "<START>"
	case LocalDecl:
		return "d(" + describe(in.Element) + ")"
	}
	return in.Kind.String() + "(" + describe(in.Element) + ")"
}

func describe(n ast.Node) string {
	switch n := n.(type) {
	case nil:
		return ""
	case *ast.NameExpr:
		return n.Name
	case *ast.Literal:
		return n.Value
	case *ast.ThisExpr:
		return "this"
	case *ast.PropertyDecl:
		return n.Name.Name
	case *ast.Param:
		return n.Name.Name
	case *ast.FunDecl:
		return "fun " + n.Name.Name
	case *ast.AssignExpr:
		return describe(n.Target)
	case *ast.BinaryExpr:
		return describe(n.X) + " " + n.Op.String() + " " + describe(n.Y)
	case *ast.CallExpr:
		return describe(n.Callee) + "(...)"
	case *ast.QualifiedExpr:
		return describe(n.Receiver) + "." + describe(n.Selector)
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
}
