package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

func itoa(i int) string { return strconv.Itoa(i) }

// Disassemble renders m as text, one class after another.
func Disassemble(m *Module) string {
	var sb strings.Builder
	if m.Build != "" {
		fmt.Fprintf(&sb, "// build %s\n", m.Build)
	}
	for i, c := range m.Classes {
		if i > 0 || m.Build != "" {
			sb.WriteByte('\n')
		}
		DisassembleClass(&sb, c)
	}
	return sb.String()
}

// DisassembleClass writes one class.
func DisassembleClass(sb *strings.Builder, c *ClassNode) {
	kind := "class"
	if c.Access.Has(AccInterface) {
		kind = "interface"
	}
	acc := (c.Access &^ (AccInterface | AccSuper)).String()
	if acc != "" {
		acc += " "
	}
	fmt.Fprintf(sb, "%s%s %s", acc, kind, c.Name)
	if c.Super != "" {
		fmt.Fprintf(sb, " extends %s", c.Super)
	}
	if len(c.Interfaces) > 0 {
		fmt.Fprintf(sb, " implements %s", strings.Join(c.Interfaces, ", "))
	}
	sb.WriteString(" {\n")
	if c.Source != "" {
		fmt.Fprintf(sb, "  // source %s\n", c.Source)
	}
	if c.Outer != "" {
		fmt.Fprintf(sb, "  // outer %s\n", c.Outer)
	}
	for _, ic := range c.InnerClasses {
		fmt.Fprintf(sb, "  inner %s", ic.Name)
		if ic.Inner != "" {
			fmt.Fprintf(sb, " %q", ic.Inner)
		}
		sb.WriteByte('\n')
	}
	for _, f := range c.Fields {
		fmt.Fprintf(sb, "  field %s%s %s", prefix(f.Access), f.Name, f.Desc)
		if f.Value != nil {
			fmt.Fprintf(sb, " = %s", formatConst(f.Value))
		}
		sb.WriteByte('\n')
	}
	for _, m := range c.Methods {
		disassembleMethod(sb, m)
	}
	sb.WriteString("}\n")
}

func prefix(a Access) string {
	if s := a.String(); s != "" {
		return s + " "
	}
	return ""
}

func disassembleMethod(sb *strings.Builder, m *MethodNode) {
	fmt.Fprintf(sb, "\n  method %s%s %s", prefix(m.Access), m.Name, m.Desc)
	if m.Code == nil {
		sb.WriteByte('\n')
		return
	}
	fmt.Fprintf(sb, " [locals=%d stack=%d]\n", m.MaxLocals, m.MaxStack)
	targets := map[int]bool{}
	for i := 0; i < m.Code.Len(); i++ {
		if sl := m.Code.At(i); !sl.Pending && sl.Insn.Op.IsJump() {
			targets[sl.Insn.Target] = true
		}
	}
	for _, tc := range m.TryCatch {
		targets[tc.Start], targets[tc.End], targets[tc.Handler] = true, true, true
	}
	for i := 0; i < m.Code.Len(); i++ {
		mark := "   "
		if targets[i] {
			mark = "L" + itoa(i) + ":"
			if len(mark) < 3 {
				mark += " "
			}
		}
		sl := m.Code.At(i)
		text := "<pending>"
		if !sl.Pending {
			text = sl.Insn.String()
		}
		fmt.Fprintf(sb, "  %-6s %4d  %s\n", mark, i, text)
	}
	for _, tc := range m.TryCatch {
		t := tc.Type
		if t == "" {
			t = "any"
		}
		fmt.Fprintf(sb, "    try L%d..L%d -> L%d %s\n", tc.Start, tc.End, tc.Handler, t)
	}
	for _, lv := range m.LocalVars {
		fmt.Fprintf(sb, "    local %d %s %s [%d, %d)\n", lv.Slot, lv.Name, lv.Desc, lv.Start, lv.End)
	}
}
