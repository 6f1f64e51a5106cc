package pipeline

import (
	"fmt"

	"jetc/colors"
)

// PrintSummary prints a summary of the compilation
func (p *Pipeline) PrintSummary() {
	fmt.Println()
	colors.CYAN.Println("═══════════════════════════════════════")
	colors.CYAN.Println("        COMPILATION SUMMARY")
	colors.CYAN.Println("═══════════════════════════════════════")

	fmt.Printf("Build: %s\n", p.ctx.BuildID)
	fmt.Printf("Total Units: %d\n\n", p.ctx.UnitCount())

	for _, name := range p.ctx.UnitNames() {
		if u, exists := p.ctx.GetUnit(name); exists {
			state := u.Phase.String()
			if u.Failed {
				state += ", failed"
			}
			pkg := u.Package
			if pkg == "" {
				pkg = "<root>"
			}
			fmt.Printf(" - %s (%s, %s)\n", name, pkg, state)
		}
	}
}
