package cli

import (
	"fmt"
	"strings"
)

// renderCommandHelp renders plain-text help for a single command: usage
// line, arguments, and flags.
func renderCommandHelp(c *Command) string {
	var sb strings.Builder

	sb.WriteString(c.name)
	sb.WriteString(" - ")
	sb.WriteString(c.description)
	sb.WriteString("\n\n")

	if c.longDesc != "" {
		sb.WriteString(c.longDesc)
		sb.WriteString("\n\n")
	}

	if c.deprecated != "" {
		sb.WriteString("DEPRECATED: ")
		sb.WriteString(c.deprecated)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Usage:\n  ")
	if c.app != nil {
		sb.WriteString(c.app.name)
		sb.WriteString(" ")
	}
	sb.WriteString(c.name)
	if len(c.flags) > 0 {
		sb.WriteString(" [flags]")
	}
	for _, arg := range c.args {
		if arg.Required {
			fmt.Fprintf(&sb, " <%s>", arg.Name)
		} else {
			fmt.Fprintf(&sb, " [%s]", arg.Name)
		}
	}
	sb.WriteString("\n\n")

	if len(c.args) > 0 {
		sb.WriteString("Arguments:\n")
		for _, arg := range c.args {
			fmt.Fprintf(&sb, "  %-15s %s", arg.Name, arg.Description)
			if !arg.Required {
				sb.WriteString(" (optional)")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(c.flags) > 0 {
		sb.WriteString("Flags:\n")
		writeFlagsHelp(&sb, c.flags)
	}

	return sb.String()
}

// writeFlagsHelp writes help text for a slice of flags with aligned names.
func writeFlagsHelp(sb *strings.Builder, flags []Flag) {
	maxNameLen := 0
	for _, f := range flags {
		if f.IsHidden() {
			continue
		}
		if len(f.GetName()) > maxNameLen {
			maxNameLen = len(f.GetName())
		}
	}

	for _, f := range flags {
		if f.IsHidden() {
			continue
		}
		writeFlagHelp(sb, f, maxNameLen)
	}
}

func writeFlagHelp(sb *strings.Builder, f Flag, nameWidth int) {
	sb.WriteString("  ")
	if f.GetShort() != "" {
		fmt.Fprintf(sb, "-%s, ", f.GetShort())
	} else {
		sb.WriteString("    ")
	}
	fmt.Fprintf(sb, "--%-*s", nameWidth, f.GetName())
	sb.WriteString(" ")
	sb.WriteString(f.GetHelp())

	def := f.GetDefault()
	if def != nil && def != "" && def != false && def != 0 {
		fmt.Fprintf(sb, " (default: %v)", def)
	}
	if f.IsRequired() {
		sb.WriteString(" (required)")
	}
	if enum := f.GetEnum(); len(enum) > 0 {
		fmt.Fprintf(sb, " [%s]", strings.Join(enum, "|"))
	}
	sb.WriteString("\n")
}
