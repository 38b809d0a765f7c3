// Package cli provides the small command framework quilt's binary is built
// on: named commands with positional arguments and typed flags, dispatched
// from os.Args into a Context the command handler runs against.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// App is a CLI application: a named set of commands, each with positional
// arguments and typed flags, invoked via Run against os.Args.
type App struct {
	name        string
	description string
	version     string

	commands map[string]*Command
	order    []string // registration order, for help text

	stdout, stderr io.Writer
}

// New creates a new CLI application.
func New(name, description string) *App {
	return &App{
		name:        name,
		description: description,
		commands:    make(map[string]*Command),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

// Version sets the application version, printed by the built-in "version"
// command.
func (a *App) Version(v string) *App {
	a.version = v
	return a
}

// Command registers a new command and returns it for further configuration
// via its builder methods (Args, Flags, Run, ...).
func (a *App) Command(name, description string) *Command {
	cmd := newCommand(name, description, a)
	a.commands[name] = cmd
	a.order = append(a.order, name)
	return cmd
}

// Run executes the application against os.Args.
func (a *App) Run() error {
	return a.RunContext(context.Background(), os.Args[1:])
}

// RunArgs executes the application against the given arguments.
func (a *App) RunArgs(args []string) error {
	return a.RunContext(context.Background(), args)
}

// RunContext executes the application with an explicit context, threaded
// through to the handler via Context.Context for cancellation.
func (a *App) RunContext(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printHelp()
		return nil
	}

	switch args[0] {
	case "help":
		a.printHelp()
		return nil
	case "-h", "--help":
		a.printHelp()
		return &HelpRequested{}
	case "version":
		if a.version != "" {
			fmt.Fprintln(a.stdout, a.version)
		}
		return nil
	}

	cmd, ok := a.commands[args[0]]
	if !ok {
		return &ExitError{
			Code:    2,
			Message: fmt.Sprintf("%s: unknown command %q\n\nRun '%s help' for usage", a.name, args[0], a.name),
		}
	}
	return cmd.run(ctx, args[1:])
}

func (a *App) printHelp() {
	var b strings.Builder

	b.WriteString(a.name)
	if a.description != "" {
		b.WriteString(" - ")
		b.WriteString(a.description)
	}
	b.WriteString("\n\n")

	if a.version != "" {
		fmt.Fprintf(&b, "Version: %s\n\n", a.version)
	}

	fmt.Fprintf(&b, "Usage:\n  %s <command> [flags] [args]\n\n", a.name)

	names := make([]string, len(a.order))
	copy(names, a.order)
	sort.Strings(names)

	b.WriteString("Commands:\n")
	for _, name := range names {
		if cmd := a.commands[name]; !cmd.hidden {
			fmt.Fprintf(&b, "  %-12s %s\n", name, cmd.description)
		}
	}

	fmt.Fprintf(&b, "\nRun '%s <command> --help' for more information on a command.\n", a.name)
	fmt.Fprint(a.stdout, b.String())
}
