package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Handler is the function type for command handlers.
//
// Handlers receive a Context containing parsed flags, arguments, and
// I/O streams. They should return nil on success or an error on failure:
//
//	func myHandler(ctx *cli.Context) error {
//	    name := ctx.Arg(0)
//	    verbose := ctx.Bool("verbose")
//	    ctx.Printf("Processing %s (verbose=%v)\n", name, verbose)
//	    return nil
//	}
type Handler func(*Context) error

// Command represents a CLI command with its configuration and handler.
//
// Commands are created through App.Command() and configured using the
// fluent builder pattern:
//
//	app.Command("apply", "Apply a patch").
//	    Args("patch").
//	    Flags(cli.Bool("dry-run", "").Help("Preview without applying")).
//	    Run(func(ctx *cli.Context) error {
//	        patch := ctx.Arg(0)
//	        return nil
//	    })
type Command struct {
	name        string
	description string
	longDesc    string
	app         *App

	handler Handler

	flags []Flag
	args  []*Arg

	hidden     bool
	deprecated string

	validators []func(*Context) error
}

// newCommand creates a new command.
func newCommand(name, description string, app *App) *Command {
	return &Command{
		name:        name,
		description: description,
		app:         app,
		flags:       make([]Flag, 0),
		args:        make([]*Arg, 0),
	}
}

// Description sets the command description.
func (c *Command) Description(desc string) *Command {
	c.description = desc
	return c
}

// Args sets the positional argument names for the command.
//
// Arguments are processed in order. Append "?" to make an argument optional:
//
//	cmd.Args("source", "dest?")  // source required, dest optional
//
// Access arguments in the handler using ctx.Arg(index) or ctx.Args().
func (c *Command) Args(names ...string) *Command {
	for _, name := range names {
		required := true
		if strings.HasSuffix(name, "?") {
			name = strings.TrimSuffix(name, "?")
			required = false
		}
		c.args = append(c.args, &Arg{
			Name:     name,
			Required: required,
		})
	}
	return c
}

// Flags adds typed flags to the command.
//
//	cmd.Flags(
//	    cli.String("format", "f").Default("text").Enum("text", "json"),
//	    cli.Bool("verbose", "v").Help("Verbose output"),
//	)
func (c *Command) Flags(flags ...Flag) *Command {
	c.flags = append(c.flags, flags...)
	return c
}

// Name returns the command name.
func (c *Command) Name() string {
	return c.name
}

// GetDescription returns the command description.
func (c *Command) GetDescription() string {
	return c.description
}

// Run sets the command handler that executes when the command is invoked.
func (c *Command) Run(h Handler) *Command {
	c.handler = h
	return c
}

// Long sets a longer description for help output.
func (c *Command) Long(desc string) *Command {
	c.longDesc = desc
	return c
}

// Hidden hides the command from help output.
func (c *Command) Hidden() *Command {
	c.hidden = true
	return c
}

// Deprecated marks the command as deprecated.
func (c *Command) Deprecated(msg string) *Command {
	c.deprecated = msg
	return c
}

// Validate adds a validation function that runs before the handler.
func (c *Command) Validate(v func(*Context) error) *Command {
	c.validators = append(c.validators, v)
	return c
}

// ArgsRange validates that the number of arguments is between min and max.
//
// Pass -1 for max to allow unlimited arguments above min.
func (c *Command) ArgsRange(min, max int) *Command {
	c.validators = append(c.validators, func(ctx *Context) error {
		n := ctx.NArg()
		if n < min {
			return Errorf("requires at least %d argument(s), got %d", min, n)
		}
		if max >= 0 && n > max {
			return Errorf("accepts at most %d argument(s), got %d", max, n)
		}
		return nil
	})
	return c
}

// ExactArgs validates that exactly n arguments are provided.
func (c *Command) ExactArgs(n int) *Command {
	c.validators = append(c.validators, func(ctx *Context) error {
		if ctx.NArg() != n {
			return Errorf("requires exactly %d argument(s), got %d", n, ctx.NArg())
		}
		return nil
	})
	return c
}

// NoArgs validates that no arguments are provided.
func (c *Command) NoArgs() *Command {
	c.validators = append(c.validators, func(ctx *Context) error {
		if ctx.NArg() > 0 {
			return Errorf("accepts no arguments, got %d", ctx.NArg())
		}
		return nil
	})
	return c
}

// Arg represents a positional argument configuration.
//
//	cmd.Args("source", "destination")
//
// For more control, use AddArg with an explicit Arg struct.
type Arg struct {
	Name        string
	Description string
	Required    bool
	Default     any
}

// AddArg adds a positional argument to the command.
func (c *Command) AddArg(a *Arg) *Command {
	c.args = append(c.args, a)
	return c
}

func (c *Command) run(ctx context.Context, args []string) error {
	cctx := &Context{
		ctx:      ctx,
		flags:    make(map[string]any),
		setFlags: make(map[string]bool),
		stdout:   c.app.stdout,
		stderr:   c.app.stderr,
	}

	if err := c.parseFlags(cctx, args); err != nil {
		if _, ok := err.(*HelpRequested); ok {
			return err
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}

	if c.handler == nil {
		return fmt.Errorf("command %q has no handler", c.name)
	}
	return c.handler(cctx)
}

// parseFlags parses flags and positional arguments from args into ctx.
func (c *Command) parseFlags(ctx *Context, args []string) error {
	for _, f := range c.flags {
		name := f.GetName()
		if f.GetEnvVar() != "" {
			if val, ok := os.LookupEnv(f.GetEnvVar()); ok {
				ctx.flags[name] = val
				ctx.setFlags[name] = true
				continue
			}
		}
		if f.GetDefault() != nil {
			ctx.flags[name] = f.GetDefault()
		}
	}

	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		switch {
		case arg == "-h" || arg == "--help":
			return c.showHelp()

		case strings.HasPrefix(arg, "--"):
			name := strings.TrimPrefix(arg, "--")
			if strings.Contains(name, "=") {
				parts := strings.SplitN(name, "=", 2)
				name = parts[0]
				if err := c.setFlag(ctx, name, parts[1]); err != nil {
					return err
				}
				ctx.setFlags[name] = true
				continue
			}
			flag := c.findFlag(name)
			if flag == nil {
				return fmt.Errorf("unknown flag: --%s", name)
			}
			if _, ok := flag.GetDefault().(bool); ok {
				ctx.flags[name] = true
				ctx.setFlags[name] = true
			} else if i+1 < len(args) && !looksLikeFlag(args[i+1]) {
				i++
				if err := c.setFlag(ctx, name, args[i]); err != nil {
					return err
				}
				ctx.setFlags[name] = true
			} else {
				return fmt.Errorf("flag --%s requires a value", name)
			}

		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			name := arg[1:]
			flag := c.findFlagByShort(name)
			if flag == nil {
				return fmt.Errorf("unknown flag: -%s", name)
			}
			if _, ok := flag.GetDefault().(bool); ok {
				ctx.flags[flag.GetName()] = true
				ctx.setFlags[flag.GetName()] = true
			} else if i+1 < len(args) && !looksLikeFlag(args[i+1]) {
				i++
				if err := c.setFlag(ctx, flag.GetName(), args[i]); err != nil {
					return err
				}
				ctx.setFlags[flag.GetName()] = true
			} else {
				return fmt.Errorf("flag -%s requires a value", name)
			}

		default:
			positional = append(positional, arg)
		}
	}

	for i, arg := range c.args {
		if i < len(positional) {
			ctx.positional = append(ctx.positional, positional[i])
		} else if arg.Required {
			return fmt.Errorf("missing required argument: %s", arg.Name)
		} else if arg.Default != nil {
			ctx.positional = append(ctx.positional, fmt.Sprint(arg.Default))
		}
	}
	if len(positional) > len(c.args) {
		ctx.positional = positional
	}

	for _, f := range c.flags {
		if f.IsRequired() && !ctx.setFlags[f.GetName()] {
			return fmt.Errorf("missing required flag: --%s", f.GetName())
		}
	}

	for _, v := range c.validators {
		if err := v(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c *Command) findFlag(name string) Flag {
	for _, f := range c.flags {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func (c *Command) findFlagByShort(short string) Flag {
	for _, f := range c.flags {
		if f.GetShort() == short {
			return f
		}
	}
	return nil
}

// looksLikeFlag returns true if the string looks like a flag rather than a
// value, allowing values like "-1" (negative numbers).
func looksLikeFlag(s string) bool {
	if !strings.HasPrefix(s, "-") || len(s) == 1 {
		return false
	}
	second := s[1]
	if second >= '0' && second <= '9' {
		return false
	}
	if second == '.' && len(s) > 2 {
		return false
	}
	return true
}

func (c *Command) setFlag(ctx *Context, name, value string) error {
	flag := c.findFlag(name)
	if flag == nil {
		return fmt.Errorf("unknown flag: %s", name)
	}
	if err := flag.Validate(value); err != nil {
		return fmt.Errorf("invalid value for --%s: %w", name, err)
	}
	ctx.flags[name] = value
	return nil
}

func (c *Command) showHelp() error {
	fmt.Fprint(c.app.stdout, renderCommandHelp(c))
	return &HelpRequested{}
}
