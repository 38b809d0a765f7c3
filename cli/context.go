package cli

import (
	"context"
	"fmt"
	"io"
)

// Context carries the parsed arguments and flags for a single command
// invocation, and is passed to the command's Handler.
type Context struct {
	ctx context.Context

	positional []string
	flags      map[string]any
	setFlags   map[string]bool

	stdout, stderr io.Writer
}

// Context returns the context.Context the application was run with.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Args returns the positional arguments.
func (c *Context) Args() []string {
	return c.positional
}

// NArg returns the number of positional arguments.
func (c *Context) NArg() int {
	return len(c.positional)
}

// Arg returns the positional argument at i, or "" if out of range.
func (c *Context) Arg(i int) string {
	if i < 0 || i >= len(c.positional) {
		return ""
	}
	return c.positional[i]
}

// Bool returns the value of a boolean flag.
func (c *Context) Bool(name string) bool {
	v, _ := c.flags[name].(bool)
	return v
}

// String returns the value of a string flag.
func (c *Context) String(name string) string {
	v, _ := c.flags[name].(string)
	return v
}

// IsSet reports whether a flag was explicitly set on the command line or
// via its environment variable, as opposed to carrying its default value.
func (c *Context) IsSet(name string) bool {
	return c.setFlags[name]
}

// Print writes to the command's stdout.
func (c *Context) Print(a ...any) {
	fmt.Fprint(c.stdout, a...)
}

// Printf writes a formatted string to the command's stdout.
func (c *Context) Printf(format string, a ...any) {
	fmt.Fprintf(c.stdout, format, a...)
}

// Println writes to the command's stdout followed by a newline.
func (c *Context) Println(a ...any) {
	fmt.Fprintln(c.stdout, a...)
}
