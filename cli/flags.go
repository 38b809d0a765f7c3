package cli

import "fmt"

// Flag describes a command-line flag of any kind. Concrete flag builders
// (Bool, String) implement it.
type Flag interface {
	GetName() string
	GetShort() string
	GetHelp() string
	GetEnvVar() string
	GetDefault() any
	IsRequired() bool
	IsHidden() bool
	GetEnum() []string
	Validate(value string) error
}

// boolBuilder builds a boolean flag, e.g. --verbose / -v.
type boolBuilder struct {
	name, short, help, env string
	def                    bool
	required, hidden       bool
}

// Bool starts building a boolean flag. short may be empty.
func Bool(name, short string) *boolBuilder {
	return &boolBuilder{name: name, short: short}
}

func (b *boolBuilder) Default(v bool) *boolBuilder { b.def = v; return b }
func (b *boolBuilder) Help(h string) *boolBuilder  { b.help = h; return b }
func (b *boolBuilder) Env(e string) *boolBuilder   { b.env = e; return b }
func (b *boolBuilder) Required() *boolBuilder      { b.required = true; return b }
func (b *boolBuilder) Hidden() *boolBuilder        { b.hidden = true; return b }

func (b *boolBuilder) GetName() string       { return b.name }
func (b *boolBuilder) GetShort() string      { return b.short }
func (b *boolBuilder) GetHelp() string       { return b.help }
func (b *boolBuilder) GetEnvVar() string     { return b.env }
func (b *boolBuilder) GetDefault() any       { return b.def }
func (b *boolBuilder) IsRequired() bool      { return b.required }
func (b *boolBuilder) IsHidden() bool        { return b.hidden }
func (b *boolBuilder) GetEnum() []string     { return nil }
func (b *boolBuilder) Validate(string) error { return nil }

// stringBuilder builds a string-valued flag, e.g. --format / -f.
type stringBuilder struct {
	name, short, help, env string
	def                    string
	enum                   []string
	required, hidden       bool
	validate               func(string) error
}

// String starts building a string flag. short may be empty.
func String(name, short string) *stringBuilder {
	return &stringBuilder{name: name, short: short}
}

func (s *stringBuilder) Default(v string) *stringBuilder      { s.def = v; return s }
func (s *stringBuilder) Help(h string) *stringBuilder         { s.help = h; return s }
func (s *stringBuilder) Env(e string) *stringBuilder          { s.env = e; return s }
func (s *stringBuilder) Enum(values ...string) *stringBuilder { s.enum = values; return s }
func (s *stringBuilder) Required() *stringBuilder             { s.required = true; return s }
func (s *stringBuilder) Hidden() *stringBuilder                { s.hidden = true; return s }
func (s *stringBuilder) ValidateWith(fn func(string) error) *stringBuilder {
	s.validate = fn
	return s
}

func (s *stringBuilder) GetName() string   { return s.name }
func (s *stringBuilder) GetShort() string  { return s.short }
func (s *stringBuilder) GetHelp() string   { return s.help }
func (s *stringBuilder) GetEnvVar() string { return s.env }
func (s *stringBuilder) GetDefault() any   { return s.def }
func (s *stringBuilder) IsRequired() bool  { return s.required }
func (s *stringBuilder) IsHidden() bool    { return s.hidden }
func (s *stringBuilder) GetEnum() []string { return s.enum }

func (s *stringBuilder) Validate(value string) error {
	if len(s.enum) > 0 {
		ok := false
		for _, v := range s.enum {
			if v == value {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("must be one of %v, got %q", s.enum, value)
		}
	}
	if s.validate != nil {
		return s.validate(value)
	}
	return nil
}
