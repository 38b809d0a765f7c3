package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoolBuilder_Defaults(t *testing.T) {
	f := Bool("verbose", "v").Default(true).Help("be loud")
	assert.Equal(t, "verbose", f.GetName())
	assert.Equal(t, "v", f.GetShort())
	assert.Equal(t, "be loud", f.GetHelp())
	assert.Equal(t, true, f.GetDefault())
	assert.False(t, f.IsRequired())
	assert.NoError(t, f.Validate(""))
}

func TestBoolBuilder_Required(t *testing.T) {
	f := Bool("force", "f").Required()
	assert.True(t, f.IsRequired())
}

func TestStringBuilder_Defaults(t *testing.T) {
	f := String("format", "").Default("text").Help("output format")
	assert.Equal(t, "format", f.GetName())
	assert.Equal(t, "text", f.GetDefault())
	assert.NoError(t, f.Validate("text"))
}

func TestStringBuilder_EnumValidation(t *testing.T) {
	f := String("format", "f").Enum("text", "json")
	assert.NoError(t, f.Validate("json"))
	assert.Error(t, f.Validate("xml"))
}

func TestStringBuilder_ValidateWith(t *testing.T) {
	f := String("name", "").ValidateWith(func(v string) error {
		if v == "" {
			return assert.AnError
		}
		return nil
	})
	assert.Error(t, f.Validate(""))
	assert.NoError(t, f.Validate("ok"))
}

func TestStringBuilder_Hidden(t *testing.T) {
	f := String("secret", "").Hidden()
	assert.True(t, f.IsHidden())
}
