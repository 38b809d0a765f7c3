// Package qconfig resolves the handful of environment variables the quilt
// CLI consults, built on the struct-tag env loader in the env package. The
// engine packages (patch, patchdb, pathops, stack) never read the
// environment directly; only cmd/quilt consults qconfig.Config.
package qconfig

import "github.com/deepnoodle-ai/quilt/env"

// Config is the environment-driven configuration for the quilt CLI.
type Config struct {
	// Patches is the patches directory, overridden by QUILT_PATCHES.
	Patches string `env:"QUILT_PATCHES" default:"patches"`

	// PC is the .pc state directory, overridden by QUILT_PC.
	PC string `env:"QUILT_PC" default:".pc"`

	// Color disables colorized signal output when false. Consulted only
	// by cmd/quilt; the core engine has no notion of color.
	Color bool `env:"QUILT_COLOR" default:"true"`

	// DiffContext is read from QUILT_DIFF_CONTEXT. cmd/quilt does not pass
	// it on, so refresh/diff output always uses DiffWriter's default context
	// radius of 3 lines.
	DiffContext int `env:"QUILT_DIFF_CONTEXT" default:"3"`
}

// Load resolves Config from the process environment, applying the
// defaults above for any variable that isn't set.
func Load() (Config, error) {
	return env.Parse[Config]()
}
