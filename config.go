package esregex

import "github.com/coregx/esregex/parse"

// Config controls limits enforced during compilation. Unlike a multi-engine
// meta-compiler, this module has a single matcher backend (classical
// backtracking, per SPEC_FULL's Open Question 1), so Config governs
// compile-time ceilings rather than engine selection.
//
// Example:
//
//	config := esregex.DefaultConfig()
//	config.MaxCaptureGroups = 256
//	re, err := esregex.CompileWithConfig(`(a)(b)(c)`, "", config)
type Config struct {
	// MaxCaptureGroups caps the number of capture groups a pattern may
	// declare. Default: 65535 (parse.MaxCaptureGroups).
	MaxCaptureGroups int

	// MaxLoops caps the number of quantified loops a pattern may contain.
	// Default: 65535 (parse.MaxLoops).
	MaxLoops int

	// DisableOptimizer skips the IR optimizer pass, compiling the parser's
	// raw tree directly. Useful for isolating optimizer bugs; sets
	// ir.Flags.NoOpt on the parsed regex. Default: false.
	DisableOptimizer bool
}

// DefaultConfig returns a configuration with the same limits the parser
// enforces on its own.
//
// Example:
//
//	config := esregex.DefaultConfig()
//	re, err := esregex.CompileWithConfig(`\d+`, "", config)
func DefaultConfig() Config {
	return Config{
		MaxCaptureGroups: parse.MaxCaptureGroups,
		MaxLoops:         parse.MaxLoops,
	}
}

// Validate checks that c's limits are sane. Returns a *ConfigError if not.
func (c Config) Validate() error {
	if c.MaxCaptureGroups < 1 || c.MaxCaptureGroups > parse.MaxCaptureGroups {
		return &ConfigError{
			Field:   "MaxCaptureGroups",
			Message: "must be between 1 and 65535",
		}
	}
	if c.MaxLoops < 1 || c.MaxLoops > parse.MaxLoops {
		return &ConfigError{
			Field:   "MaxLoops",
			Message: "must be between 1 and 65535",
		}
	}
	return nil
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "esregex: invalid config: " + e.Field + ": " + e.Message
}
