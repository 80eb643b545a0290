package config

import "os"

// EnvironmentExpander expands environment variable placeholders within raw
// configuration bytes before they are parsed.
type EnvironmentExpander interface {
	// Expand replaces ${VAR} or $VAR placeholders in the input and returns the
	// expanded bytes.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander implements EnvironmentExpander with os.ExpandEnv.
// Unset variables expand to the empty string.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates a new OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand expands environment variables within the input byte slice.
// os.ExpandEnv itself never fails, so the returned error is always nil.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.ExpandEnv(string(input))), nil
}
