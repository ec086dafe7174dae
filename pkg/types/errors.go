package types

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks definition-time configuration errors: duplicate
// stage or rule ids, malformed trigger templates, unresolved required
// references. These are always fatal to the assembly call and never retried.
// Upstream provisioning failures are deliberately NOT wrapped with this
// sentinel; they propagate unchanged.
var ErrConfiguration = errors.New("configuration error")

// ConfigErrorf builds a ConfigurationError with a formatted message.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
