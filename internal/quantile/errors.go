package quantile

import "github.com/pkg/errors"

// ErrInvalidInput is wrapped by every rejection that happens before any
// computation starts. Callers match it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}
