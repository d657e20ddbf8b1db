package domain

import "errors"

// Error taxonomy. Callers wrap these with fmt.Errorf("...: %w", err) to name
// the violated constraint and match them with errors.Is.
var (
	// ErrInvalidParameters marks a request rejected before any data fetch
	// or simulation work.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrEmptyInput marks a simulation asked to run over zero bars.
	ErrEmptyInput = errors.New("empty input")

	// ErrDataUnavailable marks a provider that returned no bars for the
	// symbol and range.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrNotFound marks a lookup of a stored run that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInternal marks an unexpected failure during a run.
	ErrInternal = errors.New("internal error")
)

// IsClientError reports whether err should be surfaced as the caller's fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidParameters) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrNotFound)
}
