package calcom

import "errors"

// ErrMissingFields rejects a booking request with an empty name, email, or
// start time. It is raised before any network call.
var ErrMissingFields = errors.New("missing required fields")

// RemoteError is a non-success response from the scheduling service. Message
// carries the service's own error text verbatim when it provided one.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a local validation failure rather than
// a remote or transport one.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields)
}

// IsRemote reports whether the scheduling service itself rejected the call.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
