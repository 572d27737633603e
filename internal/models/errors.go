package models

import "errors"

// Failure taxonomy shared by every layer. Lower layers wrap these with
// fmt.Errorf("%w: ...") and context; the HTTP boundary turns them into
// status codes with errors.Is. Nothing below the boundary retries or
// reinterprets them.
var (
	// ErrInvalidInput covers malformed coordinates, negative or NaN
	// distances, and request bodies that fail validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound covers both an unresolvable dropoff name and an unknown
	// ride id; the handler decides between 422 and 404 from the call site.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers missing, expired or otherwise invalid
	// credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned to the loser of an acceptance race, and to
	// registrations that collide on email.
	ErrConflict = errors.New("conflict")

	// ErrUpstreamUnavailable covers geocoder timeouts, 5xx responses and
	// malformed provider payloads.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStorageFailure wraps unexpected persistence-layer errors.
	ErrStorageFailure = errors.New("storage failure")
)

// ErrorKind returns the machine-readable kind for err, for error bodies
// and logs. Unrecognized errors report as internal.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	default:
		return "internal"
	}
}
