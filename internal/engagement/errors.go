package engagement

import "errors"

var (
	// ErrUnauthenticated is returned by Mutate when no viewer identity is
	// attached to the service. No optimistic delta is applied and nothing
	// is dispatched.
	ErrUnauthenticated = errors.New("engagement: mutation requires an authenticated viewer")

	// ErrMutationPending is returned when a reaction change is requested for
	// a photo that already has an unresolved optimistic mutation. Callers
	// retry after the in-flight mutation resolves.
	ErrMutationPending = errors.New("engagement: a mutation is already pending for this photo")

	// ErrUnknownKind is returned for reaction kinds outside the fixed enum.
	ErrUnknownKind = errors.New("engagement: unknown reaction kind")

	// ErrEmptyBatch is returned when a batch read is attempted with no valid
	// photo ids after filtering.
	ErrEmptyBatch = errors.New("engagement: batch read requires at least one photo id")
)
