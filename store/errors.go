package store

import "errors"

var (
	// ErrNotFound means the identity or record does not resolve.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means a conditional write was rejected because the
	// requester is not the recorded owner. DynamoDB reports the same
	// conditional failure when the record does not exist at all, so the
	// two causes are indistinguishable here.
	ErrForbidden = errors.New("owner mismatch")

	// ErrBadCursor means an opaque continuation cursor could not be
	// decoded.
	ErrBadCursor = errors.New("invalid pagination cursor")
)
