package registry

import "errors"

// Queue and codec failure modes. Callers match with errors.Is; wrapped
// variants carry call-site context.
var (
	// ErrMalformedRequest: bytes that do not round-trip through the codec.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrHashMismatch: a supplied Request (plus prefix/suffix on the
	// unverified path) does not hash to the stored commitment. Fatal for the
	// call; never retried automatically.
	ErrHashMismatch = errors.New("request does not match stored hash")

	// ErrNotFound: no live entry under the given id. Also the answer after
	// an entry was executed or cancelled; the event log disambiguates.
	ErrNotFound = errors.New("unknown request id")

	// ErrInsufficientFunds: attached value below the required escrow.
	ErrInsufficientFunds = errors.New("insufficient funds for escrow")

	// ErrInvalidRange: slice bounds with start > end.
	ErrInvalidRange = errors.New("invalid slice range")

	// ErrCallReverted: the forwarded call failed. The entry is still
	// consumed and the executor is not reimbursed.
	ErrCallReverted = errors.New("forwarded call reverted")

	// ErrVerifyFailed: the request was created with verifySender and the
	// requester's current state no longer checks out.
	ErrVerifyFailed = errors.New("requester verification failed")

	// ErrNotRequester: cancel attempted by anyone but the requester.
	ErrNotRequester = errors.New("caller is not the requester")

	// ErrUnveriEscrow: unverified entries carry no escrow, so a revealed
	// Request on that path cannot name attached or forwarded value.
	ErrUnveriEscrow = errors.New("unverified request cannot escrow value")
)
