package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Failure classes surfaced to callers. Handlers map these onto HTTP
// statuses; the chat layer maps them onto user-facing messages.
var (
	// ErrNotFound means no document matched the (id, user) pair. Never
	// worth retrying without correcting the inputs.
	ErrNotFound = errors.New("prompt not found")

	// ErrInvalidArgument means the input was rejected before any store
	// round trip; no mutation has occurred.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTimeout means the deadline expired before the store answered.
	// The store's single-field updates either fully applied or not at
	// all, so idempotent operations are safe to retry.
	ErrTimeout = errors.New("store operation timed out")

	// ErrStoreUnavailable means a transport failure; callers retry with
	// backoff.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// classify maps driver and context errors onto the failure classes,
// wrapping so the original cause stays inspectable.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case mongo.IsNetworkError(err):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
