// Copyright © 2024 The ELPS authors

package semantic

import (
	"context"
	"errors"
	"fmt"
)

// Inference failures.  None of them are fatal; callers treat a failed
// inference as an unknown type.
var (
	// ErrNone means inference had nothing to offer, e.g. no candidate
	// signature for a call.
	ErrNone = errors.New("no inference result")
	// ErrRecursiveInfer means inference re-entered a type or declaration
	// it was already resolving.
	ErrRecursiveInfer = errors.New("recursive inference")
	// ErrCancelled wraps the error of a done context.
	ErrCancelled = errors.New("inference cancelled")
	// ErrFieldNotFound means an index expression named no known member.
	ErrFieldNotFound = errors.New("field not found")
	// ErrTypeMismatch is returned by CheckCompatible.
	ErrTypeMismatch = errors.New("type mismatch")
)

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
