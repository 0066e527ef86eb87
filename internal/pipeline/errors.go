package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// NoUsableImagesError is returned when the vision strategy has no page image
// to send: rasterization produced nothing usable and no screenshots were
// uploaded.
type NoUsableImagesError struct {
	Reason string
}

func (e *NoUsableImagesError) Error() string {
	return fmt.Sprintf("no usable page images: %s; upload page screenshots alongside the PDF and retry", e.Reason)
}

// UpstreamTimeoutError wraps a deadline expiry from a hosted service call.
// Timeouts are not retried.
type UpstreamTimeoutError struct {
	Op  string
	Err error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

// mapTimeout converts a context deadline expiry into an UpstreamTimeoutError
// and passes every other error through.
func mapTimeout(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamTimeoutError{Op: op, Err: err}
	}
	return err
}
