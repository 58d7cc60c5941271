package observability

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes logs before process exit and then runs closers (the
// panel, the snapshot mirror) in order. All errors are joined.
// For pull-based Prometheus, metrics are already exposed.
func FlushTelemetry(ctx context.Context, logger *zap.Logger, closers ...func() error) error {
	var errs []error
	for _, c := range closers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("flush logs: %w", err))
		}
	}
	return errors.Join(errs...)
}
