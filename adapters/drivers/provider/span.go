package providerdrv

import (
	"context"
	"time"

	"github.com/kompox/kprotect/internal/logging"
)

// WithMethodLogger implements the Span pattern for driver logging.
// It emits a START log line and returns a context with logger attributes attached,
// plus a cleanup function to emit the END:OK or END:FAILED log line.
//
// Usage:
//
//	ctx, cleanup := providerdrv.WithMethodLogger(ctx, "EKS", "ClusterProvision")
//	defer func() { cleanup(err) }()
//
// Log message format:
// - START:  <prefix>:<method>:START (with driver in logger attributes)
// - END:    <prefix>:<method>:END:OK or <prefix>:<method>:END:FAILED (with err, elapsed in logger attributes)
func WithMethodLogger(ctx context.Context, prefix, method string) (context.Context, func(err error)) {
	startAt := time.Now()

	logger := logging.FromContext(ctx).With("driver", prefix+"."+method)
	ctx = logging.WithLogger(ctx, logger)

	logger.Info(ctx, prefix+":"+method+":START")

	cleanup := func(err error) {
		elapsed := time.Since(startAt).Seconds()
		if err == nil {
			logger.Info(ctx, prefix+":"+method+":END:OK", "err", "", "elapsed", elapsed)
			return
		}
		errStr := err.Error()
		if len(errStr) > 32 {
			errStr = errStr[:32] + "..."
		}
		logger.Warn(ctx, prefix+":"+method+":END:FAILED", "err", errStr, "elapsed", elapsed)
	}

	return ctx, cleanup
}
