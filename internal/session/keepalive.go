// internal/session/keepalive.go
package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Heartbeater is the part of Client used by KeepAlive.
type Heartbeater interface {
	Heartbeat(ctx context.Context, code string) error
}

// KeepAlive sends a heartbeat for code every interval until ctx is done.
// Failed heartbeats are logged and otherwise ignored.
func KeepAlive(ctx context.Context, hb Heartbeater, code string, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := hb.Heartbeat(ctx, code); err != nil && ctx.Err() == nil {
				logger.Warn("Heartbeat failed.", zap.String("code", code), zap.Error(err))
			}
		}
	}
}
