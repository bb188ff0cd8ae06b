// Package cache stores judge verdicts keyed by a content hash.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

// runCleanup sweeps expired entries every freq until stop is closed
func runCleanup(c core.VerdictCache, freq time.Duration, stop <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stop:
			return
		}
	}
}
