// internal/services/release_timer.go
package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ReleaseTimer periodically runs the fund release sweep. The endpoint
// trigger and the timer share the same idempotent sweep, so overlap is
// harmless.
type ReleaseTimer struct {
	service  *ReleaseService
	interval time.Duration
	stop     chan struct{}
}

func NewReleaseTimer(service *ReleaseService, interval time.Duration) *ReleaseTimer {
	return &ReleaseTimer{
		service:  service,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (t *ReleaseTimer) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safeSweep()
		}
	}
}

// Stop signals the timer to stop.
func (t *ReleaseTimer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *ReleaseTimer) safeSweep() {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Panic in release timer")
		}
	}()

	if _, err := t.service.ReleaseDueFunds(time.Now()); err != nil {
		logrus.WithError(err).Warn("Scheduled fund release sweep failed")
	}
}
