package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type expiredRowDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically removes expired refresh tokens and recovery codes from
// MySQL. Redis-held codes expire on their own and are not registered here.
type Janitor struct {
	targets  map[string]expiredRowDeleter
	interval time.Duration
	now      func() time.Time
}

func NewJanitor(interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		targets:  make(map[string]expiredRowDeleter),
		interval: interval,
		now:      time.Now,
	}
}

// Register adds a table to sweep under a name used in log lines.
func (j *Janitor) Register(name string, target expiredRowDeleter) *Janitor {
	j.targets[name] = target
	return j
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep returns the number of rows removed per target.
func (j *Janitor) Sweep(ctx context.Context) map[string]int64 {
	removed := make(map[string]int64, len(j.targets))
	now := j.now()

	for name, target := range j.targets {
		rows, err := target.DeleteExpired(ctx, now)
		if err != nil {
			logrus.WithError(err).WithField("target", name).Error("Failed to delete expired rows")
			continue
		}
		removed[name] = rows
		if rows > 0 {
			logrus.WithFields(logrus.Fields{
				"target": name,
				"rows":   rows,
			}).Debug("Deleted expired rows")
		}
	}
	return removed
}
