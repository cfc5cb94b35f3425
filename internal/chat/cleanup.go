package chat

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"justicia-client/internal/storage"
)

const (
	// DefaultHiddenGrace is how long the chat surface may stay inactive
	// before its persisted context is purged.
	DefaultHiddenGrace = 30 * time.Minute
	// DefaultSweepWindow is the minimum spacing between periodic full
	// sweeps.
	DefaultSweepWindow = 7 * 24 * time.Hour

	lastSweepKey = KeyPrefix + "cleanup_last_sweep"
)

// Cleaner purges persisted chat context. The policy is a full wipe across
// every identity scope, not a per-user clear: leaving the chat surface,
// shutting down, or staying inactive past the grace period all clear
// everything under the chat prefix. A coarse periodic sweep backstops the
// event-driven paths.
type Cleaner struct {
	storage     storage.Store
	hiddenGrace time.Duration
	sweepWindow time.Duration

	mu          sync.Mutex
	hiddenTimer *time.Timer
	stopped     bool
}

func NewCleaner(store storage.Store) *Cleaner {
	return NewCleanerWithIntervals(store, DefaultHiddenGrace, DefaultSweepWindow)
}

func NewCleanerWithIntervals(store storage.Store, hiddenGrace, sweepWindow time.Duration) *Cleaner {
	if hiddenGrace <= 0 {
		hiddenGrace = DefaultHiddenGrace
	}
	if sweepWindow <= 0 {
		sweepWindow = DefaultSweepWindow
	}
	return &Cleaner{
		storage:     store,
		hiddenGrace: hiddenGrace,
		sweepWindow: sweepWindow,
	}
}

// WipeAll removes every persisted chat key, all identities included.
func (c *Cleaner) WipeAll() error {
	keys, err := c.storage.Keys(KeyPrefix)
	if err != nil {
		return fmt.Errorf("listing chat keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if key == lastSweepKey {
			continue
		}
		if err := c.storage.Remove(key); err != nil {
			return fmt.Errorf("removing key %s: %w", key, err)
		}
		removed++
	}

	if removed > 0 {
		slog.Info("purged persisted chat context", "keys_removed", removed)
	}
	return nil
}

// OnChatExit purges persisted context when the user leaves the chat surface.
func (c *Cleaner) OnChatExit() error {
	return c.WipeAll()
}

// OnShutdown purges persisted context on application shutdown.
func (c *Cleaner) OnShutdown() error {
	return c.WipeAll()
}

// OnInactive arms the grace timer: if the chat surface stays inactive for
// the full grace period, everything is wiped. A previously armed timer is
// replaced.
func (c *Cleaner) OnInactive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.hiddenTimer != nil {
		c.hiddenTimer.Stop()
	}
	c.hiddenTimer = time.AfterFunc(c.hiddenGrace, func() {
		if err := c.WipeAll(); err != nil {
			slog.Error("inactivity wipe failed", "error", err)
		}
	})
}

// OnActive cancels a pending inactivity wipe.
func (c *Cleaner) OnActive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hiddenTimer != nil {
		c.hiddenTimer.Stop()
		c.hiddenTimer = nil
	}
}

// SweepIfDue runs the full wipe if the last sweep is older than the sweep
// window, returning whether a sweep ran. Tracked via a persisted timestamp
// so the window survives restarts.
func (c *Cleaner) SweepIfDue() (bool, error) {
	raw, err := c.storage.Get(lastSweepKey)
	if err == nil {
		lastRun, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr == nil && time.Since(time.UnixMilli(lastRun)) < c.sweepWindow {
			return false, nil
		}
	}

	if err := c.WipeAll(); err != nil {
		return false, err
	}
	if err := c.storage.Set(lastSweepKey, strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		return true, fmt.Errorf("recording sweep timestamp: %w", err)
	}
	return true, nil
}

// Stop disposes the cleaner, cancelling any pending inactivity wipe.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.hiddenTimer != nil {
		c.hiddenTimer.Stop()
		c.hiddenTimer = nil
	}
}
