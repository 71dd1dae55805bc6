package overlay

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// watchdog periodically re-verifies the desktop placement. The shell can be
// restarted at any time, taking the layer windows with it.
type watchdog struct {
	check  func(*watchdog) error
	logger *slog.Logger

	stopChan          chan struct{}
	stopOnce          sync.Once
	baseInterval      time.Duration
	currentInterval   time.Duration
	backoffFactor     float64
	maxInterval       time.Duration
	consecutiveErrors int
}

func newWatchdog(interval time.Duration, check func(*watchdog) error, logger *slog.Logger) *watchdog {
	return &watchdog{
		check:           check,
		logger:          logger,
		stopChan:        make(chan struct{}),
		baseInterval:    interval,
		currentInterval: interval,
		backoffFactor:   backoffFactor,
		maxInterval:     12 * interval,
	}
}

// Start begins the check loop
func (w *watchdog) Start() {
	go w.loop()
}

// Stop ends the loop. It does not wait for an in-flight check, so it may be
// called from inside one.
func (w *watchdog) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *watchdog) stopped() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

func (w *watchdog) loop() {
	ticker := time.NewTicker(w.currentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.check(w); err != nil {
				w.consecutiveErrors++
				w.logger.Debug("placement check failed", "attempt", w.consecutiveErrors, "error", err)
				w.adjustInterval(true)
			} else if w.consecutiveErrors > 0 {
				w.consecutiveErrors = 0
				w.adjustInterval(false)
			}

			// Update ticker with current interval
			ticker.Reset(w.currentInterval)
		}
	}
}

// adjustInterval backs off while checks keep failing and returns to the
// base interval once one succeeds.
func (w *watchdog) adjustInterval(failed bool) {
	if !failed {
		w.currentInterval = w.baseInterval
		return
	}

	next := time.Duration(float64(w.currentInterval) * w.backoffFactor)
	if next > w.maxInterval {
		next = w.maxInterval
	}

	// Add jitter to avoid polling the shell in lockstep with other tools
	jitter := time.Duration(rand.Int63n(int64(w.baseInterval)/10 + 1))
	w.currentInterval = next + jitter
}
