package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bankrecon/internal/log"
)

// ResyncConfig holds configuration for the periodic full mirror.
type ResyncConfig struct {
	// Interval between full copies (default: 6h)
	Interval time.Duration

	// RunOnStart copies once before the first tick.
	RunOnStart bool
}

func DefaultResyncConfig() ResyncConfig {
	return ResyncConfig{Interval: 6 * time.Hour, RunOnStart: true}
}

// Resyncer repeats StartupSyncCheck on a fixed interval so that a lost
// message leaves the mirror behind for at most one interval.
type Resyncer struct {
	worker *SyncWorker
	config ResyncConfig

	mu      sync.Mutex
	running bool
	runs    int
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewResyncer(w *SyncWorker, config ResyncConfig) *Resyncer {
	if config.Interval <= 0 {
		config.Interval = DefaultResyncConfig().Interval
	}
	return &Resyncer{worker: w, config: config}
}

// Start begins the loop. Returns an error if already running.
func (r *Resyncer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("resyncer is already running")
	}
	r.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	r.stopCh, r.doneCh = stopCh, doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Resyncer started",
		log.FieldComponent, log.ComponentWorker,
		"interval", r.config.Interval)
	return nil
}

// Stop signals the loop and waits for an in-flight copy to finish.
func (r *Resyncer) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Resyncer stop timed out", log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}
}

func (r *Resyncer) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Runs reports how many full copies have been attempted.
func (r *Resyncer) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// runLoop owns stopCh and doneCh of one Start; a later Start gets its own.
func (r *Resyncer) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	if r.config.RunOnStart {
		r.resync(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.resync(ctx)
		}
	}
}

func (r *Resyncer) resync(ctx context.Context) {
	err := r.worker.StartupSyncCheck(ctx)
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Periodic resync failed",
			log.FieldComponent, log.ComponentWorker,
			log.FieldOperation, log.OpMirror,
			log.FieldError, err)
	}
}
