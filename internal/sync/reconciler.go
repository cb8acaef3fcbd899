// Package sync runs background reconciliation of cached rollups and
// reports the outcome to the TUI as tea messages.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// State is the current state of the reconciler.
type State int

const (
	Idle State = iota
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "reconciling"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Status is a snapshot of the reconciler.
type Status struct {
	State    State
	LastRun  time.Time
	Projects int
	Error    error
}

// ResultMsg is a tea.Msg sent when a reconciliation pass completes.
type ResultMsg struct {
	Projects int
	Error    error
}

// Target recomputes every rollup and reports how many projects it covered.
type Target interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// runTimeout bounds a single reconciliation pass.
const runTimeout = 2 * time.Minute

// DefaultInterval is used when no positive interval is configured.
const DefaultInterval = 300 * time.Second

// Reconciler periodically recomputes rollups in the background.
type Reconciler struct {
	target   Target
	interval time.Duration
	logger   *zap.Logger

	resultCh  chan ResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup

	mu      gosync.Mutex
	status  Status
	running bool
}

// New creates a Reconciler that runs target every interval.
func New(target Target, interval time.Duration, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		target:    target,
		interval:  interval,
		logger:    logger,
		resultCh:  make(chan ResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the background loop and returns a tea.Cmd waiting for
// the first result. Calling Start again is a no-op.
func (r *Reconciler) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop()

	return r.WaitForNextResult()
}

// Stop halts the background loop and waits for it to exit.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
}

// Refresh requests an immediate pass. Requests made while one is pending
// are merged.
func (r *Reconciler) Refresh() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the current state.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.run()
		case <-r.triggerCh:
			r.run()
		}
	}
}

// run performs one pass and publishes its result.
func (r *Reconciler) run() {
	r.setStatus(Running, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := r.target.ReconcileAll(ctx)
	if err != nil {
		r.logger.Warn("background reconciliation failed", zap.Error(err))
		r.setStatus(Failed, 0, err)
	} else {
		r.setStatus(Idle, n, nil)
	}

	select {
	case r.resultCh <- ResultMsg{Projects: n, Error: err}:
	default:
		// Drop if nobody is listening.
	}
}

func (r *Reconciler) setStatus(state State, projects int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.State = state
	r.status.Error = err
	if state == Idle {
		r.status.LastRun = time.Now()
		r.status.Projects = projects
	}
}

// WaitForNextResult returns a tea.Cmd that blocks until the next pass
// completes. Call it again after handling each ResultMsg.
func (r *Reconciler) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-r.resultCh:
			return msg
		case <-r.stopCh:
			return nil
		}
	}
}
