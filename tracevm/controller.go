// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/inconshreveable/log15"
)

const (
	DefaultTickInterval   = 1500 * time.Millisecond
	DefaultExecuteTimeout = 10 * time.Second
)

var (
	// ErrExecutionFailed is returned when the executor errors, reports an
	// unsuccessful run or returns a malformed result.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrReentrantExecution is returned when Execute is called while another
	// run is pending.
	ErrReentrantExecution = errors.New("an execution is already in progress")

	errControllerClosed = errors.New("controller is closed")
	errNoExecutor       = errors.New("no executor configured")
)

// ControllerConfig configures a Controller. Zero values select defaults.
type ControllerConfig struct {
	Executor       Executor
	Scheduler      Scheduler
	Highlighter    Highlighter
	TickInterval   time.Duration
	ExecuteTimeout time.Duration
	Logger         log.Logger
	Metrics        *Metrics
}

// Controller steps through the frames of one execution result and pushes the
// frame at its cursor to every subscribed view.
//
// All state lives behind [lock]. Every auto-advance task carries the
// generation it was started under; ticks from an older generation are
// ignored.
type Controller struct {
	lock sync.Mutex

	executor       Executor
	scheduler      Scheduler
	highlighter    Highlighter
	tickInterval   time.Duration
	executeTimeout time.Duration
	log            log.Logger
	metrics        *Metrics

	result     *ExecutionResult
	cursor     int
	running    bool
	executing  bool
	closed     bool
	lastErr    error
	generation uint64
	cancelTick func()

	views      []subscription
	nextViewID uint64
}

type subscription struct {
	id   uint64
	view View
}

// NewController returns an idle controller.
func NewController(config ControllerConfig) *Controller {
	c := &Controller{
		executor:       config.Executor,
		scheduler:      config.Scheduler,
		highlighter:    config.Highlighter,
		tickInterval:   config.TickInterval,
		executeTimeout: config.ExecuteTimeout,
		log:            config.Logger,
		metrics:        config.Metrics,
	}
	if c.scheduler == nil {
		c.scheduler = TimerScheduler{}
	}
	if c.highlighter == nil {
		c.highlighter = noHighlighter{}
	}
	if c.tickInterval <= 0 {
		c.tickInterval = DefaultTickInterval
	}
	if c.executeTimeout <= 0 {
		c.executeTimeout = DefaultExecuteTimeout
	}
	if c.log == nil {
		c.log = log.New("module", "controller")
	}
	return c
}

// Subscribe registers [view] for notifications and returns a function that
// removes it.
func (c *Controller) Subscribe(view View) (unsubscribe func()) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.nextViewID++
	id := c.nextViewID
	c.views = append(c.views, subscription{id: id, view: view})
	return func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		for i, s := range c.views {
			if s.id == id {
				c.views = append(c.views[:i:i], c.views[i+1:]...)
				return
			}
		}
	}
}

// Execute runs [source] through the executor and loads the result. Only one
// run may be pending at a time; a second call fails with
// ErrReentrantExecution without reaching the executor. On failure the
// previously loaded result, if any, stays in place.
func (c *Controller) Execute(ctx context.Context, source string) (*ExecutionResult, error) {
	c.lock.Lock()
	switch {
	case c.closed:
		c.lock.Unlock()
		return nil, errControllerClosed
	case c.executor == nil:
		c.lock.Unlock()
		return nil, errNoExecutor
	case c.executing:
		c.lock.Unlock()
		c.metrics.executionRejected()
		c.log.Debug("rejecting re-entrant execution")
		return nil, ErrReentrantExecution
	}
	c.executing = true
	c.lock.Unlock()

	start := time.Now()
	result, err := c.runExecutor(ctx, source)

	c.lock.Lock()
	defer c.lock.Unlock()
	c.executing = false
	if err != nil {
		c.lastErr = err
		c.metrics.executionFinished(false, time.Since(start))
		c.log.Warn("execution failed", "err", err)
		return nil, err
	}
	c.lastErr = nil
	c.metrics.executionFinished(true, time.Since(start))
	c.log.Info("execution finished", "steps", len(result.Trace), "duration", time.Since(start))
	if !c.closed {
		c.load(result)
	}
	return result.Clone(), nil
}

func (c *Controller) runExecutor(ctx context.Context, source string) (*ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.executeTimeout)
	defer cancel()

	result, err := c.executor.Execute(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExecutionFailed, err)
	}
	return prepare(result)
}

// prepare returns a verified private copy of [result] with its storage
// summary filled in.
func prepare(result *ExecutionResult) (*ExecutionResult, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: no result", ErrExecutionFailed)
	}
	result = result.Clone()
	if err := result.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExecutionFailed, err)
	}
	if result.StorageChanges == nil {
		result.StorageChanges = DeriveStorageChanges(result.Trace)
	}
	return result, nil
}

// Load replaces the current result with [result] without running the
// executor. [result] is verified the same way an executor's output is, and a
// malformed result leaves the controller untouched. Playback stops and the
// cursor returns to the first frame.
func (c *Controller) Load(result *ExecutionResult) error {
	result, err := prepare(result)
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return errControllerClosed
	}
	c.load(result)
	return nil
}

func (c *Controller) load(result *ExecutionResult) {
	c.stopTicking()
	c.result = result
	c.cursor = 0
	c.notify()
}

// Play starts auto-advance. It is a no-op unless the controller is Ready and
// the cursor is before the last frame.
func (c *Controller) Play() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.phase() != Ready || c.cursor >= len(c.result.Trace)-1 {
		return false
	}
	c.running = true
	gen := c.generation
	c.cancelTick = c.scheduler.Every(c.tickInterval, func() { c.tick(gen) })
	c.log.Debug("playback started", "cursor", c.cursor, "interval", c.tickInterval)
	return true
}

// Pause stops auto-advance and keeps the cursor where it is.
func (c *Controller) Pause() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.running {
		return false
	}
	c.stopTicking()
	c.log.Debug("playback paused", "cursor", c.cursor)
	return true
}

// Stop cancels auto-advance and rewinds to the first frame.
func (c *Controller) Stop() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.result == nil || c.closed {
		return false
	}
	c.stopTicking()
	c.cursor = 0
	c.notify()
	return true
}

// StepForward moves the cursor one frame ahead.
func (c *Controller) StepForward() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.phase() != Ready || c.cursor >= len(c.result.Trace)-1 {
		return false
	}
	c.cursor++
	c.notify()
	return true
}

// StepBack moves the cursor one frame back.
func (c *Controller) StepBack() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.phase() != Ready || c.cursor <= 0 {
		return false
	}
	c.cursor--
	c.notify()
	return true
}

// Seek moves the cursor to frame [n].
func (c *Controller) Seek(n int) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.phase() != Ready || n < 0 || n >= len(c.result.Trace) {
		return false
	}
	c.cursor = n
	c.notify()
	return true
}

// Close cancels auto-advance. Every later operation is a no-op.
func (c *Controller) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.stopTicking()
	c.closed = true
}

// Snapshot returns the current playback state.
func (c *Controller) Snapshot() Snapshot {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := Snapshot{
		Phase:          c.phase(),
		Cursor:         c.cursor,
		IsExecuting:    c.executing,
		StorageChanges: []StorageChange{},
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	if c.result == nil {
		return s
	}
	summary := Summarize(c.result.Trace, c.cursor)
	s.TotalSteps = len(c.result.Trace)
	s.GasUsed = summary.GasUsed
	s.StepsRemaining = summary.StepsRemaining
	if summary.Frame != nil {
		frame := summary.Frame.clone()
		s.Frame = &frame
	}
	s.StorageChanges = append(s.StorageChanges, c.result.StorageChanges...)
	return s
}

// Result returns a copy of the loaded result, or nil when Idle.
func (c *Controller) Result() *ExecutionResult {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.result.Clone()
}

func (c *Controller) tick(gen uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.running || gen != c.generation {
		return
	}
	c.metrics.tick()
	if c.cursor+1 >= len(c.result.Trace) {
		c.stopTicking()
		return
	}
	c.cursor++
	c.notify()
	if c.cursor == len(c.result.Trace)-1 {
		c.stopTicking()
		c.log.Debug("playback reached the last frame", "cursor", c.cursor)
	}
}

// stopTicking cancels the auto-advance task and bumps the generation so a
// tick that already fired becomes a no-op.
func (c *Controller) stopTicking() {
	c.generation++
	c.running = false
	if c.cancelTick != nil {
		c.cancelTick()
		c.cancelTick = nil
	}
}

func (c *Controller) phase() Phase {
	switch {
	case c.closed || c.result == nil:
		return Idle
	case c.running:
		return Playing
	default:
		return Ready
	}
}

// notify pushes the frame at the cursor to every view and asks the editor
// to highlight its line.
func (c *Controller) notify() {
	trace := c.result.Trace
	summary := Summarize(trace, c.cursor)
	for _, s := range c.views {
		s.view.Render(summary.Frame, c.result.StorageChanges, c.cursor, len(trace))
	}
	if summary.Frame != nil {
		c.highlighter.HighlightLine(summary.Frame.Line)
	}
	c.metrics.notified()
}
