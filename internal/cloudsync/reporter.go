package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-media/internal/media"
)

const (
	defaultQueueSize   = 256
	defaultPushTimeout = 10 * time.Second
)

// Logger defines the logging interface used by the cloudsync package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Report is one state push for one device.
type Report struct {
	DeviceID   string      `json:"device_id"`
	DeviceType string      `json:"device_type"`
	State      media.State `json:"state"`
	ReportedAt time.Time   `json:"reported_at"`
}

// Sink receives state reports. Push is called from the reporter's worker
// goroutine, one report at a time.
type Sink interface {
	Name() string
	Push(ctx context.Context, report Report) error
}

// Forgetter is implemented by sinks that keep per-device data which must
// be deleted when a device is removed.
type Forgetter interface {
	Forget(ctx context.Context, deviceID string) error
}

// ReporterOptions configures a Reporter.
type ReporterOptions struct {
	// QueueSize bounds the reports waiting for delivery (default 256).
	QueueSize int
	// PushTimeout bounds a single sink push (default 10s).
	PushTimeout time.Duration
	Logger      Logger
}

// Stats holds reporter counters.
type Stats struct {
	Queued    uint64 `json:"queued"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Reporter fans device state reports out to sinks.
//
// ReportState never blocks: reports are queued and delivered in order by
// a single worker goroutine. When the queue is full the report is dropped;
// the next change of the same device carries the full state again.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Reporter struct {
	sinks   []Sink
	queue   chan Report
	timeout time.Duration

	queued    atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64

	stopped   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex
}

// NewReporter creates a reporter delivering to sinks. Nil sinks are skipped.
func NewReporter(opts ReporterOptions, sinks ...Sink) *Reporter {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = defaultPushTimeout
	}

	r := &Reporter{
		queue:   make(chan Report, opts.QueueSize),
		timeout: opts.PushTimeout,
		logger:  opts.Logger,
	}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Start launches the delivery worker. Calling Start more than once has no effect.
func (r *Reporter) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		workerCtx, cancel := context.WithCancel(ctx)
		r.cancel = cancel
		r.wg.Add(1)
		go r.run(workerCtx)
		r.logInfo("cloud sync reporter started", "sinks", len(r.sinks))
	})
}

// Stop delivers the reports already queued and stops the worker.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
		r.logInfo("cloud sync reporter stopped",
			"delivered", r.delivered.Load(),
			"dropped", r.dropped.Load())
	})
}

// ReportState implements media.CloudSync.
func (r *Reporter) ReportState(_ context.Context, desc *media.Descriptor, state media.State) {
	if desc == nil {
		return
	}
	if err := r.Enqueue(Report{
		DeviceID:   desc.ID,
		DeviceType: desc.Type,
		State:      state.DeepCopy(),
		ReportedAt: time.Now().UTC(),
	}); err != nil {
		r.logWarn("state report dropped", "device_id", desc.ID, "error", err)
	}
}

// Enqueue queues a report without blocking.
// Returns ErrStopped after Stop and ErrQueueFull when the queue is full.
func (r *Reporter) Enqueue(report Report) error {
	if r.stopped.Load() {
		return ErrStopped
	}
	select {
	case r.queue <- report:
		r.queued.Add(1)
		return nil
	default:
		r.dropped.Add(1)
		return ErrQueueFull
	}
}

// Forget deletes per-device data from every sink that keeps any.
func (r *Reporter) Forget(ctx context.Context, deviceID string) error {
	var errs []error
	for _, s := range r.sinks {
		f, ok := s.(Forgetter)
		if !ok {
			continue
		}
		if err := f.Forget(ctx, deviceID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot of the reporter counters.
func (r *Reporter) Stats() Stats {
	return Stats{
		Queued:    r.queued.Load(),
		Delivered: r.delivered.Load(),
		Failed:    r.failed.Load(),
		Dropped:   r.dropped.Load(),
	}
}

func (r *Reporter) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case report := <-r.queue:
			r.deliver(report)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

// drain delivers whatever is still queued at shutdown.
func (r *Reporter) drain() {
	for {
		select {
		case report := <-r.queue:
			r.deliver(report)
		default:
			return
		}
	}
}

func (r *Reporter) deliver(report Report) {
	ok := true
	for _, s := range r.sinks {
		if err := r.push(s, report); err != nil {
			ok = false
			r.logError("state push failed", err, "sink", s.Name(), "device_id", report.DeviceID)
		}
	}
	if ok {
		r.delivered.Add(1)
	} else {
		r.failed.Add(1)
	}
}

// push runs one sink with its own timeout and recovers sink panics.
func (r *Reporter) push(s Sink, report Report) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sink panic: %v", rec)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return s.Push(ctx, report)
}

// SetLogger sets the logger for the reporter.
func (r *Reporter) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Reporter) getLogger() Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

func (r *Reporter) logInfo(msg string, keysAndValues ...any) {
	if logger := r.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (r *Reporter) logWarn(msg string, keysAndValues ...any) {
	if logger := r.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (r *Reporter) logError(msg string, err error, keysAndValues ...any) {
	if logger := r.getLogger(); logger != nil {
		logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
