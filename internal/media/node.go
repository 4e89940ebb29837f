package media

import (
	"context"
	"fmt"
	"sync"
)

// defaultQueueSize is the number of pending events buffered per device.
const defaultQueueSize = 64

// Node is one registered media device. It owns the device's descriptor,
// state store, update handler and command executor, and runs every event
// for the device on a single goroutine so state changes never interleave.
type Node struct {
	desc     *Descriptor
	store    *Store
	handler  *Handler
	executor *Executor
	logger   Logger

	jobs      chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newNode(desc *Descriptor, store *Store, handler *Handler, executor *Executor, queueSize int, logger Logger) *Node {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	n := &Node{
		desc:     desc,
		store:    store,
		handler:  handler,
		executor: executor,
		logger:   logger,
		jobs:     make(chan func(), queueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go n.run()
	return n
}

// ID returns the device ID.
func (n *Node) ID() string { return n.desc.ID }

// Descriptor returns a copy of the device descriptor.
func (n *Node) Descriptor() *Descriptor { return n.desc.Clone() }

// State returns a copy of the current device state.
func (n *Node) State() State { return n.store.Snapshot() }

// Deliver queues an inbound flow message. It blocks only while the
// device's queue is full.
func (n *Node) Deliver(ctx context.Context, msg Message) error {
	return n.submit(ctx, func() {
		_ = n.handler.Handle(context.WithoutCancel(ctx), msg) //nolint:errcheck // Handler logs its own failures
	})
}

// Execute runs a command on the device queue and waits for the outcome.
// ok is false when the command was not handled.
func (n *Node) Execute(ctx context.Context, cmd Command) (result *ExecutionResult, ok bool, err error) {
	type outcome struct {
		result *ExecutionResult
		ok     bool
	}
	resCh := make(chan outcome, 1)

	err = n.submit(ctx, func() {
		// The caller may have given up while the job waited in the queue.
		if ctx.Err() != nil {
			return
		}
		r, handled := n.executor.Execute(ctx, n.desc, cmd)
		if handled && ctx.Err() != nil {
			return
		}
		if handled {
			n.handler.ApplyExecution(context.WithoutCancel(ctx), cmd, r)
		}
		resCh <- outcome{result: r, ok: handled}
	})
	if err != nil {
		return nil, false, err
	}

	select {
	case out := <-resCh:
		return out.result, out.ok, nil
	case <-n.stopped:
		return nil, false, ErrNodeClosed
	case <-ctx.Done():
		return nil, false, fmt.Errorf("executing %s on %s: %w", cmd.Name, n.desc.ID, ctx.Err())
	}
}

func (n *Node) submit(ctx context.Context, job func()) error {
	select {
	case <-n.done:
		return ErrNodeClosed
	default:
	}

	select {
	case n.jobs <- job:
		return nil
	case <-n.done:
		return ErrNodeClosed
	case <-ctx.Done():
		return fmt.Errorf("queueing event for %s: %w", n.desc.ID, ctx.Err())
	}
}

// run is the device's event loop.
func (n *Node) run() {
	defer close(n.stopped)
	for {
		select {
		case job := <-n.jobs:
			n.runJob(job)
		case <-n.done:
			return
		}
	}
}

// runJob executes one event, recovering from panics so a bad message
// cannot stop the device.
func (n *Node) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("media event panic recovered", "device_id", n.desc.ID, "panic", r)
		}
	}()
	job()
}

// close stops the event loop and waits for the in-flight event to finish.
// Queued events that have not started are dropped.
func (n *Node) close() {
	n.closeOnce.Do(func() {
		close(n.done)
		<-n.stopped
	})
}
