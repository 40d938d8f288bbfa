package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/keyflick/internal/session"
	"github.com/ayusman/keyflick/internal/store"
)

// QueueSize is the number of pending runs a Dispatcher buffers before it
// drops new ones.
const QueueSize = 64

// Runner executes a plugin request.
type Runner interface {
	Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error)
}

// Run records one dispatched binding.
type Run struct {
	Binding  *store.Binding
	Response *Response
	Err      error
	Duration time.Duration
}

type job struct {
	binding *store.Binding
	plugin  *Plugin
	req     *Request
}

// Dispatcher runs the plugin actions bound to recognized results. Runs
// execute one at a time in the order their outcomes were observed.
type Dispatcher struct {
	plugins  *Manager
	bindings *store.BindingRepository
	runner   Runner
	onRun    func(Run)

	queue  chan job
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts a dispatcher. Close must be called to stop it.
func NewDispatcher(plugins *Manager, bindings *store.BindingRepository, runner Runner) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		plugins:  plugins,
		bindings: bindings,
		runner:   runner,
		queue:    make(chan job, QueueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go d.loop()
	return d
}

// OnRun registers a callback for every finished or rejected run. It must
// be set before the first Observe.
func (d *Dispatcher) OnRun(fn func(Run)) {
	d.onRun = fn
}

// Observe queues the bindings that match out and source.
func (d *Dispatcher) Observe(source string, out session.Outcome) {
	label := out.Result.String()
	bindings, err := d.bindings.ListByGesture(label)
	if err != nil {
		slog.Error("failed to look up bindings", "gesture", label, "error", err)
		return
	}

	for _, b := range bindings {
		if !b.Matches(source) {
			continue
		}

		p, err := d.resolve(b)
		if err != nil {
			slog.Warn("binding skipped", "binding", b.ID, "error", err)
			d.report(Run{Binding: b, Err: err})
			continue
		}

		d.enqueue(job{
			binding: b,
			plugin:  p,
			req:     &Request{Action: b.Action, Gesture: label, Source: source, Params: b.Params},
		})
	}
}

func (d *Dispatcher) resolve(b *store.Binding) (*Plugin, error) {
	p, err := d.plugins.Get(b.Plugin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Plugin, err)
	}
	if !p.Manifest.HasAction(b.Action) {
		return nil, fmt.Errorf("plugin %s has no action %q", b.Plugin, b.Action)
	}
	return p, nil
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	select {
	case d.queue <- j:
	default:
		err := fmt.Errorf("dispatch queue full")
		slog.Warn("plugin run dropped", "binding", j.binding.ID, "error", err)
		d.report(Run{Binding: j.binding, Err: err})
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	for j := range d.queue {
		start := time.Now()
		resp, err := d.runner.Execute(d.ctx, j.plugin, j.req)
		run := Run{Binding: j.binding, Response: resp, Err: err, Duration: time.Since(start)}

		if err != nil {
			slog.Warn("plugin run failed", "plugin", j.plugin.Manifest.Name, "action", j.req.Action, "gesture", j.req.Gesture, "error", err)
		} else {
			slog.Debug("plugin run", "plugin", j.plugin.Manifest.Name, "action", j.req.Action, "gesture", j.req.Gesture, "duration", run.Duration)
		}
		d.report(run)
	}
}

func (d *Dispatcher) report(r Run) {
	if d.onRun != nil {
		d.onRun(r)
	}
}

// Close stops accepting runs and waits for queued ones to finish or for
// ctx to expire, in which case the run in progress is cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}
