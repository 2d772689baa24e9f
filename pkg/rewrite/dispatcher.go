package rewrite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eiz/chatgpt-wd/pkg/llm"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultConcurrency is the number of completion requests in flight when
// WithConcurrency is not given.
const DefaultConcurrency = 8

// Dispatcher runs the completion and mutation pipeline for a batch of tasks.
// A Dispatcher may be reused for several batches but Dispatch calls must not
// overlap on the same session.
type Dispatcher struct {
	completer   llm.Completer
	template    *llm.Template
	mutator     Mutator
	concurrency int
	sink        ErrorSink
	limiter     *rate.Limiter
	transform   func(string) string
	metrics     *Metrics
	observer    func(Outcome)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency bounds the number of completion requests in flight.
// Values below one are treated as one.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n < 1 {
			n = 1
		}
		d.concurrency = n
	}
}

// WithErrorSink routes failed tasks to sink.
func WithErrorSink(sink ErrorSink) Option {
	return func(d *Dispatcher) {
		d.sink = sink
	}
}

// WithRateLimit spaces completion requests to at most rps per second with
// the given burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Dispatcher) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTransform post-processes every reply before it is written.
func WithTransform(fn func(string) string) Option {
	return func(d *Dispatcher) {
		d.transform = fn
	}
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithObserver is called once per task with its final outcome. It may be
// called from several goroutines at once.
func WithObserver(fn func(Outcome)) Option {
	return func(d *Dispatcher) {
		d.observer = fn
	}
}

// NewDispatcher creates a dispatcher that builds requests from template,
// sends them to completer and applies the replies with mutator.
func NewDispatcher(completer llm.Completer, template *llm.Template, mutator Mutator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		completer:   completer,
		template:    template,
		mutator:     mutator,
		concurrency: DefaultConcurrency,
		sink:        ErrorSinkFunc(func(Task, error) {}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// mutation is a reply waiting for the session writer
type mutation struct {
	index int
	task  Task
	text  string
}

// Dispatch processes every task and returns once each has an outcome.
//
// Tasks are admitted in slice order with at most the configured number of
// completion requests outstanding. Successful replies are queued to a single
// writer goroutine that applies them one at a time, so mutation commands
// never overlap. The completion slot is released as soon as the reply is
// queued. A failure is reported to the ErrorSink and affects only its task.
func (d *Dispatcher) Dispatch(ctx context.Context, tasks []Task) *Report {
	report := &Report{Outcomes: make([]Outcome, len(tasks))}
	if len(tasks) == 0 {
		return report
	}

	// Sized to the batch so a pipeline never waits on the writer
	queue := make(chan mutation, len(tasks))
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for m := range queue {
			report.Outcomes[m.index] = d.apply(ctx, m)
		}
	}()

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			text, err := d.complete(ctx, task)
			if err != nil {
				report.Outcomes[i] = d.fail(task, err, OutcomeCompletionError)
				return nil
			}
			queue <- mutation{index: i, task: task, text: text}
			return nil
		})
	}

	_ = g.Wait()
	close(queue)
	<-writerDone
	return report
}

// complete runs the request half of a pipeline: rate limit, build, send and
// transform.
func (d *Dispatcher) complete(ctx context.Context, task Task) (string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	req := d.template.Build(task.Text)

	done := d.metrics.completionStarted()
	result, err := d.completer.Complete(ctx, req)
	done()
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("%w: completer returned no result", llm.ErrMalformedResponse)
	}
	d.metrics.observeUsage(result.Usage)

	text := result.Text
	if d.transform != nil {
		text = d.transform(text)
	}
	return text, nil
}

// apply runs on the writer goroutine only.
func (d *Dispatcher) apply(ctx context.Context, m mutation) Outcome {
	start := time.Now()
	err := d.mutator.Apply(ctx, m.task, m.text)
	d.metrics.observeMutation(time.Since(start))

	if err != nil {
		var me *MutationError
		if !errors.As(err, &me) {
			err = &MutationError{TaskID: m.task.ID, Err: err}
		}
		return d.fail(m.task, err, OutcomeMutationError)
	}

	outcome := Outcome{TaskID: m.task.ID, Source: m.task.Text, Text: m.text}
	d.metrics.observeOutcome(OutcomeSuccess)
	d.notify(outcome)
	return outcome
}

func (d *Dispatcher) fail(task Task, err error, label string) Outcome {
	d.report(task, err)
	outcome := Outcome{TaskID: task.ID, Source: task.Text, Err: err}
	d.metrics.observeOutcome(label)
	d.notify(outcome)
	return outcome
}

// report shields the pipeline from a panicking sink.
func (d *Dispatcher) report(task Task, err error) {
	defer func() { _ = recover() }()
	d.sink.Report(task, err)
}

func (d *Dispatcher) notify(o Outcome) {
	if d.observer != nil {
		d.observer(o)
	}
}
