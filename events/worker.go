package events

import (
	"context"
	"log/slog"

	"github.com/printerlink/agent/engine"
	"golang.org/x/time/rate"
)

// MaxQueueSize bounds the worker's internal queue, mirroring the
// original's _MAX_QUEUE_SIZE.
const MaxQueueSize = 10000

type queueItem struct {
	topic   string
	payload any
}

// Worker is a bounded-queue asynchronous dispatcher sitting in front of a
// Bus: producers call Submit (which never drops a message, only ever
// blocks once the queue is saturated) and a single goroutine drains the
// queue into Bus.Dispatch. An optional rate.Limiter paces how fast queued
// items are handed to the bus's listeners, so a burst of submissions
// doesn't run every listener in a single instant.
type Worker struct {
	bus     *Bus
	queue   chan queueItem
	logger  *slog.Logger
	limiter *rate.Limiter
	stop    *engine.Stoppable
}

// NewWorker builds a Worker over bus. limiter may be nil to disable
// pacing entirely.
func NewWorker(bus *Bus, logger *slog.Logger, limiter *rate.Limiter) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		bus:     bus,
		queue:   make(chan queueItem, MaxQueueSize),
		logger:  logger,
		limiter: limiter,
		stop:    engine.NewStoppable(),
	}
}

// Submit enqueues a dispatch. It blocks (rather than dropping) once the
// queue is full, logging a warning the moment it detects saturation so
// operators can see degraded throughput without losing events.
func (w *Worker) Submit(topic string, payload any) {
	if w.stop.IsStopped() {
		return
	}
	if len(w.queue) >= cap(w.queue) {
		w.logger.Warn("event worker queue is full, expect degraded performance",
			"component", "events.worker", "pending", len(w.queue))
	}
	w.queue <- queueItem{topic: topic, payload: payload}
}

// Run drains the queue until ctx is done or Stop is called. It's meant to
// be handed to an engine.ProcMgr as a Proc.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-w.queue:
			if w.limiter != nil {
				if err := w.limiter.Wait(ctx); err != nil {
					return ctx.Err()
				}
			}
			w.bus.Dispatch(item.topic, item.payload, func(topic string, err error) {
				w.logger.Error("error while processing event", "component", "events.worker", "topic", topic, "err", err)
			})
		case <-w.stop.Done():
			for {
				select {
				case item := <-w.queue:
					w.bus.Dispatch(item.topic, item.payload, func(topic string, err error) {
						w.logger.Error("error while processing event", "component", "events.worker", "topic", topic, "err", err)
					})
				default:
					return nil
				}
			}
		}
	}
}

// Stop signals the worker to stop accepting new submissions; Run then
// dispatches the items already queued (without rate pacing) and returns.
func (w *Worker) Stop() { w.stop.Stop() }

// Dispatch implements Dispatcher by submitting to the queue instead of
// calling the underlying Bus in-line. errs is ignored: a queued item's
// eventual dispatch happens on Run's goroutine, long after this call
// returns, so there's no synchronous point left to hand an error back to
// — Run already logs failures through the ErrorFunc it was built with.
func (w *Worker) Dispatch(topic string, payload any, _ ErrorFunc) { w.Submit(topic, payload) }
