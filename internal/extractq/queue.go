// Package extractq is the ordered, de-duplicated work queue feeding the
// extraction worker. One segment id is tracked at most once across the
// queued and in-flight states, segments are processed in FIFO order by a
// single worker goroutine, and a fixed debounce before each segment
// absorbs bursts of short segments arriving in quick succession.
//
// Enqueue is safe for concurrent use by multiple producers; everything
// else about ordering relies on the single worker.
package extractq

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifetrace/transcript/internal/types"
)

// DefaultDebounce is the pause before each dequeued segment is processed.
const DefaultDebounce = 300 * time.Millisecond

// Handler processes one dequeued segment. It must not panic-propagate
// failures; extraction errors are the handler's concern, the queue only
// guarantees delivery and ordering.
type Handler func(ctx context.Context, seg types.TranscriptSegment)

// Config tunes a Queue. Zero values get defaults.
type Config struct {
	Debounce time.Duration
	Logger   zerolog.Logger
}

// Queue owns the pending segment list and the worker goroutine.
type Queue struct {
	cfg     Config
	handler Handler

	mu         sync.Mutex
	pending    []types.TranscriptSegment
	tracked    map[string]struct{} // ids queued or in-flight
	processing bool

	wake   chan struct{}      // capacity 1, nudges the worker
	done   chan struct{}      // closed in Stop
	cancel context.CancelFunc // aborts in-flight handler work on Stop
	closed uint32
	wg     sync.WaitGroup
}

// New constructs the queue and starts its worker.
func New(cfg Config, handler Handler) *Queue {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:     cfg,
		handler: handler,
		tracked: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	q.wg.Add(1)
	go q.run(ctx)
	return q
}

// Enqueue appends seg to the back of the queue and reports whether it was
// accepted. Interim segments, segments with blank effective text, and ids
// already queued or in-flight are silently skipped; none of these is an
// error.
func (q *Queue) Enqueue(seg types.TranscriptSegment) bool {
	if atomic.LoadUint32(&q.closed) == 1 {
		return false
	}
	if seg.IsInterim {
		rejectedTotal.WithLabelValues(reasonInterim).Inc()
		return false
	}
	if strings.TrimSpace(seg.EffectiveText()) == "" {
		rejectedTotal.WithLabelValues(reasonEmpty).Inc()
		return false
	}

	q.mu.Lock()
	// Re-checked under the lock: Stop flips closed under the same lock, so
	// an accept here is ordered before the drain's final empty pop and the
	// segment cannot be stranded.
	if atomic.LoadUint32(&q.closed) == 1 {
		q.mu.Unlock()
		return false
	}
	if _, dup := q.tracked[seg.ID]; dup {
		q.mu.Unlock()
		rejectedTotal.WithLabelValues(reasonDuplicate).Inc()
		return false
	}
	q.tracked[seg.ID] = struct{}{}
	q.pending = append(q.pending, seg)
	depth := len(q.pending)
	q.mu.Unlock()

	enqueuedTotal.Inc()
	queueDepth.Set(float64(depth))

	// Nudge the worker if it is idle.
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Status returns the queue length and whether a segment is in flight.
// Observability only; not a synchronization primitive.
func (q *Queue) Status() (queueLen int, processing bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), q.processing
}

// Stop cancels the worker context, drains any remaining segments (without
// debounce), waits for the worker to terminate and returns. Handlers see a
// cancelled context during the drain, so remote work aborts promptly and
// shutdown stays bounded. Idempotent and safe for concurrent use.
func (q *Queue) Stop() {
	// The flag is flipped under q.mu so it is totally ordered against the
	// closed check in Enqueue: a segment accepted there is already in
	// pending when the drain below starts popping.
	q.mu.Lock()
	if !atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.cancel()
	close(q.done)
	q.wg.Wait()
}

// ------------------------- worker -------------------------

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			q.cfg.Logger.Error().Interface("panic", r).Msg("extractq: worker panic")
		}
	}()

	for {
		select {
		case <-q.done:
			q.drain(ctx)
			return
		case <-q.wake:
			q.processAll(ctx)
		}
	}
}

// processAll handles queued segments until the queue is empty, debouncing
// before each one. The debounce is not per-segment cancellable; only Stop
// cuts it short, and then the segment is still handled in drain mode.
func (q *Queue) processAll(ctx context.Context) {
	for {
		seg, ok := q.pop()
		if !ok {
			return
		}

		select {
		case <-time.After(q.cfg.Debounce):
		case <-q.done:
			q.handle(ctx, seg)
			q.drain(ctx)
			return
		}

		q.handle(ctx, seg)
	}
}

// drain handles everything still queued, preserving FIFO, so accepted
// segments are never silently dropped by shutdown.
func (q *Queue) drain(ctx context.Context) {
	n := 0
	for {
		seg, ok := q.pop()
		if !ok {
			break
		}
		q.handle(ctx, seg)
		n++
	}
	if n > 0 {
		q.cfg.Logger.Info().Int("segments", n).Msg("extractq: drained on stop")
	}
	queueDepth.Set(0)
}

// pop removes the head of the queue and marks the worker busy. The id
// stays tracked until handle finishes, so a concurrent re-enqueue of the
// in-flight segment is still a duplicate.
func (q *Queue) pop() (types.TranscriptSegment, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		q.processing = false
		return types.TranscriptSegment{}, false
	}
	seg := q.pending[0]
	q.pending = q.pending[1:]
	q.processing = true
	queueDepth.Set(float64(len(q.pending)))
	return seg, true
}

func (q *Queue) handle(ctx context.Context, seg types.TranscriptSegment) {
	defer func() {
		if r := recover(); r != nil {
			q.cfg.Logger.Error().Interface("panic", r).Str("segment", seg.ID).Msg("extractq: handler panic")
		}
		q.mu.Lock()
		delete(q.tracked, seg.ID)
		q.mu.Unlock()
	}()

	start := time.Now()
	q.handler(ctx, seg)
	processDuration.Observe(time.Since(start).Seconds())
}
