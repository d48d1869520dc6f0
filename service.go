// Package transcript is the annotation engine behind the voice-recording
// module: it ingests finalized speech-to-text segments, extracts structured
// todo and schedule entities from their text through a remote extraction
// service (with a local marker-grammar fallback), and emits the entities to
// registered consumers. Highlight resolution and timeline math live in the
// highlight and timeindex packages; this package owns scheduling, fallback
// and emission.
package transcript

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lifetrace/transcript/internal/extractq"
	"github.com/lifetrace/transcript/internal/markers"
	"github.com/lifetrace/transcript/internal/remote"
	"github.com/lifetrace/transcript/internal/types"
	"github.com/lifetrace/transcript/segmentstore"
)

// Extractor is the remote extraction collaborator. Implementations must
// treat a zero-result response as success.
type Extractor interface {
	ExtractTodos(ctx context.Context, req ExtractionRequest) ([]RawTodo, error)
	ExtractSchedules(ctx context.Context, req ExtractionRequest) ([]RawSchedule, error)
}

// EntityHandler consumes one extracted entity.
type EntityHandler func(ExtractedEntity)

// ErrorHandler observes extraction failures. Observability only: by the
// time it fires the worker has already recovered via the local fallback.
type ErrorHandler func(error)

// Service owns the extraction queue, the worker loop, and the emission
// path. Construct with New, hand it to whatever owns the recording
// session, and Close it when the session ends.
type Service struct {
	extractor Extractor
	store     *segmentstore.Store
	log       zerolog.Logger

	baseURL     string
	httpTimeout time.Duration
	maxAttempts int
	debounce    time.Duration

	queue *extractq.Queue

	mu        sync.Mutex
	onEntity  []EntityHandler
	onError   []ErrorHandler
	unclaimed []ExtractedEntity // emitted before any handler registered

	closedOnce uint32
}

// New constructs a Service talking to the extraction service at baseURL.
// An empty baseURL (and no WithExtractor option) puts the service in
// local-fallback-only mode, the degraded behaviour used when no extraction
// backend is configured.
func New(baseURL string, opts ...Option) *Service {
	s := &Service{
		baseURL:     baseURL,
		log:         zerolog.Nop(),
		httpTimeout: 20 * time.Second,
		debounce:    extractq.DefaultDebounce,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			panic(err)
		}
	}
	if s.extractor == nil && s.baseURL != "" {
		s.extractor = remote.New(s.baseURL, remote.Config{
			Timeout:     s.httpTimeout,
			MaxAttempts: s.maxAttempts,
		}, s.log)
	}
	if s.extractor == nil {
		s.log.Warn().Msg("no extraction backend configured, using local fallback only")
	}

	s.queue = extractq.New(extractq.Config{
		Debounce: s.debounce,
		Logger:   s.log,
	}, s.process)
	return s
}

// Enqueue submits a segment for extraction and reports whether it was
// accepted. Interim segments, blank segments, duplicates of a queued or
// in-flight id, and submissions after Close are all silent no-ops.
// Safe for concurrent use.
func (s *Service) Enqueue(seg TranscriptSegment) bool {
	if atomic.LoadUint32(&s.closedOnce) == 1 {
		return false
	}
	return s.queue.Enqueue(seg)
}

// Status returns the queue length and whether a segment is being
// processed. Observability only.
func (s *Service) Status() (queueLen int, processing bool) {
	return s.queue.Status()
}

// OnEntityExtracted registers a consumer for extracted entities. Entities
// emitted while no consumer was registered are buffered; drain them with
// PendingEntities.
func (s *Service) OnEntityExtracted(fn EntityHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEntity = append(s.onEntity, fn)
}

// OnError registers an observer for extraction failures.
func (s *Service) OnError(fn ErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
}

// PendingEntities returns and clears the entities that were emitted while
// no consumer was registered. The worker never drops an entity just
// because nobody was listening yet.
func (s *Service) PendingEntities() []ExtractedEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.unclaimed
	s.unclaimed = nil
	pendingEntities.Set(0)
	return out
}

// Close stops the worker after draining the queue. The drain runs under a
// cancelled context, so in-flight remote calls abort and remaining
// segments take the local fallback; Close returns promptly even during an
// extraction-service outage. Idempotent.
func (s *Service) Close() error {
	if !atomic.CompareAndSwapUint32(&s.closedOnce, 0, 1) {
		return nil
	}
	s.queue.Stop()
	return nil
}

// ------------------------- worker -------------------------

// process handles one dequeued segment: remote extraction per endpoint,
// independent local fallback on failure, ordered emission (todos first,
// then schedules, each in extractor order).
func (s *Service) process(ctx context.Context, seg types.TranscriptSegment) {
	text := seg.EffectiveText()
	req := ExtractionRequest{
		Text:            text,
		ReferenceTime:   seg.Timestamp,
		SourceSegmentID: seg.ID,
	}

	todos := s.extractTodos(ctx, req, seg)
	schedules := s.extractSchedules(ctx, req, seg)

	now := time.Now().UTC()
	var entities []ExtractedEntity
	for _, t := range todos {
		entities = append(entities, todoEntity(seg.ID, now, t))
	}
	for _, sc := range schedules {
		entities = append(entities, scheduleEntity(seg.ID, now, sc))
	}

	for i := range entities {
		s.emit(entities[i])
	}

	if s.store != nil && (len(todos) > 0 || len(schedules) > 0) {
		// Quick local write, deliberately not tied to the worker context:
		// flags found during a shutdown drain must still be recorded.
		if err := s.store.SetExtractionFlags(context.Background(), seg.ID, len(todos) > 0, len(schedules) > 0); err != nil {
			s.log.Error().Err(err).Str("segment", seg.ID).Msg("set extraction flags")
		}
	}

	s.log.Debug().
		Str("segment", seg.ID).
		Int("todos", len(todos)).
		Int("schedules", len(schedules)).
		Msg("segment processed")
}

func (s *Service) extractTodos(ctx context.Context, req ExtractionRequest, seg types.TranscriptSegment) []RawTodo {
	if s.extractor == nil {
		fallbackTotal.WithLabelValues(string(types.EntityTodo)).Inc()
		return markers.ParseTodos(req.Text, seg.Timestamp)
	}
	todos, err := s.extractor.ExtractTodos(ctx, req)
	if err != nil {
		s.reportError(err)
		extractionFailures.WithLabelValues(string(types.EntityTodo)).Inc()
		fallbackTotal.WithLabelValues(string(types.EntityTodo)).Inc()
		return markers.ParseTodos(req.Text, seg.Timestamp)
	}
	return todos
}

func (s *Service) extractSchedules(ctx context.Context, req ExtractionRequest, seg types.TranscriptSegment) []RawSchedule {
	if s.extractor == nil {
		fallbackTotal.WithLabelValues(string(types.EntitySchedule)).Inc()
		return markers.ParseSchedules(req.Text, seg.Timestamp)
	}
	schedules, err := s.extractor.ExtractSchedules(ctx, req)
	if err != nil {
		s.reportError(err)
		extractionFailures.WithLabelValues(string(types.EntitySchedule)).Inc()
		fallbackTotal.WithLabelValues(string(types.EntitySchedule)).Inc()
		return markers.ParseSchedules(req.Text, seg.Timestamp)
	}
	return schedules
}

// emit delivers one entity to every registered consumer, or buffers it
// when none is registered yet.
func (s *Service) emit(e ExtractedEntity) {
	entitiesExtracted.WithLabelValues(string(e.Kind)).Inc()

	s.mu.Lock()
	if len(s.onEntity) == 0 {
		s.unclaimed = append(s.unclaimed, e)
		pendingEntities.Set(float64(len(s.unclaimed)))
		s.mu.Unlock()
		return
	}
	handlers := make([]EntityHandler, len(s.onEntity))
	copy(handlers, s.onEntity)
	s.mu.Unlock()

	for _, fn := range handlers {
		s.safeCallEntity(fn, e)
	}
}

func (s *Service) safeCallEntity(fn EntityHandler, e ExtractedEntity) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("entity handler panic")
		}
	}()
	fn(e)
}

// reportError notifies error observers. Failures never halt the worker
// loop; the fallback has already kept the segment's extraction alive.
func (s *Service) reportError(err error) {
	s.log.Warn().Err(err).Msg("remote extraction failed, falling back to marker parsing")

	s.mu.Lock()
	handlers := make([]ErrorHandler, len(s.onError))
	copy(handlers, s.onError)
	s.mu.Unlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Interface("panic", r).Msg("error handler panic")
				}
			}()
			fn(err)
		}()
	}
}

// ------------------------- entity construction -------------------------

// todoEntity builds the immutable entity for one raw todo result. The
// source snippet defaults to the title, then the description, when the
// extractor returned none. Bounds pass through verbatim; consumers clamp.
func todoEntity(segmentID string, at time.Time, t RawTodo) ExtractedEntity {
	source := t.SourceText
	if source == "" {
		source = t.Title
	}
	if source == "" {
		source = t.Description
	}
	return ExtractedEntity{
		ID:              uuid.New().String(),
		Kind:            types.EntityTodo,
		SourceSegmentID: segmentID,
		ExtractedAt:     at,
		SourceText:      source,
		TextStartIndex:  t.TextStartIndex,
		TextEndIndex:    t.TextEndIndex,
		Title:           t.Title,
		Description:     t.Description,
		Deadline:        t.Deadline,
		Priority:        types.NormalizePriority(t.Priority),
	}
}

func scheduleEntity(segmentID string, at time.Time, sc RawSchedule) ExtractedEntity {
	source := sc.SourceText
	if source == "" {
		source = sc.Description
	}
	return ExtractedEntity{
		ID:              uuid.New().String(),
		Kind:            types.EntitySchedule,
		SourceSegmentID: segmentID,
		ExtractedAt:     at,
		SourceText:      source,
		TextStartIndex:  sc.TextStartIndex,
		TextEndIndex:    sc.TextEndIndex,
		Description:     sc.Description,
		ScheduleTime:    sc.ScheduleTime,
		Status:          normalizeStatus(sc.Status),
	}
}

func normalizeStatus(s string) types.ScheduleStatus {
	switch types.ScheduleStatus(s) {
	case types.ScheduleConfirmed, types.ScheduleCancelled:
		return types.ScheduleStatus(s)
	default:
		return types.SchedulePending
	}
}
