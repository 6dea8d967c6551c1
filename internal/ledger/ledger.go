package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
	"github.com/rajasatyajit/EcoScan/internal/logger"
	"github.com/rajasatyajit/EcoScan/internal/metrics"
	"github.com/rajasatyajit/EcoScan/internal/models"
)

// Blob keys for the event history and the point total
const (
	HistoryKey = "ecoscan_history"
	PointsKey  = "ecoscan_points"
)

// PointsPerScan is awarded on every Append, including duplicates
const PointsPerScan = 10

// Outcome describes what an Append did to the event sequence
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeBackfilled Outcome = "backfilled"
	OutcomeDuplicate  Outcome = "duplicate"
)

// Store is the persistence the ledger writes through to
type Store interface {
	Name() string
	Load(ctx context.Context, keys ...string) (map[string][]byte, error)
	Save(ctx context.Context, blobs map[string][]byte) error
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock injects the time source used for event timestamps
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithIDGenerator injects the event id generator
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// Ledger is the persisted, deduplicating sequence of scan events plus the
// point total. Events are kept most-recent-first; index 0 is the head.
type Ledger struct {
	mu     sync.Mutex
	store  Store
	events []models.ScanEvent
	points int
	clock  func() time.Time
	newID  func() string
}

// Open loads the ledger from st. Missing or unparsable blobs start empty
// (logged as a warning). A store read failure is returned together with a
// usable empty ledger, so callers may continue without prior state.
func Open(ctx context.Context, st Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:  st,
		events: []models.ScanEvent{},
		clock:  time.Now,
		newID:  newEventID,
	}
	for _, opt := range opts {
		opt(l)
	}

	blobs, err := st.Load(ctx, HistoryKey, PointsKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrCorruptState) {
			logger.WithContext(ctx).Warn("Stored ledger is corrupt; starting empty", "backend", st.Name(), "error", err)
			return l, nil
		}
		return l, apperrors.StoreError{Backend: st.Name(), Operation: "load", Err: err}
	}

	var problems apperrors.MultiError
	if raw, ok := blobs[HistoryKey]; ok {
		events, err := decodeHistory(raw)
		problems.Add(err)
		l.events = events
	}
	if raw, ok := blobs[PointsKey]; ok {
		points, err := decodePoints(raw)
		problems.Add(err)
		l.points = points
	}

	if problems.HasErrors() {
		logger.WithContext(ctx).Warn("Discarded unreadable ledger state",
			"backend", st.Name(),
			"problems", len(problems.Errors),
			"error", problems,
		)
	}

	logger.WithContext(ctx).Debug("Ledger opened",
		"backend", st.Name(),
		"events", len(l.events),
		"points", l.points,
	)
	return l, nil
}

// Append records a scan of productID. If the head event has the same
// product, no event is created: a missing snapshot on the head is filled
// from product, otherwise the call is a duplicate. Points grow by
// PointsPerScan in every case. A non-nil error is a persistence warning
// and the in-memory state is already updated.
func (l *Ledger) Append(ctx context.Context, productID string, product *models.Product) (Outcome, error) {
	if productID == "" {
		return "", apperrors.ValidationError{Field: "product_id", Message: "is required"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var outcome Outcome
	switch {
	case len(l.events) > 0 && l.events[0].ProductID == productID:
		if l.events[0].Product == nil && product != nil {
			l.events[0].Product = product.Snapshot()
			outcome = OutcomeBackfilled
		} else {
			outcome = OutcomeDuplicate
		}

	default:
		event := models.ScanEvent{
			ID:        l.newID(),
			ProductID: productID,
			Timestamp: l.clock().UTC(),
		}
		if product != nil {
			event.Product = product.Snapshot()
		}
		l.events = append([]models.ScanEvent{event}, l.events...)
		outcome = OutcomeCreated
	}

	l.points += PointsPerScan
	metrics.RecordLedgerAppend(string(outcome))

	logger.WithContext(ctx).Debug("Ledger append",
		"product_id", productID,
		"outcome", outcome,
		"points", l.points,
	)

	return outcome, l.persist(ctx)
}

// Clear removes every event and resets points in one mutation
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = []models.ScanEvent{}
	l.points = 0

	logger.WithContext(ctx).Info("Ledger cleared")
	return l.persist(ctx)
}

// Snapshot returns a copy of the events, most recent first
func (l *Ledger) Snapshot() []models.ScanEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyEvents(l.events)
}

// Query returns the events matching q, most recent first, paged by q
func (l *Ledger) Query(q models.HistoryQuery) []models.ScanEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]models.ScanEvent, 0, len(l.events))
	for _, e := range l.events {
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}
	return copyEvents(q.Page(matched))
}

// Head returns the most recent event
func (l *Ledger) Head() (models.ScanEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return models.ScanEvent{}, false
	}
	return copyEvents(l.events[:1])[0], true
}

// Points returns the point total
func (l *Ledger) Points() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.points
}

// Len returns the number of events
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// persist writes both blobs in one store operation. The write is detached
// from ctx cancellation so an applied mutation is not left unsaved.
func (l *Ledger) persist(ctx context.Context) error {
	history, err := json.Marshal(l.events)
	if err != nil {
		return apperrors.StoreError{Backend: l.store.Name(), Operation: "encode", Err: err}
	}

	start := time.Now()
	err = l.store.Save(context.WithoutCancel(ctx), map[string][]byte{
		HistoryKey: history,
		PointsKey:  []byte(strconv.Itoa(l.points)),
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordPersist(l.store.Name(), status, time.Since(start))

	if err != nil {
		logger.WithContext(ctx).Warn("Ledger persistence failed; in-memory state kept",
			"backend", l.store.Name(),
			"error", err,
		)
		return apperrors.StoreError{Backend: l.store.Name(), Operation: "save", Err: err}
	}
	return nil
}

func decodeHistory(raw []byte) ([]models.ScanEvent, error) {
	var events []models.ScanEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return []models.ScanEvent{}, fmt.Errorf("%w: %s: %v", apperrors.ErrCorruptState, HistoryKey, err)
	}
	if events == nil {
		events = []models.ScanEvent{}
	}
	return events, nil
}

func decodePoints(raw []byte) (int, error) {
	points, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", apperrors.ErrCorruptState, PointsKey, err)
	}
	if points < 0 {
		return 0, fmt.Errorf("%w: %s: negative total %d", apperrors.ErrCorruptState, PointsKey, points)
	}
	return points, nil
}

func copyEvents(events []models.ScanEvent) []models.ScanEvent {
	out := make([]models.ScanEvent, len(events))
	for i, e := range events {
		if e.Product != nil {
			snap := *e.Product
			e.Product = &snap
		}
		out[i] = e
	}
	return out
}

// newEventID returns a time-ordered UUIDv7, falling back to a random v4
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
