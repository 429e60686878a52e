package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"campusBooks/business/reco"
	"campusBooks/domain"
	"campusBooks/pkg/logger"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"gorm.io/datatypes"
)

var (
	ErrInvalidImpression = errors.New("invalid impression")
	ErrInvalidClick      = errors.New("invalid click")
	ErrTrackerClosed     = errors.New("tracker closed")
	ErrQueueFull         = errors.New("tracking queue full")
)

const maxSessionIDLength = 100

// ---- Repository interfaces ----

// ImpressionRepository stores impressions. SaveImpression reports inserted=false
// when a row for the same (session, type, day) already exists.
type ImpressionRepository interface {
	SaveImpression(ctx context.Context, imp domain.RecommendationImpression) (bool, error)
}

type ClickRepository interface {
	SaveClick(ctx context.Context, click domain.RecommendationClick) error
}

// Deduper is an optional fast path in front of the impression store.
// FirstSeen returns true only for the first caller of a key within ttl.
type Deduper interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type ImpressionInput struct {
	SessionID       string
	UserID          *uint
	Type            domain.RecommendationType
	Count           int
	PageType        string
	SourceListingID *uint64
}

type ClickInput struct {
	UserID          *uint
	ListingID       uint64
	Type            domain.RecommendationType
	Position        int
	SourceListingID *uint64
	SourceLabel     domain.SlotLabel
}

type Config struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
	// Location decides where a calendar day starts for impression dedup.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		QueueSize:    1024,
		Workers:      2,
		WriteTimeout: 2 * time.Second,
		Location:     time.UTC,
	}
}

type job struct {
	traceID    string
	impression *domain.RecommendationImpression
	click      *domain.RecommendationClick
}

// Tracker records impressions and clicks off the request path through a
// bounded queue drained by background workers.
type Tracker struct {
	impressions ImpressionRepository
	clicks      ClickRepository
	dedup       Deduper
	cfg         Config
	now         func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     conc.WaitGroup
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker starts the drain workers. dedup may be nil.
func NewTracker(impressions ImpressionRepository, clicks ClickRepository, dedup Deduper, cfg Config, opts ...Option) *Tracker {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}

	t := &Tracker{
		impressions: impressions,
		clicks:      clicks,
		dedup:       dedup,
		cfg:         cfg,
		now:         time.Now,
		queue:       make(chan job, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(t)
	}

	for i := 0; i < cfg.Workers; i++ {
		t.wg.Go(t.drain)
	}

	return t
}

// RecordImpression validates and enqueues an impression. It never waits on storage.
func (t *Tracker) RecordImpression(ctx context.Context, in ImpressionInput) error {
	in.SessionID = strings.TrimSpace(in.SessionID)
	switch {
	case in.SessionID == "":
		return fmt.Errorf("%w: session id is required", ErrInvalidImpression)
	case len(in.SessionID) > maxSessionIDLength:
		return fmt.Errorf("%w: session id longer than %d", ErrInvalidImpression, maxSessionIDLength)
	case in.Count <= 0:
		return fmt.Errorf("%w: count must be positive", ErrInvalidImpression)
	}
	typ, err := domain.ParseRecommendationType(string(in.Type))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImpression, err)
	}

	now := t.now()
	imp := domain.RecommendationImpression{
		SessionID:       in.SessionID,
		UserID:          in.UserID,
		Type:            typ,
		Count:           in.Count,
		PageType:        in.PageType,
		SourceListingID: in.SourceListingID,
		ImpressionDay:   datatypes.Date(dayStart(now, t.cfg.Location)),
		ImpressedAt:     now,
	}

	return t.enqueue(ctx, job{impression: &imp}, "impression")
}

// RecordClick validates and enqueues a click. It never waits on storage.
func (t *Tracker) RecordClick(ctx context.Context, in ClickInput) error {
	switch {
	case in.ListingID == 0:
		return fmt.Errorf("%w: listing id is required", ErrInvalidClick)
	case in.Position < 0:
		return fmt.Errorf("%w: position must not be negative", ErrInvalidClick)
	}
	typ, err := domain.ParseRecommendationType(string(in.Type))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClick, err)
	}
	if in.SourceLabel == "" {
		in.SourceLabel = domain.SlotPersonalized
	}
	label, err := domain.ParseSlotLabel(string(in.SourceLabel))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClick, err)
	}

	click := domain.RecommendationClick{
		UserID:          in.UserID,
		ListingID:       in.ListingID,
		Type:            typ,
		Position:        in.Position,
		SourceListingID: in.SourceListingID,
		SourceLabel:     label,
		ClickedAt:       t.now(),
	}

	return t.enqueue(ctx, job{click: &click}, "click")
}

func (t *Tracker) enqueue(ctx context.Context, j job, kind string) error {
	j.traceID = reco.TraceIDFromContext(ctx)

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		TrackerEventsTotal.WithLabelValues(kind, "dropped").Inc()
		return ErrTrackerClosed
	}

	select {
	case t.queue <- j:
		return nil
	default:
		TrackerEventsTotal.WithLabelValues(kind, "dropped").Inc()
		logger.Warn("tracker_queue_full", "trace_id", j.traceID, "kind", kind, "queue_size", t.cfg.QueueSize)
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued records until ctx is done.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := t.wg.WaitAndRecover(); r != nil {
			logger.Error("tracker_worker_panic", "panic", r.String())
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tracker drain interrupted: %w", ctx.Err())
	}
}

func (t *Tracker) drain() {
	for j := range t.queue {
		var pc panics.Catcher
		pc.Try(func() { t.handle(j) })
		if r := pc.Recovered(); r != nil {
			logger.Error("tracker_job_panic", "trace_id", j.traceID, "panic", r.String())
		}
	}
}

func (t *Tracker) handle(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.WriteTimeout)
	defer cancel()

	switch {
	case j.impression != nil:
		t.saveImpression(ctx, j.traceID, *j.impression)
	case j.click != nil:
		t.saveClick(ctx, j.traceID, *j.click)
	}
}

func (t *Tracker) saveImpression(ctx context.Context, traceID string, imp domain.RecommendationImpression) {
	if t.dedup != nil {
		day := time.Time(imp.ImpressionDay)
		first, err := t.dedup.FirstSeen(ctx, dedupKey(imp.SessionID, imp.Type, day), ttlUntilNextDay(imp.ImpressedAt, t.cfg.Location))
		if err != nil {
			// the unique index still guards duplicates
			logger.Warn("tracker_dedup_failed", "trace_id", traceID, "error", err)
		} else if !first {
			TrackerEventsTotal.WithLabelValues("impression", "deduplicated").Inc()
			return
		}
	}

	inserted, err := t.impressions.SaveImpression(ctx, imp)
	if err != nil {
		TrackerEventsTotal.WithLabelValues("impression", "failed").Inc()
		logger.Error("tracker_save_impression_failed",
			"trace_id", traceID,
			"session_id", imp.SessionID,
			"type", imp.Type,
			"error", err,
		)
		return
	}
	if !inserted {
		TrackerEventsTotal.WithLabelValues("impression", "deduplicated").Inc()
		return
	}

	TrackerEventsTotal.WithLabelValues("impression", "recorded").Inc()
}

func (t *Tracker) saveClick(ctx context.Context, traceID string, click domain.RecommendationClick) {
	if err := t.clicks.SaveClick(ctx, click); err != nil {
		TrackerEventsTotal.WithLabelValues("click", "failed").Inc()
		logger.Error("tracker_save_click_failed",
			"trace_id", traceID,
			"listing_id", click.ListingID,
			"type", click.Type,
			"error", err,
		)
		return
	}

	TrackerEventsTotal.WithLabelValues("click", "recorded").Inc()
}
