package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"custos/internal/amqp"
	"custos/internal/core"
	"custos/internal/log"
	"custos/internal/sheets"
	"custos/internal/storage"
)

// ErrNotLoaded is returned before the first load attempt completes.
var ErrNotLoaded = errors.New("dataset not loaded yet")

// LoadRecorder persists the outcome of every load attempt.
type LoadRecorder interface {
	RecordLoad(ctx context.Context, rec storage.LoadRecord) error
}

// EventPublisher announces newly loaded datasets.
type EventPublisher interface {
	PublishDatasetLoaded(ctx context.Context, msg *amqp.DatasetLoadedMessage) error
}

// Session is the dashboard state shared by every request. Exactly one of
// Dataset and Err is set after a load attempt. A failed load or reload is
// terminal: the previous dataset is discarded until a load succeeds again.
type Session struct {
	ID       string
	Dataset  *core.Dataset
	Err      error
	LoadedAt time.Time
}

// ReloadResult describes one reload call.
type ReloadResult struct {
	SessionID string `json:"session_id"`
	Changed   bool   `json:"changed"`
	Records   int    `json:"records"`
	Dropped   int    `json:"dropped"`
}

// DashboardService owns the current dataset and recomputes dashboards from
// it on demand.
type DashboardService struct {
	reader    sheets.TableReader
	schema    core.Schema
	opts      core.Options
	recorder  LoadRecorder
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	current Session
}

// Option configures a DashboardService.
type Option func(*DashboardService)

// WithRecorder keeps a history of load attempts.
func WithRecorder(r LoadRecorder) Option {
	return func(s *DashboardService) { s.recorder = r }
}

// WithPublisher announces every successful load.
func WithPublisher(p EventPublisher) Option {
	return func(s *DashboardService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *DashboardService) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

func NewDashboardService(reader sheets.TableReader, schema core.Schema, opts core.Options, options ...Option) *DashboardService {
	s := &DashboardService{
		reader: reader,
		schema: schema,
		opts:   opts,
		now:    time.Now,
	}
	for _, o := range options {
		o(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLoader)
	return s
}

// Source names the spreadsheet being served.
func (s *DashboardService) Source() string {
	return s.reader.Source()
}

// Load performs the initial load. It always reads and swaps, whatever the
// fingerprint.
func (s *DashboardService) Load(ctx context.Context) error {
	_, err := s.Reload(ctx, true)
	return err
}

// Reload re-reads the source. Unless force is set, an unchanged fingerprint
// keeps the current dataset. Concurrent calls share one read.
func (s *DashboardService) Reload(ctx context.Context, force bool) (ReloadResult, error) {
	key := "reload"
	if force {
		key = "reload:force"
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.reload(ctx, force)
	})
	if err != nil {
		return ReloadResult{}, err
	}
	return v.(ReloadResult), nil
}

func (s *DashboardService) reload(ctx context.Context, force bool) (ReloadResult, error) {
	raw, err := s.reader.ReadTable(ctx)
	if err != nil {
		return ReloadResult{}, s.fail(ctx, err)
	}

	s.mu.RLock()
	prev := s.current
	s.mu.RUnlock()

	if !force && prev.Dataset != nil && raw.Fingerprint != 0 && raw.Fingerprint == prev.Dataset.Fingerprint {
		s.logger.DebugContext(ctx, "Source unchanged, keeping dataset",
			log.FieldSource, raw.Source,
			log.FieldFingerprint, raw.Fingerprint)
		return ReloadResult{
			SessionID: prev.ID,
			Records:   prev.Dataset.Set.Len(),
			Dropped:   prev.Dataset.Set.Dropped,
		}, nil
	}

	ds, err := core.Normalize(raw, s.schema)
	if err != nil {
		return ReloadResult{}, s.fail(ctx, err)
	}
	ds.LoadedAt = s.now()

	session := Session{ID: uuid.NewString(), Dataset: &ds, LoadedAt: ds.LoadedAt}
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	unresolved := fieldNames(ds.Bindings.Unresolved())
	fields := log.NewFields().
		WithDataset(ds.Source, ds.Set.Len(), ds.Set.Dropped, ds.Fingerprint).
		WithOperation(log.OpLoad)
	fields[log.FieldSessionID] = session.ID
	fields[log.FieldUnresolved] = unresolved
	s.logger.InfoContext(ctx, "Dataset loaded", fields.ToSlice()...)

	s.record(ctx, storage.LoadRecord{
		ID:          session.ID,
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
		LoadedAt:    ds.LoadedAt,
		RowsKept:    ds.Set.Len(),
		RowsDropped: ds.Set.Dropped,
		Unresolved:  unresolved,
	})
	s.publish(ctx, &amqp.DatasetLoadedMessage{
		SessionID:   session.ID,
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
		Records:     ds.Set.Len(),
		Dropped:     ds.Set.Dropped,
		Unresolved:  unresolved,
		LoadedAt:    ds.LoadedAt,
	})

	return ReloadResult{
		SessionID: session.ID,
		Changed:   true,
		Records:   ds.Set.Len(),
		Dropped:   ds.Set.Dropped,
	}, nil
}

// fail replaces the session with the failure. No partial or stale dataset
// is served after a failed read.
func (s *DashboardService) fail(ctx context.Context, err error) error {
	s.mu.Lock()
	discarded := s.current.Dataset != nil
	s.current = Session{Err: err, LoadedAt: s.now()}
	s.mu.Unlock()

	s.logger.ErrorContext(ctx, "Dataset load failed",
		log.FieldSource, s.reader.Source(),
		log.FieldError, err,
		"discarded_previous", discarded)

	s.record(ctx, storage.LoadRecord{
		ID:       uuid.NewString(),
		Source:   s.reader.Source(),
		LoadedAt: s.now(),
		Error:    err.Error(),
	})
	return fmt.Errorf("load %s: %w", s.reader.Source(), err)
}

func (s *DashboardService) record(ctx context.Context, rec storage.LoadRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordLoad(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "Failed to record load", log.FieldError, err)
	}
}

func (s *DashboardService) publish(ctx context.Context, msg *amqp.DatasetLoadedMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDatasetLoaded(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish dataset loaded event", log.FieldError, err)
	}
}

// Current returns a snapshot of the session.
func (s *DashboardService) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Ready reports whether a dataset is being served.
func (s *DashboardService) Ready() bool {
	return s.Current().Dataset != nil
}

func (s *DashboardService) dataset() (*core.Dataset, error) {
	cur := s.Current()
	if cur.Dataset != nil {
		return cur.Dataset, nil
	}
	if cur.Err != nil {
		return nil, cur.Err
	}
	return nil, ErrNotLoaded
}

// Dashboard filters the current dataset and computes every view.
func (s *DashboardService) Dashboard(selections core.Selections) (core.Dashboard, error) {
	ds, err := s.dataset()
	if err != nil {
		return core.Dashboard{}, err
	}
	return core.BuildDashboard(*ds, selections, s.opts), nil
}

// Options returns the filter fields with their selectable values.
func (s *DashboardService) Options() ([]core.FilterState, error) {
	ds, err := s.dataset()
	if err != nil {
		return nil, err
	}
	return lo.Map(core.FilterFields, func(f core.Field, _ int) core.FilterState {
		return core.FilterState{
			Field:    f,
			Label:    ds.Schema.Label(f),
			Options:  core.FilterOptions(*ds, f),
			Selected: core.DefaultSelection(),
		}
	}), nil
}

func fieldNames(fields []core.Field) []string {
	return lo.Map(fields, func(f core.Field, _ int) string { return string(f) })
}
