// Package daemon provides the long-running background anomaly monitor service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/store"
	"github.com/theirongolddev/cbill/internal/summarizer"
)

// Event types.
const (
	EventSnapshot         = "snapshot"
	EventAnomaliesChanged = "anomalies_changed"
)

// Config controls the daemon runtime behavior.
type Config struct {
	DataDir      string
	LOBFilter    string
	UseCache     bool
	CachePath    string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Report       pipeline.Options
	Summarizer   *summarizer.Client // optional
	Logger       *slog.Logger
}

// Snapshot is a compact analysis state for status/event payloads.
type Snapshot struct {
	At           time.Time      `json:"at"`
	RunID        string         `json:"run_id"`
	Records      int            `json:"records"`
	Flagged      int            `json:"flagged"`
	BySeverity   map[string]int `json:"by_severity"`
	Periods      []string       `json:"periods"`
	BusinessDays []int          `json:"business_days"`
	CoercedCells int            `json:"coerced_cells"`
	FileErrors   int            `json:"file_errors"`
}

// Delta captures changes in the flagged set between polls.
type Delta struct {
	Records int      `json:"records"`
	Flagged int      `json:"flagged"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

func (d Delta) isZero() bool {
	return d.Records == 0 && d.Flagged == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// Event is emitted whenever the flagged set changes.
type Event struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time        `json:"started_at"`
	LastPollAt      time.Time        `json:"last_poll_at"`
	PollIntervalSec int              `json:"poll_interval_sec"`
	PollCount       int64            `json:"poll_count"`
	DataDir         string           `json:"data_dir"`
	LOBFilter       string           `json:"lob_filter,omitempty"`
	Jurisdiction    string           `json:"jurisdiction"`
	Thresholds      model.Thresholds `json:"thresholds"`
	Summary         Snapshot         `json:"summary"`
	LastError       string           `json:"last_error,omitempty"`
	EventCount      int              `json:"event_count"`
	SubscriberCount int              `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	report      model.Report
	records     []model.BillingRecord
	flaggedKeys map[string]struct{}
	nextSeq     int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.CachePath == "" {
		cfg.CachePath = pipeline.CachePath()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	return &Service{
		cfg:       cfg,
		log:       logger.With(slog.String("component", "daemon")),
		metrics:   newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("daemon started",
		slog.String("addr", s.cfg.Addr),
		slog.String("data_dir", s.cfg.DataDir),
		slog.Duration("interval", s.cfg.Interval),
	)

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.log.Info("daemon stopping")
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	start := time.Now()
	lr, rep, err := s.analyze(ctx)
	s.metrics.polls.Inc()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = time.Now()
		s.pollCount++
		s.mu.Unlock()
		s.metrics.pollErrors.Inc()
		s.log.Error("poll failed", slog.String("error", err.Error()))
		return
	}

	now := time.Now()
	snap := snapshotFromReport(rep, lr, now)
	keys := flaggedKeys(rep.Anomalies)
	s.metrics.observe(rep)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevKeys := s.flaggedKeys
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.report = rep
	s.records = lr.Records
	s.flaggedKeys = keys
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		ev = s.newEventLocked(EventSnapshot, now, snap, Delta{})
		publish = true
	} else if delta := diffSnapshots(prev, snap, prevKeys, keys); !delta.isZero() {
		ev = s.newEventLocked(EventAnomaliesChanged, now, snap, delta)
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
	s.log.Info("poll complete",
		slog.Int("records", snap.Records),
		slog.Int("flagged", snap.Flagged),
		slog.Bool("changed", publish),
		slog.Duration("took", time.Since(start)),
	)
}

func (s *Service) newEventLocked(typ string, at time.Time, snap Snapshot, d Delta) Event {
	s.nextSeq++
	return Event{
		ID:        uuid.NewString(),
		Seq:       s.nextSeq,
		Type:      typ,
		Timestamp: at,
		Snapshot:  snap,
		Delta:     d,
	}
}

// analyze loads the data directory and builds a report. When the cache is
// enabled it also serves as the business-day cache.
func (s *Service) analyze(ctx context.Context) (*pipeline.LoadResult, model.Report, error) {
	opts := s.cfg.Report

	var lr *pipeline.LoadResult
	if s.cfg.UseCache {
		cache, err := store.Open(s.cfg.CachePath)
		if err == nil {
			defer func() { _ = cache.Close() }()
			cr, loadErr := pipeline.LoadWithCache(ctx, s.cfg.DataDir, cache, nil)
			if loadErr == nil {
				lr = &cr.LoadResult
				opts.Cache = cache
			} else {
				s.log.Warn("cache load failed, doing full parse", slog.String("error", loadErr.Error()))
			}
		} else {
			s.log.Warn("cache unavailable", slog.String("error", err.Error()))
		}
	}
	if lr == nil {
		var err error
		lr, err = pipeline.Load(ctx, s.cfg.DataDir, nil)
		if err != nil {
			return nil, model.Report{}, err
		}
	}
	for _, fe := range lr.FileErrors {
		s.log.Warn("file skipped", slog.String("path", fe.Path), slog.String("error", fe.Err.Error()))
	}

	records := lr.Records
	if s.cfg.LOBFilter != "" {
		records = pipeline.FilterRecordsByLOB(records, s.cfg.LOBFilter)
	}
	lr.Records = records

	rep, err := pipeline.BuildReport(ctx, records, opts)
	if err != nil {
		return nil, model.Report{}, err
	}
	return lr, rep, nil
}

func snapshotFromReport(rep model.Report, lr *pipeline.LoadResult, at time.Time) Snapshot {
	snap := Snapshot{
		At:           at,
		RunID:        rep.RunID,
		Records:      rep.RecordCount,
		Flagged:      rep.Summary.TotalFlagged,
		BySeverity:   make(map[string]int, len(rep.Summary.SeverityCounts)),
		CoercedCells: lr.CoercedCells,
		FileErrors:   len(lr.FileErrors),
	}
	for _, sc := range rep.Summary.SeverityCounts {
		snap.BySeverity[string(sc.Severity)] = sc.Count
	}
	for _, p := range rep.Periods {
		snap.Periods = append(snap.Periods, p.String())
	}
	for _, t := range rep.BusinessDays {
		snap.BusinessDays = append(snap.BusinessDays, t.Report.BusinessDays)
	}
	return snap
}

// recordKey identifies a record across polls.
func recordKey(r model.BillingRecord) string {
	if r.ItemID != "" {
		return r.LOB + "/" + r.ItemID
	}
	return fmt.Sprintf("%s#%d", r.SourceFile, r.SourceRow)
}

func flaggedKeys(anomalies []model.AnomalyRecord) map[string]struct{} {
	keys := make(map[string]struct{}, len(anomalies))
	for _, a := range anomalies {
		keys[recordKey(a.BillingRecord)] = struct{}{}
	}
	return keys
}

func diffSnapshots(prev, curr Snapshot, prevKeys, currKeys map[string]struct{}) Delta {
	d := Delta{
		Records: curr.Records - prev.Records,
		Flagged: curr.Flagged - prev.Flagged,
	}
	for k := range currKeys {
		if _, ok := prevKeys[k]; !ok {
			d.Added = append(d.Added, k)
		}
	}
	for k := range prevKeys {
		if _, ok := currKeys[k]; !ok {
			d.Removed = append(d.Removed, k)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	return d
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		DataDir:         s.cfg.DataDir,
		LOBFilter:       s.cfg.LOBFilter,
		Jurisdiction:    strings.ToUpper(s.cfg.Report.Jurisdiction),
		Thresholds:      s.cfg.Report.Thresholds,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// currentReport returns the latest report and the records it was built from.
func (s *Service) currentReport() (model.Report, []model.BillingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, s.records, s.hasSnapshot
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	s.metrics.subscribers.Set(float64(len(s.subs)))
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	s.metrics.subscribers.Set(float64(len(s.subs)))
}
