package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/summarizer"
)

// apiError is the JSON error body.
type apiError struct {
	Error string `json:"error"`
}

// Handler returns the daemon's HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/status", s.handleStatus)
			r.Get("/events", s.handleEvents)
			r.Get("/anomalies", s.handleAnomalies)
			r.Get("/business-days", s.handleBusinessDays)
			r.Get("/summary", s.handleSummary)
			r.Get("/impact", s.handleImpact)
			r.Post("/summarize", s.handleSummarize)
		})
	})
	return r
}

func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	render.JSON(w, r, events)
}

// requireReport returns the latest report, or writes 503 when no poll has
// succeeded yet.
func (s *Service) requireReport(w http.ResponseWriter, r *http.Request) (model.Report, []model.BillingRecord, bool) {
	rep, records, ok := s.currentReport()
	if !ok {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, apiError{Error: "no report yet"})
	}
	return rep, records, ok
}

// anomaliesResponse is served at /v1/anomalies.
type anomaliesResponse struct {
	RunID     string                `json:"run_id"`
	Total     int                   `json:"total"`
	Items     []model.AnomalyRecord `json:"items"`
	Remaining int                   `json:"remaining"`
}

// handleAnomalies serves the ranked flagged set. Query parameters lob,
// category and severity filter it; limit caps the number of items.
func (s *Service) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	rep, _, ok := s.requireReport(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	items := rep.Anomalies
	if lob := q.Get("lob"); lob != "" {
		items = pipeline.FilterByLOB(items, lob)
	}
	if cat := q.Get("category"); cat != "" {
		items = pipeline.FilterByCategory(items, cat)
	}
	if sev := q.Get("severity"); sev != "" {
		items = pipeline.FilterBySeverity(items, model.Severity(sev))
	}

	resp := anomaliesResponse{RunID: rep.RunID, Total: len(items), Items: items}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, apiError{Error: "limit must be a positive integer"})
			return
		}
		top := pipeline.TopN(items, n)
		resp.Items, resp.Remaining = top.Items, top.Remaining
	}
	if resp.Items == nil {
		resp.Items = []model.AnomalyRecord{}
	}
	render.JSON(w, r, resp)
}

// handleBusinessDays serves the report's business-day trend, or with
// ?year=&month= a single month computed on demand.
func (s *Service) handleBusinessDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("year") != "" || q.Get("month") != "" {
		year, yErr := strconv.Atoi(q.Get("year"))
		month, mErr := strconv.Atoi(q.Get("month"))
		if yErr != nil || mErr != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, apiError{Error: "year and month must be integers"})
			return
		}
		provider := s.cfg.Report.Calendar
		if provider == nil {
			var err error
			provider, err = calendar.ForJurisdiction(s.cfg.Report.Jurisdiction, nil)
			if err != nil {
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, apiError{Error: err.Error()})
				return
			}
		}
		rep, err := calendar.BusinessDays(provider, s.cfg.Report.Jurisdiction, year, time.Month(month))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, calendar.ErrYearOutOfRange) || errors.Is(err, calendar.ErrInvalidMonth) {
				status = http.StatusUnprocessableEntity
			}
			render.Status(r, status)
			render.JSON(w, r, apiError{Error: err.Error()})
			return
		}
		render.JSON(w, r, rep)
		return
	}

	rep, _, ok := s.requireReport(w, r)
	if !ok {
		return
	}
	trend := rep.BusinessDays
	if trend == nil {
		trend = []model.BusinessDayTrend{}
	}
	render.JSON(w, r, trend)
}

func (s *Service) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, _, ok := s.requireReport(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, rep.Summary)
}

func (s *Service) handleImpact(w http.ResponseWriter, r *http.Request) {
	rep, records, ok := s.requireReport(w, r)
	if !ok {
		return
	}
	impact := pipeline.ImpactAnalysis(records, rep.Anomalies, rep.BusinessDays)
	if impact == nil {
		impact = []model.MonthImpact{}
	}
	render.JSON(w, r, impact)
}

// summarizeResponse is served at /v1/summarize.
type summarizeResponse struct {
	RunID     string `json:"run_id"`
	Summary   string `json:"summary"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Service) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Summarizer == nil {
		render.Status(r, http.StatusNotImplemented)
		render.JSON(w, r, apiError{Error: "summarizer endpoint not configured"})
		return
	}
	rep, _, ok := s.requireReport(w, r)
	if !ok {
		return
	}

	res, err := s.cfg.Summarizer.Summarize(r.Context(), summarizer.NewPayload(rep))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, summarizer.ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
		s.log.Warn("summarize failed", slog.String("error", err.Error()))
		render.Status(r, status)
		render.JSON(w, r, apiError{Error: err.Error()})
		return
	}
	render.JSON(w, r, summarizeResponse{RunID: rep.RunID, Summary: res.Text, RequestID: res.RequestID})
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
