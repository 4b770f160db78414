package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/summarizer"
)

const header = "lob,item_id,item_name,report_month,m1_requested,m2_requested,m1_lines,m2_lines,m1_billed,m2_billed"

func writeData(t *testing.T, dir string, rows ...string) {
	t.Helper()
	body := header + "\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "billing.csv"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestService(t *testing.T, dir string) *Service {
	t.Helper()
	return New(Config{
		DataDir:      dir,
		Interval:     10 * time.Second,
		EventsBuffer: 10,
		Report: pipeline.Options{
			Thresholds:   model.DefaultThresholds(),
			Jurisdiction: calendar.JurisdictionKR,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Records: 10, Flagged: 3}
	curr := Snapshot{Records: 12, Flagged: 2}
	prevKeys := map[string]struct{}{"Mobile/A1": {}, "Mobile/A2": {}, "Fixed/B1": {}}
	currKeys := map[string]struct{}{"Mobile/A1": {}, "IoT/C1": {}}

	delta := diffSnapshots(prev, curr, prevKeys, currKeys)
	if delta.Records != 2 || delta.Flagged != -1 {
		t.Fatalf("delta counts = %+v", delta)
	}
	if strings.Join(delta.Added, ",") != "IoT/C1" {
		t.Errorf("Added = %v", delta.Added)
	}
	if strings.Join(delta.Removed, ",") != "Fixed/B1,Mobile/A2" {
		t.Errorf("Removed = %v", delta.Removed)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr, currKeys, currKeys).isZero() {
		t.Error("identical polls should yield a zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		DataDir:      ".",
		Interval:     10 * time.Second,
		EventsBuffer: 2,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	s.publishEvent(Event{Seq: 1})
	s.publishEvent(Event{Seq: 2})
	s.publishEvent(Event{Seq: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].Seq != 2 || s.events[1].Seq != 3 {
		t.Fatalf("events ring contains [%d, %d], want [2, 3]", s.events[0].Seq, s.events[1].Seq)
	}
}

func TestPollAndEndpoints(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir,
		"Mobile,A1,Data Plan,2025-06-01,11000000,9000000,600,400,1000000,800000",
		"Mobile,A2,Voice,2025-06-01,11000000,9000000,600,400,800000,800000",
	)
	s := newTestService(t, dir)
	h := s.Handler()

	if rec := get(t, h, "/v1/anomalies"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("anomalies before first poll = %d", rec.Code)
	}

	s.pollOnce(context.Background())

	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	var st Status
	if err := json.Unmarshal(get(t, h, "/v1/status").Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.PollCount != 1 || st.Summary.Records != 2 || st.Summary.Flagged != 1 || st.LastError != "" {
		t.Errorf("status = %+v", st)
	}
	if strings.Join(st.Summary.Periods, ",") != "2025-04,2025-05,2025-06" {
		t.Errorf("periods = %v", st.Summary.Periods)
	}

	var an anomaliesResponse
	if err := json.Unmarshal(get(t, h, "/v1/anomalies").Body.Bytes(), &an); err != nil {
		t.Fatal(err)
	}
	if an.Total != 1 || an.Items[0].ItemID != "A1" {
		t.Errorf("anomalies = %+v", an)
	}
	if err := json.Unmarshal(get(t, h, "/v1/anomalies?lob=fixed").Body.Bytes(), &an); err != nil {
		t.Fatal(err)
	}
	if an.Total != 0 || an.Items == nil {
		t.Errorf("filtered anomalies = %+v", an)
	}
	if rec := get(t, h, "/v1/anomalies?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", rec.Code)
	}

	var trend []model.BusinessDayTrend
	if err := json.Unmarshal(get(t, h, "/v1/business-days").Body.Bytes(), &trend); err != nil {
		t.Fatal(err)
	}
	if len(trend) != 3 || trend[2].Report.BusinessDays != 19 || trend[2].DeltaDays != -1 {
		t.Errorf("trend = %+v", trend)
	}

	var one model.BusinessDayReport
	if err := json.Unmarshal(get(t, h, "/v1/business-days?year=2025&month=3").Body.Bytes(), &one); err != nil {
		t.Fatal(err)
	}
	if one.BusinessDays != 20 {
		t.Errorf("March 2025 business days = %d, want 20", one.BusinessDays)
	}
	if rec := get(t, h, "/v1/business-days?year=2031&month=1"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("out-of-range year = %d", rec.Code)
	}

	var sum model.SummaryReport
	if err := json.Unmarshal(get(t, h, "/v1/summary").Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.TotalFlagged != 1 || sum.NoAnomalies {
		t.Errorf("summary = %+v", sum)
	}

	var impact []model.MonthImpact
	if err := json.Unmarshal(get(t, h, "/v1/impact").Body.Bytes(), &impact); err != nil {
		t.Fatal(err)
	}
	if len(impact) != 3 || impact[2].Records != 2 || impact[2].FlaggedCount != 1 {
		t.Errorf("impact = %+v", impact)
	}

	metrics := get(t, h, "/metrics").Body.String()
	for _, want := range []string{
		"cbill_flagged_records 1",
		`cbill_business_days{month="2025-06"} 19`,
		`cbill_flagged_by_severity{severity="caution"} 1`,
		"cbill_polls_total 1",
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestPollEvents(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir, "Mobile,A1,Data Plan,2025-06-01,11000000,9000000,600,400,1000000,800000")
	s := newTestService(t, dir)

	s.pollOnce(context.Background())
	s.pollOnce(context.Background()) // unchanged data, no event

	writeData(t, dir,
		"Mobile,A1,Data Plan,2025-06-01,11000000,9000000,600,400,1000000,800000",
		"IoT,C1,Sensor,2025-06-01,20000000,9000000,900,400,3000000,1000000",
	)
	s.pollOnce(context.Background())

	var events []Event
	if err := json.Unmarshal(get(t, s.Handler(), "/v1/events").Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != EventSnapshot || events[1].Type != EventAnomaliesChanged {
		t.Errorf("event types = %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].Seq != 2 || events[1].ID == "" || events[1].ID == events[0].ID {
		t.Errorf("event ids = %+v", events)
	}
	if strings.Join(events[1].Delta.Added, ",") != "IoT/C1" || events[1].Delta.Flagged != 1 {
		t.Errorf("delta = %+v", events[1].Delta)
	}
}

func TestPollError(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir, "Mobile,A1,Data Plan,2031-06-01,11000000,9000000,600,400,1000000,800000")
	s := newTestService(t, dir)

	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if st.LastError == "" || st.PollCount != 1 {
		t.Errorf("status = %+v", st)
	}
	if !strings.Contains(get(t, s.Handler(), "/metrics").Body.String(), "cbill_poll_errors_total 1") {
		t.Error("poll error not counted")
	}
}

func TestSummarizeEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p summarizer.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"summary": p.RunID + " looks fine"})
	}))
	defer upstream.Close()

	dir := t.TempDir()
	writeData(t, dir, "Mobile,A1,Data Plan,2025-06-01,11000000,9000000,600,400,1000000,800000")
	s := newTestService(t, dir)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/summarize", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("unconfigured summarize = %d", rec.Code)
	}

	s.cfg.Summarizer = summarizer.NewClient(upstream.URL, "", time.Second)
	s.pollOnce(context.Background())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/summarize", nil))
	var got summarizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID == "" || got.Summary != got.RunID+" looks fine" {
		t.Errorf("summarize = %+v", got)
	}
}

func TestStream(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir, "Mobile,A1,Data Plan,2025-06-01,11000000,9000000,600,400,1000000,800000")
	s := newTestService(t, dir)
	s.pollOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() && sc.Text() != "" {
		lines = append(lines, sc.Text())
	}
	if len(lines) < 2 || lines[0] != "event: snapshot" || !strings.HasPrefix(lines[1], "data: ") {
		t.Fatalf("first event = %q", lines)
	}
	var ev Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Snapshot.Flagged != 1 {
		t.Errorf("streamed snapshot = %+v", ev.Snapshot)
	}
}
