package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

func sampleReport() model.Report {
	return model.Report{
		RunID:        "run-1",
		Jurisdiction: "KR",
		Thresholds:   model.DefaultThresholds(),
		RecordCount:  42,
		Top: model.TopList{
			Items: []model.AnomalyRecord{{
				BillingRecord:   model.BillingRecord{ItemID: "A1", ItemName: "Data Plan", LOB: "Mobile", BilledAmount: 1e6, PriorBilled: 8e5},
				BilledChangePct: 25,
				Categories:      []model.Category{model.CategoryBilledSurge},
				Severity:        model.SeverityCaution,
			}},
			Remaining: 4,
		},
		Summary: model.SummaryReport{TotalFlagged: 5},
	}
}

func TestNewClient_EmptyEndpoint(t *testing.T) {
	if c := NewClient("  ", "key", 0); c != nil {
		t.Fatal("expected nil client for empty endpoint")
	}
	c := NewClient("http://x", "", 0)
	if c == nil || c.timeout != defaultTimeout {
		t.Fatalf("client = %+v", c)
	}
}

func TestNewPayload(t *testing.T) {
	p := NewPayload(sampleReport())
	if p.RunID != "run-1" || p.Remaining != 4 || p.Summary.TotalFlagged != 5 {
		t.Errorf("payload = %+v", p)
	}
	if len(p.Flagged) != 1 || p.Flagged[0].ItemName != "Data Plan" || p.Flagged[0].BilledChangePct != 25 {
		t.Errorf("flagged = %+v", p.Flagged)
	}
}

func TestSummarize(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req-9")
		_, _ = w.Write([]byte(`{"summary":"  Billing rose 25% in June.  "}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	res, err := c.Summarize(context.Background(), NewPayload(sampleReport()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "Billing rose 25% in June." || res.RequestID != "req-9" {
		t.Errorf("result = %+v", res)
	}
	if got.RunID != "run-1" || len(got.Flagged) != 1 {
		t.Errorf("server received %+v", got)
	}
}

func TestSummarize_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := NewClient(srv.URL, "k", time.Second).Summarize(context.Background(), Payload{})
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	if _, err := NewClient(srv.URL, "k", time.Second).Summarize(context.Background(), Payload{}); err == nil {
		t.Error("expected error for 502")
	}
}

func TestSummarize_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 50*time.Millisecond).Summarize(context.Background(), Payload{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name, body, ctype, want string
		err                     error
	}{
		{"summary field", `{"summary":"a"}`, "application/json", "a", nil},
		{"text field", `{"text":"b"}`, "application/json; charset=utf-8", "b", nil},
		{"bare string", `"c"`, "application/json", "c", nil},
		{"plain text", "d\n", "text/plain", "d", nil},
		{"empty", `{"summary":""}`, "application/json", "", ErrEmptySummary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSummary([]byte(tt.body), tt.ctype)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := parseSummary([]byte("{"), "application/json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
