package config

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/model"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ModelThresholds() != model.DefaultThresholds() {
		t.Errorf("thresholds = %+v", cfg.ModelThresholds())
	}
	if cfg.Calendar.Jurisdiction != calendar.JurisdictionKR {
		t.Errorf("jurisdiction = %q", cfg.Calendar.Jurisdiction)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	if Exists() {
		t.Error("Exists() true without a file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Thresholds.MinAmount = 5_000_000
	cfg.General.TopN = 25
	cfg.Calendar.Extra = []ExtraHoliday{{Date: "2025-06-02", Name: "Company Day"}}
	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config mode = %o, want 600", perm)
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Thresholds.MinAmount != 5_000_000 || got.General.TopN != 25 {
		t.Errorf("loaded = %+v", got)
	}
	if len(got.Calendar.Extra) != 1 || got.Calendar.Extra[0].Name != "Company Day" {
		t.Errorf("extra = %+v", got.Calendar.Extra)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CBILL_MIN_AMOUNT", "2500000")
	t.Setenv("CBILL_MIN_LINES", "100")
	t.Setenv("CBILL_JURISDICTION", "none")
	t.Setenv("CBILL_SUMMARIZER_API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Thresholds.MinAmount != 2_500_000 || cfg.Thresholds.MinLines != 100 {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Thresholds.ChangePct != model.DefaultChangeThresholdPct {
		t.Errorf("unset override changed ChangePct to %v", cfg.Thresholds.ChangePct)
	}
	if cfg.Calendar.Jurisdiction != "none" || cfg.Summarizer.APIKey != "secret" {
		t.Errorf("overrides = %q / %q", cfg.Calendar.Jurisdiction, cfg.Summarizer.APIKey)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("NONE jurisdiction rejected: %v", err)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CBILL_MIN_LINES", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric CBILL_MIN_LINES")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"negative amount", func(c *Config) { c.Thresholds.MinAmount = -1 }, "Thresholds.MinAmount"},
		{"negative lines", func(c *Config) { c.Thresholds.MinLines = -1 }, "Thresholds.MinLines"},
		{"negative change", func(c *Config) { c.Thresholds.ChangePct = -0.5 }, "Thresholds.ChangePct"},
		{"zero top", func(c *Config) { c.General.TopN = 0 }, "General.TopN"},
		{"no jurisdiction", func(c *Config) { c.Calendar.Jurisdiction = "" }, "Calendar.Jurisdiction"},
		{"unknown jurisdiction", func(c *Config) { c.Calendar.Jurisdiction = "JP" }, "unsupported jurisdiction"},
		{"bad theme", func(c *Config) { c.Appearance.Theme = "neon" }, "Appearance.Theme"},
		{"bad extra date", func(c *Config) {
			c.Calendar.Extra = []ExtraHoliday{{Date: "06/02/2025", Name: "x"}}
		}, "Calendar.Extra[0].Date"},
		{"bad endpoint", func(c *Config) { c.Summarizer.Endpoint = "not a url" }, "Summarizer.Endpoint"},
		{"bad addr", func(c *Config) { c.Daemon.Addr = "localhost" }, "Daemon.Addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestProvider_ExtraHolidays(t *testing.T) {
	cfg := DefaultConfig()
	p, key, err := cfg.Provider()
	if err != nil {
		t.Fatal(err)
	}
	if key != "KR" {
		t.Errorf("key = %q, want KR", key)
	}
	base, err := calendar.BusinessDays(p, cfg.Calendar.Jurisdiction, 2025, 6)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Calendar.Extra = []ExtraHoliday{{Date: "2025-06-02", Name: "Company Day"}}
	p, extKey, err := cfg.Provider()
	if err != nil {
		t.Fatal(err)
	}
	if extKey == key || !strings.HasPrefix(extKey, "KR+") {
		t.Errorf("extra key = %q", extKey)
	}
	got, err := calendar.BusinessDays(p, cfg.Calendar.Jurisdiction, 2025, 6)
	if err != nil {
		t.Fatal(err)
	}
	if got.BusinessDays != base.BusinessDays-1 {
		t.Errorf("business days = %d, want %d", got.BusinessDays, base.BusinessDays-1)
	}

	cfg.Calendar.Extra[0].Name = "Founders Day"
	_, renamed, _ := cfg.Provider()
	if renamed == extKey {
		t.Error("calendar key ignores holiday names")
	}
}
