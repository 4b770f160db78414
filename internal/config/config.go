package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/model"
)

// EnvPrefix is the prefix for environment overrides, e.g. CBILL_MIN_AMOUNT.
const EnvPrefix = "CBILL"

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Themes lists the accepted appearance.theme values.
var Themes = []string{"flexoki-dark", "catppuccin-mocha", "tokyo-night", "terminal"}

// Config holds all cbill configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Calendar   CalendarConfig   `toml:"calendar"`
	Summarizer SummarizerConfig `toml:"summarizer"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir string `toml:"data_dir" validate:"required"`
	TopN    int    `toml:"top_n" validate:"min=1"`
}

// ThresholdsConfig holds the detection thresholds.
type ThresholdsConfig struct {
	MinAmount float64 `toml:"min_amount" validate:"gte=0"`
	MinLines  int64   `toml:"min_lines" validate:"gte=0"`
	ChangePct float64 `toml:"change_pct" validate:"gte=0"`
}

// CalendarConfig selects the holiday calendar.
type CalendarConfig struct {
	Jurisdiction string         `toml:"jurisdiction" validate:"required"`
	Extra        []ExtraHoliday `toml:"extra,omitempty" validate:"dive"`
}

// ExtraHoliday is a company-specific non-working day.
type ExtraHoliday struct {
	Date string `toml:"date" validate:"required,datetime=2006-01-02"`
	Name string `toml:"name" validate:"required"`
}

// SummarizerConfig holds settings for the external report summarizer.
type SummarizerConfig struct {
	Endpoint       string `toml:"endpoint,omitempty" validate:"omitempty,url"`
	APIKey         string `toml:"api_key,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"min=1"`
}

// DaemonConfig holds settings for the background poller.
type DaemonConfig struct {
	Addr         string `toml:"addr" validate:"required,hostname_port"`
	PollSeconds  int    `toml:"poll_seconds" validate:"min=1"`
	EventsBuffer int    `toml:"events_buffer" validate:"min=1"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme" validate:"oneof=flexoki-dark catppuccin-mocha tokyo-night terminal"`
}

// envOverrides mirrors the settings that may come from the environment.
// Unset variables leave their pointer nil.
type envOverrides struct {
	DataDir            *string  `envconfig:"DATA_DIR"`
	TopN               *int     `envconfig:"TOP_N"`
	MinAmount          *float64 `envconfig:"MIN_AMOUNT"`
	MinLines           *int64   `envconfig:"MIN_LINES"`
	ChangePct          *float64 `envconfig:"CHANGE_PCT"`
	Jurisdiction       *string  `envconfig:"JURISDICTION"`
	SummarizerEndpoint *string  `envconfig:"SUMMARIZER_ENDPOINT"`
	SummarizerAPIKey   *string  `envconfig:"SUMMARIZER_API_KEY"`
	DaemonAddr         *string  `envconfig:"DAEMON_ADDR"`
	Theme              *string  `envconfig:"THEME"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	th := model.DefaultThresholds()
	return Config{
		General: GeneralConfig{
			DataDir: "data",
			TopN:    10,
		},
		Thresholds: ThresholdsConfig{
			MinAmount: th.MinAmount,
			MinLines:  th.MinLines,
			ChangePct: th.ChangeThresholdPct,
		},
		Calendar: CalendarConfig{
			Jurisdiction: calendar.JurisdictionKR,
		},
		Summarizer: SummarizerConfig{
			TimeoutSeconds: 60,
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			PollSeconds:  30,
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cbill")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cbill")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist, then
// applies CBILL_* environment overrides. The result is not validated.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays CBILL_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	setString(&cfg.General.DataDir, env.DataDir)
	if env.TopN != nil {
		cfg.General.TopN = *env.TopN
	}
	if env.MinAmount != nil {
		cfg.Thresholds.MinAmount = *env.MinAmount
	}
	if env.MinLines != nil {
		cfg.Thresholds.MinLines = *env.MinLines
	}
	if env.ChangePct != nil {
		cfg.Thresholds.ChangePct = *env.ChangePct
	}
	setString(&cfg.Calendar.Jurisdiction, env.Jurisdiction)
	setString(&cfg.Summarizer.Endpoint, env.SummarizerEndpoint)
	setString(&cfg.Summarizer.APIKey, env.SummarizerAPIKey)
	setString(&cfg.Daemon.Addr, env.DaemonAddr)
	setString(&cfg.Appearance.Theme, env.Theme)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

var validate = validator.New()

// Validate checks cfg against its field constraints and resolves the
// calendar, so an unknown jurisdiction is rejected here rather than at
// report time.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	if _, _, err := cfg.Provider(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return field + " must be >= " + fe.Param()
	case "min":
		return field + " must be at least " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// ModelThresholds converts the thresholds section to the detector's type.
func (c Config) ModelThresholds() model.Thresholds {
	return model.Thresholds{
		MinAmount:          c.Thresholds.MinAmount,
		MinLines:           c.Thresholds.MinLines,
		ChangeThresholdPct: c.Thresholds.ChangePct,
	}
}

// SummarizerTimeout returns the summarizer request timeout.
func (c Config) SummarizerTimeout() time.Duration {
	return time.Duration(c.Summarizer.TimeoutSeconds) * time.Second
}

// PollInterval returns the daemon's polling interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Daemon.PollSeconds) * time.Second
}

// ExtraHolidays parses the configured company holidays.
func (c Config) ExtraHolidays() (calendar.HolidaySet, error) {
	set := calendar.HolidaySet{}
	for _, h := range c.Calendar.Extra {
		d, err := calendar.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("extra holiday %q: %w", h.Name, err)
		}
		set[d] = h.Name
	}
	return set, nil
}

// Provider resolves the configured calendar and returns it together with a
// key that identifies it for business-day caching. The key changes whenever
// the extra holiday list does.
func (c Config) Provider() (calendar.Provider, string, error) {
	extra, err := c.ExtraHolidays()
	if err != nil {
		return nil, "", err
	}
	p, err := calendar.ForJurisdiction(c.Calendar.Jurisdiction, extra)
	if err != nil {
		return nil, "", err
	}
	return p, CalendarKey(c.Calendar.Jurisdiction, extra), nil
}

// CalendarKey names a jurisdiction plus extra holidays.
func CalendarKey(jurisdiction string, extra calendar.HolidaySet) string {
	key := strings.ToUpper(strings.TrimSpace(jurisdiction))
	if len(extra) == 0 {
		return key
	}
	return key + "+" + extra.Fingerprint()
}
