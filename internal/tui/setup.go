package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/config"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

// SetupValues holds the first-run wizard answers.
type SetupValues struct {
	DataDir      string
	Jurisdiction string
	MinAmount    string
	MinLines     string
	ChangePct    string
	Theme        string
}

type setupValues = SetupValues

// SetupValuesFrom seeds wizard answers from an existing configuration.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		DataDir:      cfg.General.DataDir,
		Jurisdiction: strings.ToUpper(cfg.Calendar.Jurisdiction),
		MinAmount:    strconv.FormatFloat(cfg.Thresholds.MinAmount, 'f', -1, 64),
		MinLines:     strconv.FormatInt(cfg.Thresholds.MinLines, 10),
		ChangePct:    strconv.FormatFloat(cfg.Thresholds.ChangePct, 'f', -1, 64),
		Theme:        cfg.Appearance.Theme,
	}
}

// NewSetupForm builds the first-run wizard. records is the number of billing
// rows found in the current data directory.
func NewSetupForm(records int, vals *SetupValues) *huh.Form {
	intro := "Let's set up a few things."
	if records > 0 {
		intro = fmt.Sprintf("Found %s billing records in %s.\n\n%s",
			cli.FormatNumber(int64(records)), vals.DataDir, intro)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to cbill").
				Description(intro),
			huh.NewInput().
				Title("Billing data directory").
				Description("CSV and XLSX exports are read from here.").
				Value(&vals.DataDir).
				Validate(requireText("data directory")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Holiday calendar").
				Description("Public holidays are excluded from business days.").
				Options(
					huh.NewOption("Republic of Korea (KR)", calendar.JurisdictionKR),
					huh.NewOption("Weekends only (NONE)", calendar.JurisdictionNone),
				).
				Value(&vals.Jurisdiction),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Requested amount threshold").
				Description("Current or prior requested amount must reach this.").
				Value(&vals.MinAmount).
				Validate(nonNegativeFloat),
			huh.NewInput().
				Title("Line count threshold").
				Description("Current lines must exceed this.").
				Value(&vals.MinLines).
				Validate(nonNegativeInt),
			huh.NewInput().
				Title("Change threshold (%)").
				Description("Billed and line change must both reach this, up or down.").
				Value(&vals.ChangePct).
				Validate(nonNegativeFloat),
		).Title("Detection thresholds"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
		),
	).WithShowHelp(true)
}

// Apply writes the wizard answers into cfg and validates the result.
func (v SetupValues) Apply(cfg config.Config) (config.Config, error) {
	cfg.General.DataDir = strings.TrimSpace(v.DataDir)
	cfg.Calendar.Jurisdiction = v.Jurisdiction
	cfg.Appearance.Theme = v.Theme

	var err error
	if cfg.Thresholds.MinAmount, err = strconv.ParseFloat(strings.TrimSpace(v.MinAmount), 64); err != nil {
		return cfg, fmt.Errorf("min amount: %w", err)
	}
	if cfg.Thresholds.MinLines, err = strconv.ParseInt(strings.TrimSpace(v.MinLines), 10, 64); err != nil {
		return cfg, fmt.Errorf("min lines: %w", err)
	}
	if cfg.Thresholds.ChangePct, err = strconv.ParseFloat(strings.TrimSpace(v.ChangePct), 64); err != nil {
		return cfg, fmt.Errorf("change threshold: %w", err)
	}
	return cfg, config.Validate(cfg)
}

func newSetupForm(records int, dataDir string, vals *setupValues) *huh.Form {
	*vals = SetupValuesFrom(loadConfigOrDefault())
	if dataDir != "" {
		vals.DataDir = dataDir
	}
	return NewSetupForm(records, vals)
}

func (a *App) saveSetupConfig() (config.Config, error) {
	cfg, err := a.setupVals.Apply(loadConfigOrDefault())
	if err != nil {
		return cfg, err
	}
	return cfg, config.Save(cfg)
}

// loadConfigOrDefault loads config, returning defaults on error so the
// dashboard can always start.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

var errNegative = errors.New("must not be negative")

func requireText(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func nonNegativeFloat(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("enter a number")
	}
	if v < 0 {
		return errNegative
	}
	return nil
}

func nonNegativeInt(s string) error {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return errors.New("enter a whole number")
	}
	if v < 0 {
		return errNegative
	}
	return nil
}

func positiveInt(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a whole number")
	}
	if v < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}
