package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/summarizer"
	"github.com/theirongolddev/cbill/internal/tui"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

var flagAutoRefresh bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagAutoRefresh, "watch", false, "Reload the data directory on the daemon poll interval")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	opts, err := reportOptions(cfg)
	if err != nil {
		return err
	}

	app := tui.NewApp(tui.Options{
		DataDir:         cfg.General.DataDir,
		LOB:             flagLOB,
		UseCache:        !flagNoCache,
		Report:          opts,
		Summarizer:      summarizer.NewClient(cfg.Summarizer.Endpoint, cfg.Summarizer.APIKey, cfg.SummarizerTimeout()),
		AutoRefresh:     flagAutoRefresh,
		RefreshInterval: cfg.PollInterval(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
