package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/config"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show current configuration",
	Annotations: map[string]string{skipValidation: "true"},
	RunE:        runConfig,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Annotations: map[string]string{skipValidation: "true"},
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(config.ConfigPath())
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Printf("  Problem: %v\n", err)
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory: %s\n", cfg.General.DataDir)
	fmt.Printf("    Top N:          %d\n", cfg.General.TopN)
	fmt.Println()

	fmt.Println("  [Thresholds]")
	fmt.Printf("    Min amount:     %.0f\n", cfg.Thresholds.MinAmount)
	fmt.Printf("    Min lines:      %d\n", cfg.Thresholds.MinLines)
	fmt.Printf("    Change:         %.1f%%\n", cfg.Thresholds.ChangePct)
	fmt.Println()

	fmt.Println("  [Calendar]")
	fmt.Printf("    Jurisdiction:   %s\n", cfg.Calendar.Jurisdiction)
	if first, last := calendar.KRYearRange(); first > 0 {
		fmt.Printf("    KR data:        %d-%d\n", first, last)
	}
	if len(cfg.Calendar.Extra) == 0 {
		fmt.Println("    Extra holidays: none")
	}
	for _, h := range cfg.Calendar.Extra {
		fmt.Printf("    Extra holiday:  %s %s\n", h.Date, h.Name)
	}
	fmt.Println()

	fmt.Println("  [Summarizer]")
	if cfg.Summarizer.Endpoint != "" {
		fmt.Printf("    Endpoint: %s\n", cfg.Summarizer.Endpoint)
	} else {
		fmt.Println("    Endpoint: not configured")
	}
	if cfg.Summarizer.APIKey != "" {
		fmt.Printf("    API key:  %s\n", maskAPIKey(cfg.Summarizer.APIKey))
	} else {
		fmt.Println("    API key:  not configured")
	}
	fmt.Printf("    Timeout:  %ds\n", cfg.Summarizer.TimeoutSeconds)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.PollSeconds)
	fmt.Printf("    Events:   %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `cbill setup` to reconfigure.")
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
