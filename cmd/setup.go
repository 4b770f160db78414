package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/config"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:         "setup",
	Short:       "First-time setup wizard",
	Annotations: map[string]string{skipValidation: "true"},
	RunE:        runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	records := 0
	if lr, err := pipeline.Load(cmd.Context(), cfg.General.DataDir, nil); err == nil {
		records = len(lr.Records)
	}

	vals := tui.SetupValuesFrom(cfg)
	form := tui.NewSetupForm(records, &vals)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	// Start from the file, not cfg, so flag and env overrides are not persisted.
	base, err := config.Load()
	if err != nil {
		base = config.DefaultConfig()
	}
	updated, err := vals.Apply(base)
	if err != nil {
		return err
	}
	if err := config.Save(updated); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `cbill setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
