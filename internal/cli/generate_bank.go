package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"routing-arena/internal/bank"
	"routing-arena/internal/config"
)

// NewGenerateBankCmd writes a synthetic held-out question bank.
func NewGenerateBankCmd(configPath *string) *cobra.Command {
	var (
		count int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "generate-bank",
		Short: "Generate the synthetic test question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if count < 0 {
				return fmt.Errorf("--count must not be negative, got %d", count)
			}
			if count == 0 {
				count = cfg.Scoring.TestCount
			}
			path := cfg.Scoring.TestBank
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return newBankRepository(cfg).Regenerate(bank.Test, count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of questions (defaults to scoring.test_count)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing bank")
	return cmd
}
