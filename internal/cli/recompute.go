package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"routing-arena/internal/config"
)

// NewRecomputeCmd re-scores every identity's latest submission against the
// held-out bank and prints the ranking as JSON.
func NewRecomputeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Score latest submissions against the test bank and rank the winners",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			entries, err := rt.recomputer.Recompute(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}
}
