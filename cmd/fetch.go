package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-finder/internal/model"
	"github.com/sells-group/lead-finder/pkg/outscraper"
)

var fetchNoSave bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <request-id>",
	Short: "Fetch results for a previously submitted search",
	Long:  "Polls an existing Outscraper request until it reaches a terminal status, then prints and saves the leads.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := initOutscraper()
		if err != nil {
			return err
		}

		result, err := outscraper.Poll(ctx, client, args[0],
			outscraper.WithPollInterval(time.Duration(cfg.Poll.IntervalSecs)*time.Second),
			outscraper.WithPollTimeout(time.Duration(cfg.Poll.TimeoutSecs)*time.Second),
		)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		candidates, ok := model.ParseCandidates(result.Data)
		if !ok {
			fmt.Fprintln(os.Stderr, "No leads in response.")
			return nil
		}

		var leads []model.Lead
		for _, c := range candidates {
			if !c.HasKey() {
				zap.L().Warn("skipping candidate without place id", zap.String("name", c.Name))
				continue
			}
			leads = append(leads, c.Lead())
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeads(os.Stdout, leads)

		if fetchNoSave {
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		saved, failed := persistLeads(ctx, st, leads)
		fmt.Printf("Saved %d leads (%d failed).\n", saved, failed)
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchNoSave, "no-save", false, "print results without persisting them")
	rootCmd.AddCommand(fetchCmd)
}
