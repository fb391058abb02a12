package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-finder/internal/model"
	"github.com/sells-group/lead-finder/internal/search"
	"github.com/sells-group/lead-finder/internal/store"
)

var searchNoSave bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for businesses and wait for results",
	Long:  "Submits an async search to Outscraper, polls until it completes, prints the discovered leads, and saves them unless --no-save is given.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := initOutscraper()
		if err != nil {
			return err
		}

		sess := search.NewSession(client, searchDefaults(),
			search.WithInterval(time.Duration(cfg.Poll.IntervalSecs)*time.Second))

		if err := sess.Submit(ctx, args[0]); err != nil {
			return eris.Wrap(err, "search")
		}

		waitCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Poll.TimeoutSecs)*time.Second)
		defer cancel()
		if err := sess.Wait(waitCtx); err != nil {
			sess.Stop()
			return err
		}

		snap := sess.Snapshot()
		switch snap.State {
		case search.StateDoneFailure, search.StateErrored:
			return eris.Errorf("search %s: %s", snap.RequestID, snap.Err)
		}

		leads := collectLeads(sess)
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeads(os.Stdout, leads)

		if searchNoSave {
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

// collectLeads walks every result page of the finished session.
func collectLeads(sess *search.Session) []model.Lead {
	var leads []model.Lead
	for {
		snap := sess.Snapshot()
		leads = append(leads, snap.Rows...)
		if !sess.NextPage() {
			return leads
		}
	}
}

func persistLeads(ctx context.Context, st store.Store, leads []model.Lead) (saved, failed int) {
	for _, lead := range leads {
		if err := st.UpsertLead(ctx, lead); err != nil {
			zap.L().Error("upsert lead failed", zap.String("place_id", lead.PlaceID), zap.Error(err))
			failed++
			continue
		}
		saved++
	}
	return saved, failed
}

func init() {
	searchCmd.Flags().BoolVar(&searchNoSave, "no-save", false, "print results without persisting them")
	rootCmd.AddCommand(searchCmd)
}
