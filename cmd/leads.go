package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-finder/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List saved leads",
	Long:  "Prints all persisted leads, most recently discovered first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		leads, err := st.ListLeads(ctx)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeads(os.Stdout, leads)
		return nil
	},
}

// formatLeads writes a tabular list of leads to w.
func formatLeads(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTYPE\tPHONE\tSITE\tEMAILS\tADDRESS")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t----\t------\t-------")

	for _, l := range leads {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.Name,
			l.Type,
			l.Phone,
			l.Site,
			strings.Join(l.Emails, ", "),
			l.FullAddress,
		)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(leadsCmd)
}
