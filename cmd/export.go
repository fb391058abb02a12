package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-finder/internal/model"
)

var (
	exportFormat string
	exportOut    string
)

var exportHeader = []string{"place_id", "name", "full_address", "phone", "site", "type", "emails", "created_at"}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved leads to CSV or XLSX",
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
			return eris.Wrap(err, "export")
		}

		out := exportOut
		if out == "" {
			out = "leads." + exportFormat
		}

		switch exportFormat {
		case "csv":
			err = exportCSV(out, leads)
		case "xlsx":
			err = exportXLSX(out, leads)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d leads to %s\n", len(leads), out)
		return nil
	},
}

func leadRow(l model.Lead) []string {
	return []string{
		l.PlaceID,
		l.Name,
		l.FullAddress,
		l.Phone,
		l.Site,
		l.Type,
		strings.Join(l.Emails, ", "),
		l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func exportCSV(path string, leads []model.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, l := range leads {
		if err := w.Write(leadRow(l)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}
	return nil
}

func exportXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportHeader {
		header.AddCell().Value = col
	}
	for _, l := range leads {
		row := sheet.AddRow()
		for _, val := range leadRow(l) {
			row.AddCell().Value = val
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save file")
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format (csv | xlsx)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default leads.<format>)")
	rootCmd.AddCommand(exportCmd)
}
