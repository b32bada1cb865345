package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/invscrape/internal/aggregate"
	"github.com/hyperifyio/invscrape/internal/app"
	"github.com/hyperifyio/invscrape/internal/sheet"
)

func newMergeJSONCmd(opts *rootOptions) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "merge-json <fallback.json> <preferred.json> <out.json>",
		Short: "Merge two JSON arrays by key; items from the second file win",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			setLogLevel(opts.verbose)
			n, err := aggregate.MergeFiles(args[0], args[1], args[2], key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged %d items into %s\n", n, args[2])
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", aggregate.DefaultKey, "Identifier field")
	return cmd
}

func newExtractJSONCmd(opts *rootOptions) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "extract-json <in.ndjson> <out.json>",
		Short: "Keep selected fields of newline-delimited JSON objects",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setLogLevel(opts.verbose)
			st, err := aggregate.ExtractFile(args[0], args[1], fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kept %d of %d lines (%d invalid, %d filtered)\n", st.Kept, st.Lines, st.Invalid, st.Filtered)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", []string{"spuId", "title"}, "Fields to keep, in output order")
	return cmd
}

func newExcelColumnsCmd(opts *rootOptions) *cobra.Command {
	var (
		sheetName  string
		columns    []string
		headerRows int
	)
	cmd := &cobra.Command{
		Use:   "excel-columns <in.xlsx> <out.json>",
		Short: "Dump selected columns of a workbook as a JSON array of rows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setLogLevel(opts.verbose)
			o := sheet.Options{Sheet: sheetName, Columns: columns, HeaderRows: headerRows}
			if headerRows == 0 {
				o.HeaderRows = -1
			}
			n, err := sheet.ExtractFile(args[0], args[1], o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", n, args[1])
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&sheetName, "sheet", "", "Sheet name (default first sheet)")
	fs.StringSliceVar(&columns, "columns", []string{"A", "B"}, "Column letters")
	fs.IntVar(&headerRows, "header-rows", 1, "Rows to skip at the top")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.VersionString())
		},
	}
}
