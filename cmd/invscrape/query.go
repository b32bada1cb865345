package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/invscrape/internal/app"
	"github.com/hyperifyio/invscrape/internal/session"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "query <" + strings.Join(session.PresetNames(), "|") + ">",
		Short:     "Replay a search postback and render the result table",
		Args:      cobra.ExactArgs(1),
		ValidArgs: session.PresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, app.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = a.Query(cmd.Context(), args[0])
			return err
		},
	}
	fs := cmd.Flags()
	bindSiteFlags(fs, &opts.cfg)
	bindCaptureFlags(fs, &opts.cfg)
	bindOutputFlags(fs, &opts.cfg)
	fs.StringVar(&opts.cfg.BeginDate, "begin", "", "Inventory begin date YYYY-MM-DD (default today)")
	fs.StringVar(&opts.cfg.EndDate, "end", "", "Inventory end date YYYY-MM-DD (default today)")
	fs.StringVar(&opts.cfg.MenuID, "menu-id", "", "Menu id hidden field (hfYhzCdid)")
	return cmd
}

func newJQGridCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "jqgrid",
		Short: "Fetch the first page of a jqGrid JSON query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, app.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = a.JQGrid(cmd.Context(), out)
			return err
		},
	}
	fs := cmd.Flags()
	bindSiteFlags(fs, &opts.cfg)
	bindCaptureFlags(fs, &opts.cfg)
	fs.StringVar(&opts.cfg.JQGridOp, "op", "", "Server-side grid operation (default CustomManageNew)")
	fs.StringVar(&opts.cfg.JQGridReferer, "referer", "", "Page embedding the grid (default Manage/CustomManage.aspx)")
	fs.StringVarP(&out, "output", "o", "-", "Output path, - for stdout")
	return cmd
}

func newParseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file.html|capture-key|query-name>",
		Short: "Extract records from a saved page or a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, app.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = a.Parse(cmd.Context(), args[0])
			return err
		},
	}
	fs := cmd.Flags()
	bindCaptureFlags(fs, &opts.cfg)
	bindOutputFlags(fs, &opts.cfg)
	fs.StringVar(&opts.cfg.Charset, "charset", "", "Force the file charset, e.g. gbk")
	return cmd
}
