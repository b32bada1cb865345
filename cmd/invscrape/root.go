package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/invscrape/internal/app"
)

// rootOptions are the persistent flags plus the config values set by flags.
// Flag defaults are zero so that env, file and built-in defaults can fill in.
type rootOptions struct {
	configPath string
	envFiles   []string
	verbose    bool
	cfg        app.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "invscrape",
		Short:         "invscrape queries the inventory system and converts its exports.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv("INVSCRAPE_CONFIG"), "Config file (YAML, JSON or JSON5); <name>.local.<ext> next to it overrides it")
	pf.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load; later files override earlier ones")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newQueryCmd(opts),
		newJQGridCmd(opts),
		newParseCmd(opts),
		newMergeJSONCmd(opts),
		newExtractJSONCmd(opts),
		newExcelColumnsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// resolve layers the configuration: flags, then env (including dotenv
// files), then the config file, then defaults.
func (o *rootOptions) resolve() (app.Config, error) {
	setLogLevel(o.verbose)
	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	cfg := o.cfg
	cfg.Verbose = cfg.Verbose || o.verbose
	app.ApplyEnvToConfig(&cfg)
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return app.Config{}, fmt.Errorf("apply config %s: %w", o.configPath, err)
		}
	}
	if err := app.ApplyDefaults(&cfg); err != nil {
		return app.Config{}, err
	}
	setLogLevel(cfg.Verbose)
	return cfg, nil
}

func bindSiteFlags(fs *pflag.FlagSet, cfg *app.Config) {
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Site root, e.g. https://lxy.example.com (env INVSCRAPE_BASE_URL)")
	fs.StringVar(&cfg.SessionID, "session-id", "", "ASP.NET_SessionId cookie (env INVSCRAPE_SESSION_ID)")
	fs.StringVar(&cfg.AuthCookie, "auth", "", ".FenXiao auth cookie (env INVSCRAPE_AUTH_COOKIE)")
	fs.StringVar(&cfg.LoginInfo, "login-info", "", "loginInfo cookie (env INVSCRAPE_LOGIN_INFO)")
	fs.IntVar(&cfg.PageSize, "page-size", 0, "Grid rows per page for the pagesize cookie (default 10, env INVSCRAPE_PAGE_SIZE)")
	fs.StringVar(&cfg.UserAgent, "user-agent", "", "User-Agent header")
	fs.BoolVar(&cfg.Insecure, "insecure", false, "Skip TLS certificate verification (env INVSCRAPE_INSECURE)")
	fs.StringVar(&cfg.Charset, "charset", "", "Force response charset, e.g. gbk (env INVSCRAPE_CHARSET)")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "Per-request timeout (default 30s)")
	fs.StringVar(&cfg.Search, "search", "", "Search keyword or barcode")
	fs.StringToStringVar(&cfg.FormOverrides, "form", nil, "Form field overrides, e.g. --form txtTm=690")
}

func bindCaptureFlags(fs *pflag.FlagSet, cfg *app.Config) {
	fs.StringVar(&cfg.CaptureDir, "capture-dir", "", "Directory storing raw responses (env INVSCRAPE_CAPTURE_DIR)")
	fs.DurationVar(&cfg.CaptureMaxAge, "capture-max-age", 0, "Remove captures older than this before running")
	fs.IntVar(&cfg.CaptureKeep, "capture-keep", 0, "Keep only this many newest captures per query")
	fs.BoolVar(&cfg.CaptureClear, "capture-clear", false, "Empty the capture directory before running")
	fs.BoolVar(&cfg.CaptureStrictPerms, "capture-strict-perms", false, "Restrict captures to the current user (0700/0600)")
}

func bindOutputFlags(fs *pflag.FlagSet, cfg *app.Config) {
	fs.StringVarP(&cfg.OutputPath, "output", "o", "", "HTML report path (default inventory_report.html)")
	fs.StringVar(&cfg.OutputPDFPath, "pdf", "", "Also render a PDF report to this path")
	fs.StringVar(&cfg.PDFFontPath, "pdf-font", "", "UTF-8 TrueType font for the PDF (env INVSCRAPE_PDF_FONT)")
	fs.StringVar(&cfg.JSONPath, "json", "", "Also write the records as JSON to this path")
	fs.StringVar(&cfg.Title, "title", "", "Report title")
	fs.StringVar(&cfg.Layout, "layout", "", "Column layout: report or schema")
	fs.BoolVar(&cfg.PrintTable, "table", false, "Print the records as a table")
	fs.BoolVar(&cfg.NoManifest, "no-manifest", false, "Do not write the .manifest.json sidecar")
	fs.BoolVar(&cfg.OwnRowsOnly, "own-rows", false, "Ignore rows and cells of tables nested inside the grid")
}
