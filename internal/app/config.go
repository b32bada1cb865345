package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dario.cat/mergo"
)

// Config holds runtime configuration for every command.
type Config struct {
	// Site
	BaseURL   string
	UserAgent string
	Insecure  bool
	// Charset forces response decoding, e.g. "gbk".
	Charset string
	Timeout time.Duration

	// Session cookies copied from a logged-in browser
	SessionID  string
	AuthCookie string
	LoginInfo  string
	// PageSize is the grid rows per page sent in the pagesize cookie.
	PageSize int

	// Query inputs
	Search    string
	BeginDate string
	EndDate   string
	MenuID    string
	// FormOverrides replace individual postback form fields.
	FormOverrides map[string]string
	JQGridOp      string
	JQGridReferer string

	// Output
	OutputPath    string
	OutputPDFPath string
	PDFFontPath   string
	JSONPath      string
	Title         string
	// Layout is "report" (operator column order) or "schema" (record order).
	Layout     string
	PrintTable bool
	NoManifest bool
	// OwnRowsOnly ignores rows and cells of tables nested in the grid.
	OwnRowsOnly bool

	// Capture store
	CaptureDir         string
	CaptureMaxAge      time.Duration
	CaptureKeep        int
	CaptureClear       bool
	CaptureStrictPerms bool

	Verbose bool
}

// Command selects which settings ValidateConfig requires.
type Command int

const (
	CommandQuery Command = iota
	CommandJQGrid
	CommandParse
)

// Layout names.
const (
	LayoutReport = "report"
	LayoutSchema = "schema"
)

// Defaults returns the values used when neither flags, env nor file set one.
func Defaults() Config {
	return Config{
		Timeout:       30 * time.Second,
		PageSize:      10,
		OutputPath:    "inventory_report.html",
		Layout:        LayoutReport,
		JQGridOp:      "CustomManageNew",
		JQGridReferer: "Manage/CustomManage.aspx",
	}
}

// ApplyDefaults fills zero fields of cfg from Defaults.
func ApplyDefaults(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	return mergo.Merge(cfg, Defaults())
}

// ValidateConfig checks the settings a command needs.
func ValidateConfig(cfg Config, cmd Command) error {
	switch cmd {
	case CommandQuery, CommandJQGrid:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return errors.New("config: site base URL is required (or set INVSCRAPE_BASE_URL)")
		}
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: invalid base URL %q", cfg.BaseURL)
		}
		if strings.TrimSpace(cfg.SessionID) == "" && strings.TrimSpace(cfg.AuthCookie) == "" {
			return errors.New("config: session cookies are required (INVSCRAPE_SESSION_ID / INVSCRAPE_AUTH_COOKIE)")
		}
	}
	if cmd != CommandJQGrid && strings.TrimSpace(cfg.OutputPath) == "" {
		return errors.New("config: output path is required")
	}
	switch cfg.Layout {
	case "", LayoutReport, LayoutSchema:
	default:
		return fmt.Errorf("config: unknown layout %q", cfg.Layout)
	}
	if cfg.PageSize < 0 {
		return fmt.Errorf("config: invalid page size %d", cfg.PageSize)
	}
	if cfg.CaptureKeep < 0 {
		return fmt.Errorf("config: invalid capture keep count %d", cfg.CaptureKeep)
	}
	if cfg.Timeout < 0 || cfg.CaptureMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	return nil
}
