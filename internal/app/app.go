package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/invscrape/internal/cache"
	"github.com/hyperifyio/invscrape/internal/extract"
	"github.com/hyperifyio/invscrape/internal/report"
	"github.com/hyperifyio/invscrape/internal/session"
)

// ErrNoRecords is returned when a page was fetched or read but yielded no
// records. The CLI maps it to exit code 2.
var ErrNoRecords = errors.New("no records found")

// App wires the session client, capture store, extractor and renderers.
type App struct {
	cfg       Config
	client    *session.Client
	capture   *cache.Store
	extractor extract.Extractor
	out       io.Writer
	now       func() time.Time
}

// Option customizes an App.
type Option func(*App)

// WithOutput sets where terminal tables and JSON go. Default os.Stdout.
func WithOutput(w io.Writer) Option { return func(a *App) { a.out = w } }

// WithClock overrides the time source used for dates and manifests.
func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// WithExtractor replaces the default table extractor.
func WithExtractor(e extract.Extractor) Option { return func(a *App) { a.extractor = e } }

// New builds an App. Capture invalidation runs here, before any request.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, out: os.Stdout, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	if a.extractor == nil {
		logger := log.With().Str("component", "extract").Logger()
		a.extractor = extract.NewGridExtractor(extract.Options{OwnRowsOnly: cfg.OwnRowsOnly, Logger: &logger})
	}

	if cfg.CaptureDir != "" {
		a.capture = &cache.Store{Dir: cfg.CaptureDir, StrictPerms: cfg.CaptureStrictPerms}
		if cfg.CaptureClear {
			if n, err := a.capture.Clear(ctx); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CaptureDir).Msg("capture clear failed")
			} else {
				log.Debug().Int("files", n).Str("dir", cfg.CaptureDir).Msg("cleared captures")
			}
		}
		policy := cache.PurgePolicy{MaxAge: cfg.CaptureMaxAge, KeepPerQuery: cfg.CaptureKeep, Now: a.now}
		purged, err := a.capture.Purge(ctx, policy)
		if err != nil {
			log.Warn().Err(err).Msg("capture purge failed")
		}
		if len(purged) > 0 {
			log.Info().Int("removed", len(purged)).Dur("max_age", cfg.CaptureMaxAge).Int("keep", cfg.CaptureKeep).Msg("purged old captures")
		}
	}

	if cfg.BaseURL != "" {
		a.client = &session.Client{
			BaseURL:           cfg.BaseURL,
			UserAgent:         cfg.UserAgent,
			Cookies:           a.cookies(),
			Insecure:          cfg.Insecure,
			PerRequestTimeout: cfg.Timeout,
			Charset:           cfg.Charset,
			Capture:           a.capture,
			HTTPClient:        newHTTPClient(cfg.Timeout),
		}
	}
	return a, nil
}

func (a *App) cookies() map[string]string {
	cookies := map[string]string{
		session.CookieSessionID: a.cfg.SessionID,
		session.CookieAuth:      a.cfg.AuthCookie,
		session.CookieLoginInfo: a.cfg.LoginInfo,
	}
	if a.cfg.PageSize > 0 {
		cookies[session.CookiePageSize] = session.PageSizeCookie(a.cfg.PageSize)
	}
	return cookies
}

// Query runs one preset postback and renders the records it returns.
func (a *App) Query(ctx context.Context, preset string) (extract.Result, error) {
	if err := ValidateConfig(a.cfg, CommandQuery); err != nil {
		return extract.Result{}, err
	}
	if a.client == nil {
		return extract.Result{}, session.ErrNoBaseURL
	}
	q, err := session.Preset(preset, session.SearchParams{
		Search:    a.cfg.Search,
		BeginDate: a.cfg.BeginDate,
		EndDate:   a.cfg.EndDate,
		MenuID:    a.cfg.MenuID,
		Overrides: a.cfg.FormOverrides,
	}, a.now())
	if err != nil {
		return extract.Result{}, err
	}
	page, err := a.client.Postback(ctx, q)
	if err != nil {
		return extract.Result{}, err
	}
	src := source{query: page.Query, url: page.URL, captureKey: page.CaptureKey, body: page.Body}
	return a.process(src, page.HTML())
}

// Parse extracts records from a saved page. ref is a file path, or a capture
// key or query name when a capture store is configured.
func (a *App) Parse(ctx context.Context, ref string) (extract.Result, error) {
	if err := ValidateConfig(a.cfg, CommandParse); err != nil {
		return extract.Result{}, err
	}
	src, err := a.load(ctx, ref)
	if err != nil {
		return extract.Result{}, err
	}
	return a.process(src, session.UnwrapAnthem(src.body))
}

type source struct {
	query      string
	url        string
	captureKey string
	body       string
}

func (a *App) load(ctx context.Context, ref string) (source, error) {
	b, err := os.ReadFile(ref)
	if err == nil {
		body, derr := session.DecodeHTML(b, a.cfg.Charset)
		if derr != nil {
			return source{}, derr
		}
		return source{query: filepath.Base(ref), body: body}, nil
	}
	if !errors.Is(err, os.ErrNotExist) || a.capture == nil {
		return source{}, err
	}
	entry, cerr := a.capture.Resolve(ctx, ref)
	if cerr != nil {
		return source{}, fmt.Errorf("%s is neither a file nor a capture: %w", ref, cerr)
	}
	body, cerr := a.capture.LoadBody(ctx, entry.Key)
	if cerr != nil {
		return source{}, cerr
	}
	log.Info().Str("key", entry.Key).Str("query", entry.Query).Time("saved_at", entry.SavedAt).Msg("using capture")
	return source{query: entry.Query, url: entry.URL, captureKey: entry.Key, body: string(body)}, nil
}

// process extracts records and writes every configured output. An empty
// result writes nothing and returns ErrNoRecords.
func (a *App) process(src source, html string) (extract.Result, error) {
	res := a.extractor.Extract(html)
	if len(res.Records) == 0 {
		doc := extract.Summarize(html, 200)
		log.Warn().
			Str("query", src.query).
			Str("diagnostic", res.Diagnostic).
			Int("tables", res.TableCount).
			Str("page_title", doc.Title).
			Str("page_text", doc.Text).
			Msg("no records found")
		return res, ErrNoRecords
	}
	log.Info().Str("query", src.query).Str("strategy", res.Strategy).Int("records", len(res.Records)).Msg("extracted records")
	if err := a.render(src, res); err != nil {
		return res, err
	}
	return res, nil
}

func (a *App) layout() report.Layout {
	if a.cfg.Layout == LayoutSchema {
		return report.SchemaLayout()
	}
	return report.DefaultLayout()
}

func (a *App) render(src source, res extract.Result) error {
	layout := a.layout()
	var outputs []string

	if p := a.cfg.OutputPath; p != "" {
		var buf bytes.Buffer
		if err := report.WriteHTML(&buf, a.cfg.Title, res.Records, layout); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		if err := writeOutput(p, buf.Bytes()); err != nil {
			return err
		}
		outputs = append(outputs, p)
		log.Info().Str("out", p).Msg("report written")
	}
	if p := a.cfg.OutputPDFPath; p != "" {
		if err := report.WritePDF(p, a.cfg.Title, res.Records, layout, report.PDFOptions{FontPath: a.cfg.PDFFontPath}); err != nil {
			// PDF is optional; the HTML report is already on disk.
			log.Warn().Err(err).Str("out", p).Msg("pdf render failed")
		} else {
			outputs = append(outputs, p)
			log.Info().Str("out", p).Msg("pdf written")
		}
	}
	if p := a.cfg.JSONPath; p != "" {
		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, res.Records); err != nil {
			return fmt.Errorf("render json: %w", err)
		}
		if err := writeOutput(p, buf.Bytes()); err != nil {
			return err
		}
		outputs = append(outputs, p)
	}
	if a.cfg.PrintTable {
		report.WriteText(a.out, res.Records, layout)
	}

	if !a.cfg.NoManifest && len(outputs) > 0 {
		m := report.NewManifest(src.query, src.body, res, a.now())
		m.URL = src.url
		m.CaptureKey = src.captureKey
		m.Outputs = outputs
		m.Version = BuildVersion
		path := report.SidecarPath(outputs[0])
		if err := report.WriteManifest(path, m); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("manifest write failed")
		}
	}
	return nil
}

// JQGrid runs the configured grid query and writes the JSON document to the
// output path, or to the app output when the path is empty or "-".
func (a *App) JQGrid(ctx context.Context, outPath string) (json.RawMessage, error) {
	if err := ValidateConfig(a.cfg, CommandJQGrid); err != nil {
		return nil, err
	}
	if a.client == nil {
		return nil, session.ErrNoBaseURL
	}
	fields := map[string][]string{}
	for k, v := range a.cfg.FormOverrides {
		fields[k] = []string{v}
	}
	doc, err := a.client.JQGrid(ctx, session.JQGridQuery{
		Op:      a.cfg.JQGridOp,
		Search:  a.cfg.Search,
		Referer: a.cfg.JQGridReferer,
		Fields:  fields,
	})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "    "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	if outPath == "" || outPath == "-" {
		_, err = a.out.Write(buf.Bytes())
		return doc, err
	}
	if err := writeOutput(outPath, buf.Bytes()); err != nil {
		return nil, err
	}
	log.Info().Str("out", outPath).Int("bytes", buf.Len()).Msg("grid json written")
	return doc, nil
}

func writeOutput(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Close releases resources. Nothing is held today.
func (a *App) Close() {}
