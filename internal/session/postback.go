package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/invscrape/internal/cache"
)

// ErrNoViewState is returned when the initial page carries no __VIEWSTATE
// input, which usually means the session cookies have expired and the server
// answered with its login page.
var ErrNoViewState = errors.New("session: page has no __VIEWSTATE (session expired?)")

// Query describes one search postback on an ASP.NET page.
type Query struct {
	// Name identifies the query in logs and captures.
	Name string
	// Path is the page path relative to the base URL.
	Path string
	// EventTarget is the control that triggers the search. Default "btnSearch".
	EventTarget string
	// ViewStateGenerator is used when the page does not render one.
	ViewStateGenerator string
	// Fields are the page's own form inputs.
	Fields url.Values
}

// Page is the decoded result of a postback.
type Page struct {
	Query       string
	URL         string
	Status      int
	ContentType string
	// Body is the UTF-8 response text as received.
	Body string
	// CaptureKey is set when the body was stored.
	CaptureKey string
}

// HTML returns the markup to parse: the Anthem controls when the body is a
// callback payload, the body itself otherwise.
func (p Page) HTML() string {
	return UnwrapAnthem(p.Body)
}

// hiddenState holds the ASP.NET hidden inputs that must be echoed back.
type hiddenState struct {
	ViewState          string
	ViewStateGenerator string
	EventValidation    string
}

func parseHiddenState(html string) (hiddenState, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return hiddenState{}, fmt.Errorf("parse page: %w", err)
	}
	attr := func(name string) (string, bool) {
		return doc.Find(`input[name="` + name + `"]`).First().Attr("value")
	}
	var st hiddenState
	vs, ok := attr("__VIEWSTATE")
	if !ok {
		return st, ErrNoViewState
	}
	st.ViewState = vs
	st.ViewStateGenerator, _ = attr("__VIEWSTATEGENERATOR")
	st.EventValidation, _ = attr("__EVENTVALIDATION")
	return st, nil
}

// Postback loads the page to obtain its view state, then submits the search
// form as an Anthem callback and returns the decoded response.
func (c *Client) Postback(ctx context.Context, q Query) (Page, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return Page{}, ErrNoBaseURL
	}
	rc := c.resty()
	ts := c.timestamp()
	referer := c.pageURL(q.Path) + "?timestamp=" + ts

	logger := log.With().Str("query", q.Name).Str("path", q.Path).Logger()
	logger.Debug().Msg("loading page for view state")
	initRes, err := rc.R().
		SetContext(ctx).
		SetHeader("Referer", referer).
		Get(q.Path)
	if err != nil {
		return Page{}, fmt.Errorf("load %s: %w", q.Path, err)
	}
	if err := checkStatus(initRes); err != nil {
		return Page{}, err
	}
	initHTML, err := decodeBody(initRes.Body(), initRes.Header().Get("Content-Type"), c.Charset)
	if err != nil {
		return Page{}, err
	}
	state, err := parseHiddenState(initHTML)
	if err != nil {
		return Page{}, err
	}

	form := buildForm(q, state)
	params := url.Values{}
	params.Set("timestamp", ts)
	params.Set("Anthem_CallBack", "true")

	logger.Debug().Int("fields", len(form)).Msg("submitting postback")
	res, err := rc.R().
		SetContext(ctx).
		SetHeader("Referer", referer).
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8").
		SetQueryParamsFromValues(params).
		SetFormDataFromValues(form).
		Post(q.Path)
	if err != nil {
		return Page{}, fmt.Errorf("postback %s: %w", q.Path, err)
	}
	if err := checkStatus(res); err != nil {
		return Page{}, err
	}
	ct := res.Header().Get("Content-Type")
	body, err := decodeBody(res.Body(), ct, c.Charset)
	if err != nil {
		return Page{}, err
	}
	page := Page{
		Query:       q.Name,
		URL:         c.pageURL(q.Path),
		Status:      res.StatusCode(),
		ContentType: ct,
		Body:        body,
	}
	logger.Info().Int("status", page.Status).Str("content_type", ct).Int("chars", len([]rune(body))).Msg("postback response")

	if c.Capture != nil {
		key := cache.Key(http.MethodPost, page.URL, form)
		entry := cache.Entry{Key: key, Query: q.Name, Method: http.MethodPost, URL: page.URL, ContentType: ct, Status: page.Status}
		if err := c.Capture.Save(ctx, entry, []byte(body)); err != nil {
			logger.Warn().Err(err).Msg("capture failed")
		} else {
			page.CaptureKey = key
		}
	}
	return page, nil
}

// buildForm merges the ASP.NET/Anthem control fields with the query's own
// inputs. Query fields may override anything except the view state.
func buildForm(q Query, st hiddenState) url.Values {
	target := q.EventTarget
	if target == "" {
		target = "btnSearch"
	}
	gen := st.ViewStateGenerator
	if gen == "" {
		gen = q.ViewStateGenerator
	}
	form := url.Values{}
	form.Set("Anthem_UpdatePage", "true")
	form.Set("__EVENTTARGET", target)
	form.Set("__EVENTARGUMENT", "")
	form.Set("__LASTFOCUS", "")
	form.Set("__VIEWSTATEGENERATOR", gen)
	if st.EventValidation != "" {
		form.Set("__EVENTVALIDATION", st.EventValidation)
	}
	for k, vs := range q.Fields {
		form[k] = append([]string(nil), vs...)
	}
	form.Set("__VIEWSTATE", st.ViewState)
	return form
}
