package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/invscrape/internal/cache"
)

// JQGridPath is the JSON endpoint backing the jqGrid widgets.
const JQGridPath = "AsynServer/JqGridServer.ashx"

// JQGridQuery is one page request against the jqGrid endpoint.
type JQGridQuery struct {
	// Op selects the server-side query, e.g. "CustomManageNew".
	Op     string
	Search string
	// Referer is the page the grid is embedded in, absolute or relative to
	// the base URL.
	Referer string
	// Rows is the fixed page size. Zero means 200.
	Rows   int
	SortBy string
	// Fields add or override form fields.
	Fields url.Values
}

func (q JQGridQuery) form(now time.Time) url.Values {
	rows := q.Rows
	if rows <= 0 {
		rows = 200
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "khmc"
	}
	form := url.Values{}
	form.Set("op", q.Op)
	form.Set("search", q.Search)
	form.Set("beginDate", "1900-01-01")
	form.Set("endDate", "2100-01-01")
	form.Set("sfjljxs", "false")
	form.Set("dbType", "")
	form.Set("khType", "0")
	form.Set("qtbm", "")
	form.Set("sfzf", "false")
	form.Set("_search", "false")
	form.Set("nd", strconv.FormatInt(now.UnixMilli(), 10))
	form.Set("rows", strconv.Itoa(rows))
	form.Set("page", "1")
	form.Set("sidx", sortBy)
	form.Set("sord", "asc")
	for k, vs := range q.Fields {
		form[k] = append([]string(nil), vs...)
	}
	return form
}

// JQGrid posts a grid query and returns the JSON document. Only the first
// page is requested.
func (c *Client) JQGrid(ctx context.Context, q JQGridQuery) (json.RawMessage, error) {
	if c.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	form := q.form(time.Now())
	req := c.resty().R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetFormDataFromValues(form)
	if ref := q.Referer; ref != "" {
		if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
			ref = c.pageURL(ref)
		}
		req.SetHeader("Referer", ref)
	}
	res, err := req.Post(JQGridPath)
	if err != nil {
		return nil, fmt.Errorf("jqgrid %s: %w", q.Op, err)
	}
	if err := checkStatus(res); err != nil {
		return nil, err
	}
	ct := res.Header().Get("Content-Type")
	body, err := decodeBody(res.Body(), ct, c.Charset)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("jqgrid %s: response is not JSON: %q", q.Op, snippet([]byte(body)))
	}
	log.Info().Str("op", q.Op).Int("bytes", len(body)).Msg("jqgrid response")

	if c.Capture != nil {
		u := c.pageURL(JQGridPath)
		key := cache.Key(http.MethodPost, u, form)
		entry := cache.Entry{Key: key, Query: "jqgrid:" + q.Op, Method: http.MethodPost, URL: u, ContentType: ct, Status: res.StatusCode()}
		if err := c.Capture.Save(ctx, entry, []byte(body)); err != nil {
			log.Warn().Err(err).Msg("capture failed")
		}
	}
	return json.RawMessage(body), nil
}
