package session

import (
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hyperifyio/invscrape/internal/cache"
)

// DefaultUserAgent matches the browser the target pages were recorded with.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0"

// Cookie names issued by the target system.
const (
	CookieLoginInfo = "loginInfo"
	CookiePageSize  = "pagesize"
	CookieSessionID = "ASP.NET_SessionId"
	CookieAuth      = ".FenXiao"
)

// PageSizeCookie formats the pagesize cookie value. The server reads it as
// the multi-value key JYLCZBSearchPageSize.
func PageSizeCookie(rows int) string {
	return "JYLCZBSearchPageSize=" + strconv.Itoa(rows)
}

// StatusError reports a non-2xx response. Body holds at most 500 bytes.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

// Client replays requests against one deployment of the legacy system using
// a pre-established browser session (cookies copied from a logged-in
// browser). It does not retry.
type Client struct {
	// BaseURL is the site root, e.g. https://lxy.example.com.
	BaseURL   string
	UserAgent string
	// Cookies are sent with every request in addition to any the server sets.
	Cookies map[string]string
	// Headers are extra request headers; they override the defaults.
	Headers map[string]string
	// Insecure disables TLS certificate verification.
	Insecure bool
	// PerRequestTimeout bounds each request. Zero means 30s.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// Charset forces body decoding (e.g. "gbk"); empty detects it from the
	// response.
	Charset string
	// Capture, when set, stores every response body.
	Capture *cache.Store
	// HTTPClient is an optional base client (tests, proxies).
	HTTPClient *http.Client

	// Random returns the value used for the timestamp cache buster.
	Random func() float64

	once sync.Once
	rc   *resty.Client
}

// ErrNoBaseURL is returned when the client has no site root configured.
var ErrNoBaseURL = errors.New("session: base URL is required")

func (c *Client) resty() *resty.Client {
	c.once.Do(func() {
		var rc *resty.Client
		if c.HTTPClient != nil {
			rc = resty.NewWithClient(c.HTTPClient)
		} else {
			rc = resty.New()
		}
		timeout := c.PerRequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hops := c.RedirectMaxHops
		if hops <= 0 {
			hops = 5
		}
		rc.SetBaseURL(strings.TrimRight(c.BaseURL, "/")).
			SetTimeout(timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(hops))
		if c.Insecure {
			rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // legacy deployment with a broken chain
		}
		for k, v := range c.defaultHeaders() {
			rc.SetHeader(k, v)
		}
		for k, v := range c.Headers {
			rc.SetHeader(k, v)
		}
		cookies := make([]*http.Cookie, 0, len(c.Cookies))
		for name, value := range c.Cookies {
			if value == "" {
				continue
			}
			cookies = append(cookies, &http.Cookie{Name: name, Value: value})
		}
		rc.SetCookies(cookies)
		c.rc = rc
	})
	return c.rc
}

// defaultHeaders mirrors what the browser sent. Accept-Encoding is left to
// the transport so gzip bodies are decompressed transparently.
func (c *Client) defaultHeaders() map[string]string {
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	h := map[string]string{
		"Accept":             "*/*",
		"Accept-Language":    "en,zh;q=0.9",
		"User-Agent":         ua,
		"Sec-Ch-Ua":          `"Microsoft Edge";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		"Sec-Ch-Ua-Mobile":   "?0",
		"Sec-Ch-Ua-Platform": `"macOS"`,
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-origin",
	}
	if c.BaseURL != "" {
		h["Origin"] = strings.TrimRight(c.BaseURL, "/")
	}
	return h
}

// timestamp returns the random cache-busting value the pages append as
// ?timestamp=.
func (c *Client) timestamp() string {
	f := rand.Float64
	if c.Random != nil {
		f = c.Random
	}
	return strconv.FormatFloat(f(), 'f', -1, 64)
}

func (c *Client) pageURL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func snippet(b []byte) string {
	const max = 500
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}

func checkStatus(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return &StatusError{
		Method: res.Request.Method,
		URL:    res.Request.URL,
		Status: res.StatusCode(),
		Body:   snippet(res.Body()),
	}
}
