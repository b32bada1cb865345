package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/hyperifyio/invscrape/internal/cache"
)

const initPage = `<html><body><form>
<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="vs-token" />
<input type="hidden" name="__VIEWSTATEGENERATOR" value="PAGEGEN" />
</form></body></html>`

const gridPage = `<table class="GridView"><tr><th>仓库名称</th></tr><tr><td>主仓</td><td>糖猫</td></tr></table>`

func newTestClient(url string) *Client {
	return &Client{
		BaseURL:           url,
		Cookies:           map[string]string{CookieSessionID: "sess123", CookieAuth: "AUTH", CookieLoginInfo: "Name=%e5%91%a8"},
		PerRequestTimeout: 2 * time.Second,
		Random:            func() float64 { return 0.25 },
	}
}

func TestPostback_ReplaysViewStateAndForm(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieSessionID)
		if assert.NoError(t, err) {
			assert.Equal(t, "sess123", c.Value)
		}
		assert.Equal(t, "/kuCunManage/InventoryCheck.aspx", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(initPage))
			return
		}
		atomic.AddInt32(&posts, 1)
		assert.Equal(t, "0.25", r.URL.Query().Get("timestamp"))
		assert.Equal(t, "true", r.URL.Query().Get("Anthem_CallBack"))
		assert.Contains(t, r.Header.Get("Referer"), "InventoryCheck.aspx?timestamp=0.25")
		if !assert.NoError(t, r.ParseForm()) {
			return
		}
		assert.Equal(t, "vs-token", r.PostForm.Get("__VIEWSTATE"))
		assert.Equal(t, "PAGEGEN", r.PostForm.Get("__VIEWSTATEGENERATOR"))
		assert.Equal(t, "btnSearch", r.PostForm.Get("__EVENTTARGET"))
		assert.Equal(t, "true", r.PostForm.Get("Anthem_UpdatePage"))
		assert.Equal(t, "6911316400306", r.PostForm.Get("txtSearch"))
		assert.Equal(t, "2024-11-29", r.PostForm.Get("txtBeginDate"))
		assert.Equal(t, "on", r.PostForm.Get("cblStockType$2"))
		_, _ = w.Write([]byte(gridPage))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	store := &cache.Store{Dir: t.TempDir()}
	c.Capture = store
	q, err := Preset(PresetInventory, SearchParams{Search: "6911316400306", BeginDate: "2024-11-29", EndDate: "2024-11-29"}, time.Now())
	require.NoError(t, err)

	page, err := c.Postback(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&posts))
	require.Equal(t, http.StatusOK, page.Status)
	require.Contains(t, page.HTML(), "糖猫")
	require.NotEmpty(t, page.CaptureKey)

	body, err := store.LoadBody(context.Background(), page.CaptureKey)
	require.NoError(t, err)
	require.Equal(t, gridPage, string(body))
	e, err := store.Latest(context.Background(), PresetInventory)
	require.NoError(t, err)
	require.Equal(t, page.CaptureKey, e.Key)
}

func TestPostback_FallsBackToConfiguredGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`<input name="__VIEWSTATE" value="v">`))
			return
		}
		_ = r.ParseForm()
		_, _ = w.Write([]byte(r.PostForm.Get("__VIEWSTATEGENERATOR")))
	}))
	defer srv.Close()

	q, err := Preset(PresetCustomer, SearchParams{Search: "江"}, time.Now())
	require.NoError(t, err)
	page, err := newTestClient(srv.URL).Postback(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, "0BFF6C66", page.Body)
}

func TestPostback_ExpiredSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>请登录</body></html>`))
	}))
	defer srv.Close()

	q, _ := Preset(PresetInventory, SearchParams{}, time.Now())
	_, err := newTestClient(srv.URL).Postback(context.Background(), q)
	require.ErrorIs(t, err, ErrNoViewState)
}

func TestPostback_StatusErrorNoRetry(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(initPage))
			return
		}
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 900)))
	}))
	defer srv.Close()

	q, _ := Preset(PresetInventory, SearchParams{}, time.Now())
	_, err := newTestClient(srv.URL).Postback(context.Background(), q)
	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
	require.Equal(t, http.StatusInternalServerError, se.Status)
	require.Len(t, se.Body, 500)
	require.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestPostback_DecodesGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(gridPage)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(initPage))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	q, _ := Preset(PresetInventory, SearchParams{}, time.Now())
	page, err := newTestClient(srv.URL).Postback(context.Background(), q)
	require.NoError(t, err)
	require.Contains(t, page.Body, "主仓")
}

func TestPostback_RequiresBaseURL(t *testing.T) {
	_, err := (&Client{}).Postback(context.Background(), Query{Path: "x.aspx"})
	require.ErrorIs(t, err, ErrNoBaseURL)
}

func TestDecodeBody_ForcedCharset(t *testing.T) {
	encoded, _ := simplifiedchinese.GBK.NewEncoder().String("库存")
	out, err := decodeBody([]byte(encoded), "text/html; charset=utf-8", "gbk")
	require.NoError(t, err)
	require.Equal(t, "库存", out)

	_, err = decodeBody([]byte("x"), "", "no-such-charset")
	require.Error(t, err)
}

func TestUnwrapAnthem(t *testing.T) {
	body := `{"value":null,"error":null,"viewState":"abc","controls":{"grdList":"<table class=\"GridView\"><tr><td>仓</td></tr></table>","pager":"<span>1</span>"}}`
	html := UnwrapAnthem(body)
	require.Contains(t, html, `<table class="GridView">`)
	require.Contains(t, html, "<span>1</span>")

	plain := "<html><table></table></html>"
	require.Equal(t, plain, UnwrapAnthem(plain))
	require.Equal(t, "{not json", UnwrapAnthem("{not json"))
}

func TestPreset_UnknownAndOverrides(t *testing.T) {
	_, err := Preset("orders", SearchParams{}, time.Now())
	require.Error(t, err)

	now := time.Date(2024, 11, 29, 10, 0, 0, 0, time.UTC)
	q, err := Preset(PresetInventory, SearchParams{Overrides: map[string]string{"dropKYKC": "1"}}, now)
	require.NoError(t, err)
	require.Equal(t, "1", q.Fields.Get("dropKYKC"))
	require.Equal(t, "2024-11-29", q.Fields.Get("txtBeginDate"))
	require.Equal(t, []string{"customer", "inventory"}, PresetNames())
}

func TestDecodeHTML_UsesMetaCharset(t *testing.T) {
	page := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=gb2312"></head><body>今日库存</body></html>`
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(page)
	require.NoError(t, err)
	out, err := DecodeHTML([]byte(encoded), "")
	require.NoError(t, err)
	require.Contains(t, out, "今日库存")

	out, err = DecodeHTML([]byte("<p>plain</p>"), "")
	require.NoError(t, err)
	require.Equal(t, "<p>plain</p>", out)
}
