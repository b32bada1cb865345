package extract

import "testing"

func TestSummarize_TitleAndBodyText(t *testing.T) {
	page := `<html><head><title> 登录 </title><style>p{}</style></head>
	<body><script>var x = 1;</script><p>会话已过期，
	请重新登录</p></body></html>`

	doc := Summarize(page, 0)
	if doc.Title != "登录" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if doc.Text != "会话已过期， 请重新登录" {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestSummarize_Truncates(t *testing.T) {
	doc := Summarize("<p>库存查询报告</p>", 4)
	if doc.Text != "库存查询" {
		t.Fatalf("expected rune-safe truncation, got %q", doc.Text)
	}
}
