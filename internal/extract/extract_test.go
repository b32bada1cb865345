package extract

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func row(cells ...string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	for _, c := range cells {
		b.WriteString("<td>")
		b.WriteString(c)
		b.WriteString("</td>")
	}
	b.WriteString("</tr>")
	return b.String()
}

func headerRow() string {
	var b strings.Builder
	b.WriteString("<tr>")
	for _, f := range Fields {
		b.WriteString("<th>" + f + "</th>")
	}
	b.WriteString("</tr>")
	return b.String()
}

func fullRow(prefix string) []string {
	cells := make([]string, FieldCount)
	for i := range cells {
		cells[i] = prefix + string(rune('a'+i))
	}
	return cells
}

func TestExtract_PrefersGridViewRegardlessOfOrder(t *testing.T) {
	page := `<html><body>
		<table class="grid">` + headerRow() + row("other", "table") + `</table>
		<table><tr><th>x</th></tr>` + row("th", "table") + `</table>
		<table class="foo GridView">` + headerRow() + row("wanted", "row") + `</table>
	</body></html>`

	res := Extract(page)
	require.Equal(t, "class", res.Strategy)
	require.Equal(t, 3, res.TableCount)
	require.Len(t, res.Records, 1)
	require.Equal(t, "wanted", res.Records[0][Warehouse])
	require.Equal(t, "row", res.Records[0][ItemName])
}

func TestExtract_AlternateClassesInDocumentOrder(t *testing.T) {
	page := `<table><tr><th>h</th></tr>` + row("th", "only") + `</table>
		<table class="list-table"><tr><td>hdr</td></tr>` + row("list", "first") + `</table>
		<table class="datatable"><tr><td>hdr</td></tr>` + row("data", "second") + `</table>`

	res := Extract(page)
	require.Equal(t, "alternate-class", res.Strategy)
	require.Len(t, res.Records, 1)
	require.Equal(t, "list", res.Records[0][Warehouse])
}

func TestExtract_FallsBackToFirstTableWithHeaderCells(t *testing.T) {
	page := `<table><tr><td>layout</td></tr>` + row("no", "header") + `</table>
		<table><tr><th>h1</th><th>h2</th></tr>` + row("with", "header") + `</table>`

	res := Extract(page)
	require.Equal(t, "header-cells", res.Strategy)
	require.Len(t, res.Records, 1)
	require.Equal(t, "with", res.Records[0][Warehouse])
}

func TestExtract_NoTable(t *testing.T) {
	for _, page := range []string{
		"",
		"<html><body><p>login expired</p></body></html>",
		"<div><tr><td>stray</td><td>cells</td></tr>",
		"<<<>>> not html at all &&&",
	} {
		res := Extract(page)
		require.Empty(t, res.Records, "page %q", page)
		require.Equal(t, DiagNoTable, res.Diagnostic, "page %q", page)
		require.Empty(t, res.Strategy)
	}
}

func TestExtract_TableWithoutHeaderCellsIsNotMatched(t *testing.T) {
	page := `<table>` + row("a", "b") + row("c", "d") + `</table>`
	res := Extract(page)
	require.Empty(t, res.Records)
	require.Equal(t, DiagNoTable, res.Diagnostic)
	require.Equal(t, 1, res.TableCount)
}

func TestExtract_HeaderOnly(t *testing.T) {
	res := Extract(`<table class="GridView">` + headerRow() + `</table>`)
	require.Empty(t, res.Records)
	require.Equal(t, DiagNoRows, res.Diagnostic)
}

func TestExtract_AllEmptyRowExcluded(t *testing.T) {
	empty := make([]string, FieldCount)
	for i := range empty {
		empty[i] = "  \n "
	}
	page := `<table class="GridView">` + headerRow() + row(empty...) + `</table>`
	res := Extract(page)
	require.Empty(t, res.Records)
	require.Equal(t, 1, res.DataRows)
	require.Equal(t, DiagNoRecords, res.Diagnostic)
}

func TestExtract_ShortRowLeavesTrailingFieldsEmpty(t *testing.T) {
	page := `<table class="GridView">` + headerRow() +
		row(fullRow("r1")...) +
		row("w", "item", "690", "code", "spec") +
		`</table>`

	res := Extract(page)
	require.Len(t, res.Records, 2)
	require.Equal(t, 2, res.DataRows)
	require.Empty(t, res.Diagnostic)

	want := Record{"w", "item", "690", "code", "spec"}
	if diff := cmp.Diff(want, res.Records[1]); diff != "" {
		t.Fatalf("short row mismatch (-want +got):\n%s", diff)
	}
	for i := 5; i < FieldCount; i++ {
		require.Equal(t, "", res.Records[1][i], "field %d", i)
	}
	require.Equal(t, "r1l", res.Records[0][CurrentStock])
}

func TestExtract_ExtraCellsIgnored(t *testing.T) {
	cells := append(fullRow("x"), "extra1", "extra2")
	res := Extract(`<table class="GridView">` + headerRow() + row(cells...) + `</table>`)
	require.Len(t, res.Records, 1)
	require.Equal(t, "xl", res.Records[0][FieldCount-1])
}

func TestExtract_SingleCellRowsSkipped(t *testing.T) {
	page := `<table class="GridView">` + headerRow() +
		row("a", "b") +
		`<tr><td colspan="12">1 2 3 下一页</td></tr>` +
		`</table>`
	res := Extract(page)
	require.Equal(t, 2, res.DataRows)
	require.Len(t, res.Records, 1)
	require.Equal(t, "a", res.Records[0][Warehouse])
}

const nestedGrid = `<table class="GridView"><tr><th>仓库</th></tr>` +
	`<tr><td>wh</td><td><table><tr><td>in</td><td>ner</td></tr></table></td><td>690</td></tr>` +
	`</table>`

func TestExtract_NestedTablesCountAsRowsAndCells(t *testing.T) {
	res := Extract(nestedGrid)
	require.Equal(t, 2, res.DataRows)
	require.Len(t, res.Records, 2)
	want := []string{"wh", "inner", "in", "ner", "690", ""}
	require.Equal(t, want, res.Records[0][:len(want)])
	require.Equal(t, "in", res.Records[1][Warehouse])
	require.Equal(t, "ner", res.Records[1][ItemName])
	require.Empty(t, res.Records[1][Barcode])
}

func TestExtract_OwnRowsOnlyKeepsColumns(t *testing.T) {
	e := NewGridExtractor(Options{OwnRowsOnly: true})
	res := e.Extract(nestedGrid)
	require.Equal(t, 1, res.DataRows)
	require.Len(t, res.Records, 1)
	require.Equal(t, "wh", res.Records[0][Warehouse])
	require.Equal(t, "inner", res.Records[0][ItemName])
	require.Equal(t, "690", res.Records[0][Barcode])
}

func TestExtract_CleansCellText(t *testing.T) {
	page := `<table class="GridView">` + headerRow() +
		row("  主仓 \n  A区 ", "<span>糖</span> <b>猫</b>", "6911316400306,") +
		`</table>`
	res := Extract(page)
	require.Len(t, res.Records, 1)
	require.Equal(t, "主仓 A区", res.Records[0][Warehouse])
	require.Equal(t, "糖猫", res.Records[0][ItemName])
	require.Equal(t, "6911316400306", res.Records[0][Barcode])
}

func TestExtract_FieldOrderMatchesSchema(t *testing.T) {
	res := Extract(`<table class="GridView">` + headerRow() + row(fullRow("v")...) + `</table>`)
	require.Len(t, res.Records, 1)
	m := res.Records[0].Map()
	for i, f := range Fields {
		require.Equal(t, res.Records[0][i], m[f])
		v, ok := res.Records[0].Get(f)
		require.True(t, ok)
		require.Equal(t, "v"+string(rune('a'+i)), v)
	}
}

func TestExtract_ConcurrentCallers(t *testing.T) {
	page := `<table class="GridView">` + headerRow() + row(fullRow("c")...) + `</table>`
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Extract(page)
			if len(res.Records) != 1 {
				t.Errorf("expected 1 record, got %d", len(res.Records))
			}
		}()
	}
	wg.Wait()
}

func TestNewGridExtractor_CustomClasses(t *testing.T) {
	e := NewGridExtractor(Options{PrimaryClass: "rpt", AlternateClasses: []string{"alt"}})
	page := `<table class="GridView">` + headerRow() + row("gv", "x") + `</table>
		<table class="rpt"><tr><td>h</td></tr>` + row("custom", "x") + `</table>`
	res := e.Extract(page)
	require.Equal(t, "class", res.Strategy)
	require.Equal(t, "custom", res.Records[0][Warehouse])
}
