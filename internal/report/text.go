package report

import (
	"io"

	"github.com/hyperifyio/invscrape/internal/extract"
	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteText renders records as a terminal table.
func WriteText(w io.Writer, records []extract.Record, layout Layout) {
	layout = orDefault(layout)
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := table.Row{}
	for _, l := range layout.Labels() {
		header = append(header, l)
	}
	t.AppendHeader(header)

	for _, r := range records {
		row := make(table.Row, 0, len(layout))
		for _, v := range layout.Row(r) {
			row = append(row, v)
		}
		t.AppendRow(row)
	}
	t.SetCaption("%d records", len(records))
	t.SetStyle(table.StyleRounded)
	t.Render()
}
