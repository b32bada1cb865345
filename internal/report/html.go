package report

import (
	"html/template"
	"io"

	"github.com/hyperifyio/invscrape/internal/extract"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <link href="https://cdn.jsdelivr.net/npm/bootstrap@5.1.3/dist/css/bootstrap.min.css" rel="stylesheet">
    <style>
        .report-container { padding: 20px; }
        .report-table { margin-top: 20px; }
        .table-header { background-color: #f8f9fa; }
    </style>
</head>
<body>
    <div class="container report-container">
        <h2 class="mb-4">{{.Title}}</h2>
        <table class="table table-bordered table-hover report-table">
            <thead>
                <tr class="table-header">
{{- range .Labels}}
                    <th>{{.}}</th>
{{- end}}
                </tr>
            </thead>
            <tbody>
{{- range .Rows}}
                <tr>
{{- range .}}
                    <td>{{.}}</td>
{{- end}}
                </tr>
{{- end}}
            </tbody>
        </table>
    </div>
</body>
</html>
`))

// WriteHTML renders a standalone HTML document. Values are escaped.
func WriteHTML(w io.Writer, title string, records []extract.Record, layout Layout) error {
	layout = orDefault(layout)
	if title == "" {
		title = DefaultTitle
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, layout.Row(r))
	}
	return htmlTemplate.Execute(w, struct {
		Title  string
		Labels []string
		Rows   [][]string
	}{Title: title, Labels: layout.Labels(), Rows: rows})
}
