package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// Diagnostic messages reported in Result.Diagnostic.
const (
	DiagNoTable   = "no matching table found"
	DiagNoRows    = "table has no data rows"
	DiagNoRecords = "no non-empty records"
)

// Result is the outcome of one extraction. An empty Records slice is not an
// error; Diagnostic then says why.
type Result struct {
	Records []Record
	// Strategy names the locator that matched, empty when none did.
	Strategy   string
	TableCount int
	DataRows   int
	Diagnostic string
}

// locator finds the candidate table in a parsed document.
type locator struct {
	name string
	find func(doc *goquery.Document) *goquery.Selection
}

func classLocator(name string, classes ...string) locator {
	sels := make([]string, 0, len(classes))
	for _, c := range classes {
		sels = append(sels, "table."+c)
	}
	selector := strings.Join(sels, ", ")
	return locator{name: name, find: func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(selector).First()
	}}
}

func headerCellLocator() locator {
	return locator{name: "header-cells", find: func(doc *goquery.Document) *goquery.Selection {
		return doc.Find("table").FilterFunction(func(_ int, t *goquery.Selection) bool {
			return t.Find("th").Length() > 0
		}).First()
	}}
}

// Options configures a GridExtractor. Zero values select the defaults.
type Options struct {
	// PrimaryClass is the class tried first. Default "GridView".
	PrimaryClass string
	// AlternateClasses are tried together when PrimaryClass finds nothing.
	AlternateClasses []string
	// OwnRowsOnly restricts rows to the table's own <tr> elements and cells
	// to each row's direct <td> children. By default every descendant row
	// and cell counts, so a nested table adds its rows as records and its
	// cells to the enclosing row.
	OwnRowsOnly bool
	// Logger receives per-extraction diagnostics. Default is a no-op logger.
	Logger *zerolog.Logger
}

// GridExtractor locates a data grid in an HTML page and maps its rows onto
// Fields. It holds no mutable state and is safe for concurrent use.
type GridExtractor struct {
	locators []locator
	ownRows  bool
	log      zerolog.Logger
}

// NewGridExtractor builds an extractor with the fixed location order:
// primary class, alternate classes, then the first table with header cells.
func NewGridExtractor(opts Options) *GridExtractor {
	primary := opts.PrimaryClass
	if primary == "" {
		primary = "GridView"
	}
	alts := opts.AlternateClasses
	if len(alts) == 0 {
		alts = []string{"grid", "datatable", "list-table"}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &GridExtractor{
		locators: []locator{
			classLocator("class", primary),
			classLocator("alternate-class", alts...),
			headerCellLocator(),
		},
		ownRows: opts.OwnRowsOnly,
		log:     logger,
	}
}

// Extract runs the extractor over one HTML document.
func (e *GridExtractor) Extract(input string) Result {
	var res Result
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		// x/net/html recovers from nearly anything; treat the rest as no table.
		res.Diagnostic = DiagNoTable
		e.log.Warn().Err(err).Msg(res.Diagnostic)
		return res
	}
	res.TableCount = doc.Find("table").Length()
	e.log.Debug().Int("tables", res.TableCount).Msg("parsed document")

	var table *goquery.Selection
	for _, l := range e.locators {
		if sel := l.find(doc); sel.Length() > 0 {
			table = sel
			res.Strategy = l.name
			break
		}
	}
	if table == nil {
		res.Diagnostic = DiagNoTable
		e.log.Warn().Int("tables", res.TableCount).Msg(res.Diagnostic)
		return res
	}
	e.log.Debug().Str("strategy", res.Strategy).Msg("located table")

	rows := table.Find("tr")
	if e.ownRows {
		rows = ownRows(table)
	}
	if rows.Length() > 0 {
		rows = rows.Slice(1, rows.Length())
	}
	res.DataRows = rows.Length()
	if res.DataRows == 0 {
		res.Diagnostic = DiagNoRows
		e.log.Warn().Str("strategy", res.Strategy).Msg(res.Diagnostic)
		return res
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if e.ownRows {
			cells = row.ChildrenFiltered("td")
		}
		// Single-cell rows are pager or spacer rows.
		if cells.Length() < 2 {
			return
		}
		var rec Record
		cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
			if i >= FieldCount {
				return false
			}
			rec[i] = CleanCell(cellText(cell))
			return true
		})
		if !rec.Empty() {
			res.Records = append(res.Records, rec)
		}
	})
	if len(res.Records) == 0 {
		res.Diagnostic = DiagNoRecords
		e.log.Warn().Int("rows", res.DataRows).Msg(res.Diagnostic)
		return res
	}
	e.log.Debug().Int("records", len(res.Records)).Int("rows", res.DataRows).Msg("extracted records")
	return res
}

// ownRows returns the rows of table itself, leaving out rows of tables nested
// inside its cells (ASP.NET pagers render as a nested table).
func ownRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})
}

// cellText joins the cell's text nodes, each trimmed on its own, so markup
// between fragments does not leave stray whitespace.
func cellText(cell *goquery.Selection) string {
	var b strings.Builder
	for _, n := range cell.Nodes {
		appendTrimmedText(&b, n)
	}
	return b.String()
}

func appendTrimmedText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendTrimmedText(b, c)
	}
}
