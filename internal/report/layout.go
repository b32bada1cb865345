// Package report renders extracted inventory records as HTML, PDF, JSON or a
// terminal table.
package report

import "github.com/hyperifyio/invscrape/internal/extract"

// DefaultTitle heads every rendered report.
const DefaultTitle = "库存查询报告"

// Column maps a report header onto a record field.
type Column struct {
	Label string
	Field int
}

// Layout is the ordered set of report columns.
type Layout []Column

// DefaultLayout is the order operators read the stock report in: today's
// stock right after yesterday's, the frozen quantity last.
func DefaultLayout() Layout {
	return Layout{
		{Label: "仓库名称", Field: extract.Warehouse},
		{Label: "商品名称", Field: extract.ItemName},
		{Label: "条码", Field: extract.Barcode},
		{Label: "商品编号", Field: extract.ItemCode},
		{Label: "规格型号", Field: extract.Specification},
		{Label: "生产日期", Field: extract.ProductionDate},
		{Label: "昨日库存", Field: extract.PreviousStock},
		{Label: "今日库存", Field: extract.CurrentStock},
		{Label: "出库数量", Field: extract.Outbound},
		{Label: "入库数量", Field: extract.Inbound},
		{Label: "调整数量", Field: extract.Adjustment},
		{Label: "冻结库存", Field: extract.FrozenStock},
	}
}

// SchemaLayout lists every field in record order under its own name.
func SchemaLayout() Layout {
	l := make(Layout, 0, extract.FieldCount)
	for i, f := range extract.Fields {
		l = append(l, Column{Label: f, Field: i})
	}
	return l
}

// Labels returns the column headers.
func (l Layout) Labels() []string {
	out := make([]string, len(l))
	for i, c := range l {
		out[i] = c.Label
	}
	return out
}

// Row returns the record's values in layout order. Out-of-range fields render
// empty.
func (l Layout) Row(rec extract.Record) []string {
	out := make([]string, len(l))
	for i, c := range l {
		if c.Field >= 0 && c.Field < extract.FieldCount {
			out[i] = rec[c.Field]
		}
	}
	return out
}

func orDefault(l Layout) Layout {
	if len(l) == 0 {
		return DefaultLayout()
	}
	return l
}
