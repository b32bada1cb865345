package extract

import (
	"bytes"
	"encoding/json"
)

// FieldCount is the number of columns in the inventory schema.
const FieldCount = 12

// Fields is the fixed, ordered inventory schema. Cells are mapped onto it by
// position, so the order here is part of the contract with every renderer.
var Fields = [FieldCount]string{
	"仓库名称",   // warehouse name
	"商品名称",   // item name
	"条码",     // barcode
	"商品编号",   // item code
	"规格型号",   // specification
	"生产日期",   // production date
	"昨日库存",   // previous stock
	"出库数量",   // outbound quantity
	"入库数量",   // inbound quantity
	"调整数量",   // adjustment quantity
	"冻结库存数量", // frozen stock quantity
	"今日库存",   // current stock
}

// Field indexes into Record.
const (
	Warehouse = iota
	ItemName
	Barcode
	ItemCode
	Specification
	ProductionDate
	PreviousStock
	Outbound
	Inbound
	Adjustment
	FrozenStock
	CurrentStock
)

// Record is one data row mapped positionally onto Fields. Missing trailing
// cells stay empty.
type Record [FieldCount]string

// FieldIndex returns the position of name in Fields, or -1.
func FieldIndex(name string) int {
	for i, f := range Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Get returns the value stored under the named field.
func (r Record) Get(name string) (string, bool) {
	i := FieldIndex(name)
	if i < 0 {
		return "", false
	}
	return r[i], true
}

// Empty reports whether every field is blank.
func (r Record) Empty() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

// Map returns a keyed copy of the record.
func (r Record) Map() map[string]string {
	m := make(map[string]string, FieldCount)
	for i, f := range Fields {
		m[f] = r[i]
	}
	return m
}

// MarshalJSON encodes the record as an object whose keys follow Fields order.
// HTML characters are not escaped so the output matches what was scraped.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	out := make([]byte, 0, 256)
	out = append(out, '{')
	for i, f := range Fields {
		if i > 0 {
			out = append(out, ',')
		}
		for j, s := range [2]string{f, r[i]} {
			buf.Reset()
			if err := enc.Encode(s); err != nil {
				return nil, err
			}
			out = append(out, bytes.TrimRight(buf.Bytes(), "\n")...)
			if j == 0 {
				out = append(out, ':')
			}
		}
	}
	out = append(out, '}')
	return out, nil
}

// UnmarshalJSON accepts an object keyed by field name. Unknown keys are
// ignored and missing keys stay empty.
func (r *Record) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Record
	for i, f := range Fields {
		out[i] = m[f]
	}
	*r = out
	return nil
}
