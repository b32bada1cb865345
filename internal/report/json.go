package report

import (
	"encoding/json"
	"io"

	"github.com/hyperifyio/invscrape/internal/extract"
)

// WriteJSON writes records as an indented array of objects keyed by field
// name in schema order. Non-ASCII text stays literal.
func WriteJSON(w io.Writer, records []extract.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if records == nil {
		records = []extract.Record{}
	}
	return enc.Encode(records)
}
