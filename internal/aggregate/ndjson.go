package aggregate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ExtractStats reports what ExtractFields did with its input.
type ExtractStats struct {
	Lines    int
	Kept     int
	Invalid  int
	Filtered int
}

// ExtractFields reads newline-delimited JSON objects and keeps, for every
// object where all fields are present and truthy, a new object with just
// those fields in the given order. Lines that are not JSON objects are
// skipped.
func ExtractFields(r io.Reader, fields []string) ([]json.RawMessage, ExtractStats, error) {
	var st ExtractStats
	if len(fields) == 0 {
		return nil, st, fmt.Errorf("no fields to extract")
	}
	br := bufio.NewReaderSize(r, 64*1024)
	out := make([]json.RawMessage, 0, 128)
	for {
		raw, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, st, fmt.Errorf("read input: %w", readErr)
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			if readErr != nil {
				break
			}
			continue
		}
		st.Lines++
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(line, &obj); err != nil || obj == nil {
			st.Invalid++
			log.Debug().Int("line", st.Lines).Msg("skipping invalid line")
			continue
		}
		keep := true
		for _, f := range fields {
			if !truthy(obj[f]) {
				keep = false
				break
			}
		}
		if !keep {
			st.Filtered++
			continue
		}
		item, err := orderedObject(obj, fields)
		if err != nil {
			return nil, st, err
		}
		out = append(out, item)
		st.Kept++
	}
	return out, st, nil
}

// truthy follows the usual scripting notion: null, false, 0, "" and empty
// containers are false, as is a missing value.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 'n':
		return false
	case 't':
		return true
	case 'f':
		return false
	case '"':
		var s string
		return json.Unmarshal(raw, &s) == nil && s != ""
	case '[':
		var a []json.RawMessage
		return json.Unmarshal(raw, &a) == nil && len(a) > 0
	case '{':
		var m map[string]json.RawMessage
		return json.Unmarshal(raw, &m) == nil && len(m) > 0
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && f != 0
	}
}

func orderedObject(obj map[string]json.RawMessage, fields []string) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := json.Compact(&buf, obj[f]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
