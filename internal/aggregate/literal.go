package aggregate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// appendLiteral re-encodes one JSON value into buf in compact form. Key order
// and number text are kept; strings are re-encoded so \uXXXX escapes of
// printable text come out as literal UTF-8.
func appendLiteral(buf *bytes.Buffer, value []byte) error {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	type frame struct {
		object bool
		n      int
	}
	var stack []frame
	separate := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		switch {
		case top.object && top.n%2 == 1:
			buf.WriteByte(':')
		case top.n > 0:
			buf.WriteByte(',')
		}
		top.n++
	}

	var str bytes.Buffer
	enc := json.NewEncoder(&str)
	enc.SetEscapeHTML(false)

	tokens := 0
	for ; ; tokens++ {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				separate()
				stack = append(stack, frame{object: v == '{'})
			default:
				stack = stack[:len(stack)-1]
			}
			buf.WriteByte(byte(v))
		case string:
			separate()
			str.Reset()
			if err := enc.Encode(v); err != nil {
				return err
			}
			buf.Write(bytes.TrimSuffix(str.Bytes(), []byte{'\n'}))
		case json.Number:
			separate()
			buf.WriteString(v.String())
		case bool:
			separate()
			if v {
				buf.WriteString("true")
			} else {
				buf.WriteString("false")
			}
		case nil:
			separate()
			buf.WriteString("null")
		default:
			return fmt.Errorf("unexpected token %T", tok)
		}
	}
	if tokens == 0 || len(stack) != 0 {
		return io.ErrUnexpectedEOF
	}
	return nil
}
