package session

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody converts a response body to UTF-8. A forced charset name wins;
// otherwise the Content-Type header, BOM and <meta> tags decide.
func decodeBody(body []byte, contentType, forced string) (string, error) {
	if forced != "" {
		enc, err := htmlindex.Get(forced)
		if err != nil {
			return "", fmt.Errorf("unknown charset %q: %w", forced, err)
		}
		out, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", forced, err)
		}
		return string(out), nil
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		// Unknown label in the header: keep the raw bytes.
		return string(body), nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(out), nil
}

// DecodeHTML converts a saved page to UTF-8 using its BOM or <meta> charset,
// or the forced charset when one is given.
func DecodeHTML(body []byte, forced string) (string, error) {
	return decodeBody(body, "", forced)
}
