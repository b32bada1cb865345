package extract

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// CleanCell normalizes the text of one table cell: literal escape sequences
// are decoded when possible, whitespace runs collapse to one space, and a
// single trailing comma is dropped.
func CleanCell(text string) string {
	if text == "" {
		return ""
	}
	if decoded, ok := decodeEscapes(text); ok {
		text = decoded
	}
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimSuffix(text, ",")
	return strings.TrimSpace(text)
}

// decodeEscapes interprets backslash escapes that were embedded literally in
// the text (for example `\u4ed3` instead of 仓). It reports false when the
// text has no escapes or any escape is malformed, in which case the caller
// keeps the original text. Non-escaped runes pass through unchanged.
func decodeEscapes(s string) (string, bool) {
	if !strings.Contains(s, `\`) {
		return "", false
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		if s[0] != '\\' {
			r, size := utf8.DecodeRuneInString(s)
			b.WriteRune(r)
			s = s[size:]
			continue
		}
		if len(s) < 2 {
			return "", false
		}
		switch s[1] {
		case '"', '\'':
			b.WriteByte(s[1])
			s = s[2:]
			continue
		case 'u':
			if r, rest, ok := decodeSurrogatePair(s); ok {
				b.WriteRune(r)
				s = rest
				continue
			}
		}
		r, multibyte, rest, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			return "", false
		}
		if !multibyte && r >= utf8.RuneSelf {
			// \xNN and octal escapes are single bytes of a UTF-8 sequence.
			b.WriteByte(byte(r))
		} else {
			b.WriteRune(r)
		}
		s = rest
	}
	out := b.String()
	if !utf8.ValidString(out) {
		return "", false
	}
	return out, true
}

// decodeSurrogatePair handles `\ud83d\ude00` style pairs, which
// strconv.UnquoteChar rejects one half at a time.
func decodeSurrogatePair(s string) (rune, string, bool) {
	if len(s) < 12 || s[6] != '\\' || s[7] != 'u' {
		return 0, s, false
	}
	hi, err := strconv.ParseUint(s[2:6], 16, 16)
	if err != nil {
		return 0, s, false
	}
	lo, err := strconv.ParseUint(s[8:12], 16, 16)
	if err != nil {
		return 0, s, false
	}
	if !utf16.IsSurrogate(rune(hi)) {
		return 0, s, false
	}
	r := utf16.DecodeRune(rune(hi), rune(lo))
	if r == utf8.RuneError {
		return 0, s, false
	}
	return r, s[12:], true
}
