package session

import (
	"sort"
	"strings"

	"github.com/titanous/json5"
)

// anthemResponse is the callback payload returned when Anthem_CallBack=true.
// It is a JavaScript object literal rather than strict JSON, so it is parsed
// with json5.
type anthemResponse struct {
	Value     any               `json:"value"`
	Error     any               `json:"error"`
	ViewState string            `json:"viewState"`
	Controls  map[string]string `json:"controls"`
}

// UnwrapAnthem returns the HTML of the controls carried by an Anthem callback
// response, joined in control-id order. Bodies that are not callback payloads
// are returned unchanged.
func UnwrapAnthem(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return body
	}
	var resp anthemResponse
	if err := json5.Unmarshal([]byte(trimmed), &resp); err != nil || len(resp.Controls) == 0 {
		return body
	}
	ids := make([]string, 0, len(resp.Controls))
	for id := range resp.Controls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(resp.Controls[id])
		b.WriteByte('\n')
	}
	return b.String()
}
