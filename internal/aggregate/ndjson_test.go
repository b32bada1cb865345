package aggregate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractFields_KeepsTruthyInFieldOrder(t *testing.T) {
	in := strings.Join([]string{
		`{"title":"猫粮","spuId":10,"price":3}`,
		``,
		`not json`,
		`{"spuId":0,"title":"zero id"}`,
		`{"spuId":11,"title":""}`,
		`{"spuId":12}`,
		`{"spuId":null,"title":"null id"}`,
		`[1,2,3]`,
		`{"spuId":"13","title":["x"]}`,
	}, "\n")

	items, st, err := ExtractFields(strings.NewReader(in), []string{"spuId", "title"})
	require.NoError(t, err)
	require.Equal(t, []string{
		`{"spuId":10,"title":"猫粮"}`,
		`{"spuId":"13","title":["x"]}`,
	}, strs(items))
	require.Equal(t, ExtractStats{Lines: 8, Kept: 2, Invalid: 2, Filtered: 4}, st)
}

func TestExtractFields_LongLinesAndMissingFinalNewline(t *testing.T) {
	long := `{"spuId":1,"title":"` + strings.Repeat("猫", 7*1024*1024) + `"}`
	in := long + "\n" + `{"spuId":2,"title":"last"}`
	items, st, err := ExtractFields(strings.NewReader(in), []string{"spuId"})
	require.NoError(t, err)
	require.Equal(t, []string{`{"spuId":1}`, `{"spuId":2}`}, strs(items))
	require.Equal(t, ExtractStats{Lines: 2, Kept: 2}, st)
}

func TestExtractFields_RequiresFields(t *testing.T) {
	_, _, err := ExtractFields(strings.NewReader(`{}`), nil)
	require.Error(t, err)
}

func TestTruthy(t *testing.T) {
	cases := map[string]bool{
		``:        false,
		`null`:    false,
		`false`:   false,
		`true`:    true,
		`0`:       false,
		`0.0`:     false,
		`-1`:      true,
		`""`:      false,
		`" "`:     true,
		`[]`:      false,
		`[0]`:     true,
		`{}`:      false,
		`{"a":1}`: true,
	}
	for in, want := range cases {
		require.Equal(t, want, truthy([]byte(in)), "input %q", in)
	}
}
