package dispatch_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouni/go-scrape-dispatch/pkg/dispatch"
)

// TestBuildCommandLine は、旧来形式のコマンドライン文字列の構築を検証します。
func TestBuildCommandLine(t *testing.T) {
	t.Run("historical_example_invocation", func(t *testing.T) {
		// 旧実装がハードコードしていた実行例と完全に一致すること
		got := dispatch.BuildCommandLine(
			"python", "tools/scrape_tool.py",
			"https://example.com",
			"Extract all the product names and their prices.",
		)
		require.Equal(t,
			`python tools/scrape_tool.py "https://example.com" "Extract all the product names and their prices."`,
			got,
		)
	})

	t.Run("values_appear_verbatim_and_quoted", func(t *testing.T) {
		testCases := []struct {
			name      string
			target    string
			directive string
		}{
			{"simple", "https://example.com", "Extract titles."},
			{"with_spaces", "https://example.com/a b", "Extract the first paragraph."},
			{"unicode", "https://例え.jp", "商品名と価格をすべて抽出してください。"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				got := dispatch.BuildCommandLine("python", "tools/scrape_tool.py", tc.target, tc.directive)

				// ツールパスが先頭側、その後に二重引用符で囲まれた両値がこの順で並ぶ
				require.True(t, strings.HasPrefix(got, "python tools/scrape_tool.py "))
				require.Contains(t, got, `"`+tc.target+`"`)
				require.Contains(t, got, `"`+tc.directive+`"`)
				require.Less(t, strings.Index(got, tc.target), strings.Index(got, tc.directive))
			})
		}
	})

	t.Run("quoting_does_not_escape_metacharacters", func(t *testing.T) {
		// この形式はエスケープを行わないため、シェルに渡せば注入が成立してしまう。
		// だからこそ表示専用であり、実行経路では引数ベクトル形式のみを使用する。
		injected := `a" ; rm -rf /tmp/x ; echo "`
		got := dispatch.BuildCommandLine("python", "tools/scrape_tool.py", "https://example.com", injected)
		require.Contains(t, got, `; rm -rf /tmp/x ;`)
	})
}
