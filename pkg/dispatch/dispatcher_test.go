package dispatch_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouni/go-scrape-dispatch/pkg/dispatch"
)

// ======================================================================
// フェイク (Fake) の定義
// ======================================================================

// fakeRunner はテスト用の dispatch.Runner インターフェースの実装です。
// 受け取ったコマンド名と引数ベクトルを記録し、設定された結果を返します。
type fakeRunner struct {
	gotName string
	gotArgs []string
	stdout  []byte
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.gotName = name
	f.gotArgs = args
	if f.err != nil {
		return nil, f.err
	}
	return f.stdout, nil
}

// ======================================================================
// テスト関数
// ======================================================================

func TestNew(t *testing.T) {
	t.Run("success_with_tool_path", func(t *testing.T) {
		d, err := dispatch.New("tools/scrape_tool.py")
		require.NoError(t, err)
		require.NotNil(t, d)
	})

	t.Run("error_with_empty_tool_path", func(t *testing.T) {
		d, err := dispatch.New("  ")
		require.Error(t, err)
		require.Nil(t, d)
		require.Contains(t, err.Error(), "パスが指定されていません")
	})
}

// TestArgv は、引数ベクトルの構築を検証します。
// ターゲットと指示がそれぞれ独立したスロットとして、この順に並ぶことが重要です。
func TestArgv(t *testing.T) {
	testCases := []struct {
		name      string
		toolPath  string
		opts      []dispatch.Option
		target    string
		directive string
		expected  []string
	}{
		{
			// 旧実装のハードコードされた実行例と同じ組み合わせ
			name:      "default_interpreter",
			toolPath:  "tools/scrape_tool.py",
			target:    "https://example.com",
			directive: "Extract all the product names and their prices.",
			expected: []string{
				"python", "tools/scrape_tool.py",
				"https://example.com",
				"Extract all the product names and their prices.",
			},
		},
		{
			name:      "custom_interpreter",
			toolPath:  "tools/scrape_tool.py",
			opts:      []dispatch.Option{dispatch.WithInterpreter("python3")},
			target:    "https://example.com",
			directive: "Extract titles.",
			expected: []string{
				"python3", "tools/scrape_tool.py",
				"https://example.com",
				"Extract titles.",
			},
		},
		{
			name:      "with_output_file",
			toolPath:  "tools/scrape_tool.py",
			opts:      []dispatch.Option{dispatch.WithOutputFile("out/data.json")},
			target:    "https://example.com",
			directive: "Extract titles.",
			expected: []string{
				"python", "tools/scrape_tool.py",
				"https://example.com",
				"Extract titles.",
				"--output", "out/data.json",
			},
		},
		{
			// シェルメタ文字を含む指示も、単一のスロットとしてそのまま渡される
			name:      "shell_metacharacters_stay_in_one_slot",
			toolPath:  "tools/scrape_tool.py",
			target:    "https://example.com",
			directive: `a" ; rm -rf /tmp/x ; echo "`,
			expected: []string{
				"python", "tools/scrape_tool.py",
				"https://example.com",
				`a" ; rm -rf /tmp/x ; echo "`,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := dispatch.New(tc.toolPath, tc.opts...)
			require.NoError(t, err)
			require.Equal(t, tc.expected, d.Argv(tc.target, tc.directive))
		})
	}
}

// TestArgvWithOutputDir は、出力ディレクトリ設定時のファイル名導出を検証します。
func TestArgvWithOutputDir(t *testing.T) {
	const directive = "Extract titles."

	d, err := dispatch.New("tools/scrape_tool.py", dispatch.WithOutputDir("out"))
	require.NoError(t, err)

	argv := d.Argv("https://example.com/products", directive)
	require.Len(t, argv, 6)
	require.Equal(t, "--output", argv[4])

	// URL由来のスラグ + ダイジェストというファイル名になること
	outPath := argv[5]
	require.True(t, strings.HasPrefix(outPath, filepath.Join("out", "example.com_products_")), "出力パス: %s", outPath)
	require.True(t, strings.HasSuffix(outPath, ".json"), "出力パス: %s", outPath)

	// 同一URLに対しては常に同じ名前を返すこと (再実行時は上書き)
	require.Equal(t, outPath, d.Argv("https://example.com/products", directive)[5])

	// スラグ化で区別が潰れるURL同士 (末尾スラッシュの有無) でも衝突しないこと
	other := d.Argv("https://example.com/products/", directive)[5]
	require.NotEqual(t, outPath, other, "異なるURLが同じ出力ファイルへ書き込んではいけない")
}

func TestDispatch(t *testing.T) {
	const (
		target    = "https://example.com"
		directive = "Extract all the product names and their prices."
	)

	t.Run("success", func(t *testing.T) {
		runner := &fakeRunner{stdout: []byte("Scraping completed successfully.\n")}
		d, err := dispatch.New("tools/scrape_tool.py", dispatch.WithRunner(runner))
		require.NoError(t, err)

		result, err := d.Dispatch(context.Background(), target, directive)
		require.NoError(t, err)
		require.NotNil(t, result)

		// 起動内容の検証: インタプリタがコマンド、残りが引数ベクトル
		require.Equal(t, "python", runner.gotName)
		require.Equal(t, []string{"tools/scrape_tool.py", target, directive}, runner.gotArgs)

		// 結果の検証
		require.Equal(t, target, result.Target)
		require.Equal(t, directive, result.Directive)
		require.Equal(t, "Scraping completed successfully.\n", result.Stdout)
		require.Empty(t, result.OutputPath, "出力先を設定していない場合、OutputPathは空のはず")
	})

	t.Run("tool_exit_error_is_distinguishable", func(t *testing.T) {
		runner := &fakeRunner{err: &dispatch.ToolExitError{ExitCode: 1, Stderr: []byte("scraper blew up")}}
		d, err := dispatch.New("tools/scrape_tool.py", dispatch.WithRunner(runner))
		require.NoError(t, err)

		result, err := d.Dispatch(context.Background(), target, directive)
		require.Error(t, err)
		require.Nil(t, result)

		// 呼び出し側が終了コードを取り出せること
		var exitErr *dispatch.ToolExitError
		require.True(t, errors.As(err, &exitErr))
		require.Equal(t, 1, exitErr.ExitCode)
		require.Contains(t, err.Error(), target, "エラーメッセージには対象URLが含まれるはず")
		require.Contains(t, err.Error(), "scraper blew up")
	})

	t.Run("empty_inputs_are_rejected", func(t *testing.T) {
		runner := &fakeRunner{}
		d, err := dispatch.New("tools/scrape_tool.py", dispatch.WithRunner(runner))
		require.NoError(t, err)

		_, err = d.Dispatch(context.Background(), "", directive)
		require.Error(t, err)
		require.Contains(t, err.Error(), "ターゲットURL")

		_, err = d.Dispatch(context.Background(), target, "  ")
		require.Error(t, err)
		require.Contains(t, err.Error(), "抽出指示")

		// 検証エラーの場合はツールが起動されないこと
		require.Empty(t, runner.gotName)
	})

	t.Run("context_cancellation_is_reported", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		runner := &fakeRunner{err: errors.New("signal: killed")}
		d, err := dispatch.New("tools/scrape_tool.py", dispatch.WithRunner(runner))
		require.NoError(t, err)

		_, err = d.Dispatch(ctx, target, directive)
		require.Error(t, err)
		require.ErrorIs(t, err, context.Canceled)
	})
}
