package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	clibase "github.com/shouni/go-cli-base"
	textUtils "github.com/shouni/go-utils/text"
	"github.com/spf13/cobra"

	"github.com/shouni/go-scrape-dispatch/pkg/batch"
	"github.com/shouni/go-scrape-dispatch/pkg/dispatch"
)

// コマンドラインフラグ変数を定義
var (
	inputURLs      string // --urls フラグで受け取るカンマ区切りのURLリスト
	batchDirective string // --prompt 全URLに共通で適用する抽出指示
	outputDir      string // --out-dir URLごとの抽出データJSONを書き出すディレクトリ
	concurrency    int    // --concurrency フラグで受け取る並列実行数
)

// runBatchPipeline は、複数URLへの一括ディスパッチを実行するメインロジックです。
func runBatchPipeline(dispatcher *dispatch.Dispatcher, urls []string, directive string, concurrency int) {

	// 1. ParallelDispatcher の初期化
	parallel := batch.NewParallelDispatcher(dispatcher, concurrency)

	// 2. タイムアウト設定: --timeout が指定されている場合のみ全体の期限を設ける
	ctx := context.Background()
	if Flags.TimeoutSec > 0 {
		overallTimeout := time.Duration(Flags.TimeoutSec) * time.Second
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, overallTimeout)
		defer cancel()
	}

	if clibase.Flags.Verbose {
		log.Printf("一括ディスパッチ開始 (対象URL数: %d, 最大同時実行数: %d, タイムアウト: %s)\n",
			len(urls), concurrency, timeoutLabel(time.Duration(Flags.TimeoutSec)*time.Second))
	}

	// 3. メインロジックの実行
	results := parallel.DispatchInParallel(ctx, urls, directive)

	// 4. 結果の出力
	fmt.Println("--- 一括ディスパッチ結果 ---")

	successCount := 0
	errorCount := 0

	for i, res := range results {
		if res.Error != nil {
			errorCount++
			fmt.Printf("❌ [%d] %s\n", i+1, res.URL)
			fmt.Printf("     エラー: %v\n", res.Error)
		} else {
			successCount++
			fmt.Printf("✅ [%d] %s\n", i+1, res.URL)
			if res.OutputPath != "" {
				fmt.Printf("     抽出データ: %s\n", res.OutputPath)
			}

			// デバッグ用にツールの標準出力のプレビューを表示
			stdout := strings.TrimSpace(res.Stdout)
			if len(stdout) > 100 {
				fmt.Printf("     ツール出力: %s...\n", stdout[:100])
			} else if stdout != "" {
				fmt.Printf("     ツール出力: %s\n", stdout)
			}
		}
	}

	fmt.Println("-------------------------------")
	fmt.Printf("完了: 成功 %d 件, 失敗 %d 件\n", successCount, errorCount)
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "複数のURLへ同一の抽出指示を並列でディスパッチします",
	Long:  `--urls フラグでカンマ区切りのURLリストを受け取るか、標準入力からURLを一行ずつ読み込み、指定された最大同時実行数で外部抽出ツールを並列に起動します。抽出データは --out-dir 配下にURLごとのJSONとして書き出されます。`,
	Args:  cobra.NoArgs, // 位置引数は取らない

	RunE: func(cmd *cobra.Command, args []string) error {

		// 1. 抽出指示の正規化
		normalizedDirective := textUtils.NormalizeText(batchDirective)
		if normalizedDirective == "" {
			return fmt.Errorf("抽出指示が空です。--prompt で抽出したい内容を指定してください")
		}

		// 2. 依存性の初期化 (Runner -> Dispatcher)
		runner := GetGlobalRunner()
		if runner == nil {
			return fmt.Errorf("プロセスランナーが初期化されていません。rootコマンドのPreRunを確認してください")
		}

		opts := []dispatch.Option{
			dispatch.WithInterpreter(Flags.Interpreter),
			dispatch.WithRunner(runner),
		}
		if outputDir != "" {
			// 並列実行では出力先の衝突を避けるため、URLごとにファイル名を導出する
			opts = append(opts, dispatch.WithOutputDir(outputDir))
		}

		dispatcher, err := dispatch.New(Flags.ToolPath, opts...)
		if err != nil {
			return fmt.Errorf("Dispatcherの初期化エラー: %w", err)
		}

		// 3. 処理対象URLのリストを決定
		var urls []string

		if inputURLs != "" {
			// --urls フラグからURLリストを取得
			urls = strings.Split(inputURLs, ",")
		} else {
			// 標準入力からURLを一行ずつ読み込む
			log.Println("URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)...")
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				url := strings.TrimSpace(scanner.Text())
				if url != "" {
					urls = append(urls, url)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("標準入力の読み取りエラー: %w", err)
			}
		}

		if len(urls) == 0 {
			return fmt.Errorf("処理対象のURLが一つも指定されていません")
		}

		// 4. 各URLのスキーム補完とバリデーション
		for i, u := range urls {
			processed, err := ensureScheme(strings.TrimSpace(u))
			if err != nil {
				return fmt.Errorf("URLスキームの処理エラー (%s): %w", u, err)
			}
			urls[i] = processed
		}

		// 5. メインロジックの実行
		runBatchPipeline(dispatcher, urls, normalizedDirective, concurrency)

		return nil
	},
}

func init() {
	// --urls フラグ: カンマ区切りのURLリスト
	batchCmd.Flags().StringVarP(&inputURLs, "urls", "u", "",
		"ディスパッチ対象のカンマ区切りURLリスト (例: url1,url2,url3)")

	// --prompt フラグ: 全URLに共通で適用する抽出指示
	batchCmd.Flags().StringVarP(&batchDirective, "prompt", "p", "",
		"全URLに共通で適用する自然言語の抽出指示 (必須)")

	// --out-dir フラグ: 抽出データJSONの出力先ディレクトリ
	batchCmd.Flags().StringVarP(&outputDir, "out-dir", "o", "",
		"URLごとの抽出データJSONを書き出すディレクトリ")

	// --concurrency フラグ: 並列実行数の指定
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "c",
		batch.DefaultMaxConcurrency,
		fmt.Sprintf("最大並列実行数 (デフォルト: %d)", batch.DefaultMaxConcurrency))

	batchCmd.MarkFlagRequired("prompt")
}
