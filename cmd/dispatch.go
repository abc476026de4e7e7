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

	"github.com/shouni/go-scrape-dispatch/pkg/dispatch"
)

// コマンドラインフラグ変数を定義
var (
	rawURL     string // --url 処理対象のURL
	directive  string // --prompt 抽出指示
	outputPath string // --output ツールがJSONを書き出すパス
	dryRun     bool   // --dry-run 実行せずに起動内容のみ表示
)

// runDispatchPipeline は、外部抽出ツールへのディスパッチを実行するメインロジックです。
// Goの慣習に従い、エラーを最後の戻り値にします。
func runDispatchPipeline(dispatcher *dispatch.Dispatcher, target, directive string, overallTimeout time.Duration) (*dispatch.Result, error) {
	// 1. 全体処理のコンテキストを設定
	// overallTimeout が 0 の場合は期限を設けず、ツールの終了をいつまでも待ちます。
	ctx := context.Background()
	if overallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, overallTimeout)
		defer cancel()
	}

	// 2. ディスパッチの実行
	result, err := dispatcher.Dispatch(ctx, target, directive)
	if err != nil {
		// エラーのラッピング
		return nil, fmt.Errorf("ディスパッチエラー (URL: %s): %w", target, err)
	}

	return result, nil
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "URLと抽出指示を外部抽出ツールに引き渡し、完了ステータスを報告します",
	Long: `指定されたURL（または標準入力から読み込んだURL）と自然言語の抽出指示を外部抽出ツールに引き渡し、プロセスの終了まで待機して結果を表示します。

例:
  scrape-dispatch dispatch -u https://example.com -p "Extract all the product names and their prices."`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {

		// 1. 処理対象URLの決定 (フラグ優先)
		urlToProcess := rawURL
		if urlToProcess == "" {
			log.Println("URLが指定されていないため、標準入力からURLを読み込みます...")
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("処理するURLを入力してください: ")

			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("標準入力の読み取りエラー: %w", err)
				}
				return fmt.Errorf("URLが入力されていません")
			}
			urlToProcess = scanner.Text()
		}

		// 2. URLのスキーム補完とバリデーション
		processedURL, err := ensureScheme(urlToProcess)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}

		// 3. 抽出指示の正規化
		// 標準入力やヒアドキュメント経由の指示に混入しがちな余分な空白・改行を除去します。
		normalizedDirective := textUtils.NormalizeText(directive)
		if normalizedDirective == "" {
			return fmt.Errorf("抽出指示が空です。--prompt で抽出したい内容を指定してください")
		}

		// 4. 依存性の初期化
		// cmd/root.go で初期化された共有ランナーを使用。
		runner := GetGlobalRunner()
		if runner == nil {
			return fmt.Errorf("プロセスランナーが初期化されていません。rootコマンドのPreRunを確認してください")
		}

		opts := []dispatch.Option{
			dispatch.WithInterpreter(Flags.Interpreter),
			dispatch.WithRunner(runner),
		}
		if outputPath != "" {
			opts = append(opts, dispatch.WithOutputFile(outputPath))
		}

		dispatcher, err := dispatch.New(Flags.ToolPath, opts...)
		if err != nil {
			return fmt.Errorf("Dispatcherの初期化エラー: %w", err)
		}

		// 5. ドライラン: 起動内容のみを表示して終了
		if dryRun {
			fmt.Println("--- 起動される引数ベクトル ---")
			fmt.Println(strings.Join(dispatcher.Argv(processedURL, normalizedDirective), " "))
			fmt.Println("--- 旧来形式のコマンドライン (表示専用・シェルには渡されません) ---")
			fmt.Println(dispatch.BuildCommandLine(Flags.Interpreter, Flags.ToolPath, processedURL, normalizedDirective))
			return nil
		}

		overallTimeout := time.Duration(Flags.TimeoutSec) * time.Second
		if clibase.Flags.Verbose {
			log.Printf("処理対象URL: %s (ツール: %s, タイムアウト: %s)\n", processedURL, Flags.ToolPath, timeoutLabel(overallTimeout))
		}

		// 6. メインロジックの実行
		result, err := runDispatchPipeline(dispatcher, processedURL, normalizedDirective, overallTimeout)
		if err != nil {
			// 失敗は一行の診断としてエラーストリームに出力され、終了コードにも反映されます。
			return fmt.Errorf("外部抽出ツールの実行に失敗しました: %w", err)
		}

		// 7. 結果の出力
		fmt.Println("--- ディスパッチ結果 ---")
		fmt.Printf("URL: %s\n", result.Target)
		fmt.Printf("所要時間: %s\n", result.Duration.Round(time.Millisecond))

		if stdout := strings.TrimSpace(result.Stdout); stdout != "" {
			fmt.Println("--- ツールの標準出力 ---")
			fmt.Println(stdout)
		}

		if result.OutputPath != "" {
			data, err := dispatch.LoadScrapedData(result.OutputPath)
			if err != nil {
				return fmt.Errorf("ツールは正常終了しましたが、出力の読み込みに失敗しました: %w", err)
			}
			fmt.Printf("--- 抽出データ (%s) ---\n", result.OutputPath)
			fmt.Println(string(data))
		}
		fmt.Println("-----------------------")

		return nil
	},
}

// timeoutLabel は、タイムアウト値の表示用文字列を返します (0 は「無制限」)。
func timeoutLabel(d time.Duration) string {
	if d <= 0 {
		return "無制限"
	}
	return d.String()
}

func init() {
	dispatchCmd.Flags().StringVarP(&rawURL, "url", "u", "", "ディスパッチ対象のURL")
	dispatchCmd.Flags().StringVarP(&directive, "prompt", "p", "", "自然言語の抽出指示 (必須)")
	dispatchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "ツールが抽出データのJSONを書き出すパス")
	dispatchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "ツールを実行せず、起動される引数ベクトルのみを表示")

	// 抽出指示フラグを必須にする
	dispatchCmd.MarkFlagRequired("prompt")
}
