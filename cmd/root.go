package cmd

import (
	"log"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-scrape-dispatch/pkg/dispatch"
	"github.com/spf13/cobra"
)

// --- グローバル定数 ---

const (
	appName = "scrape-dispatch"

	// タイムアウトのデフォルトは 0 (無制限)。外部ツールの応答をいつまでも待つ
	// 旧来の挙動を維持しつつ、--timeout の指定で打ち切りを可能にしています。
	defaultTimeoutSec = 0
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	ToolPath    string // --tool 外部抽出ツールの起動パス
	Interpreter string // --interpreter ツールを起動するインタプリタ
	TimeoutSec  int    // --timeout ツール実行全体のタイムアウト (秒)
}

var Flags AppFlags               // アプリケーション固有フラグにアクセスするためのグローバル変数
var globalRunner dispatch.Runner // 各サブコマンドで共有するプロセス起動実装

// 💡 ルートコマンドの定義 (clibaseがルートコマンドを生成するため、UseとLongのみ残す)
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "外部抽出ツールへのディスパッチCLI",
	Long:  `ターゲットURLと自然言語の抽出指示を外部抽出ツールへ引き渡し、単発実行（dispatch）または複数URLの並列実行（batch）を行います。ツールの出力スキーマには関知せず、終了ステータスと --output のJSONファイルのみを扱います。`,
}

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(
		&Flags.ToolPath,
		"tool",
		dispatch.DefaultToolPath,
		"外部抽出ツールの起動パス",
	)
	rootCmd.PersistentFlags().StringVar(
		&Flags.Interpreter,
		"interpreter",
		dispatch.DefaultInterpreter,
		"外部抽出ツールを起動するインタプリタ",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		defaultTimeoutSec,
		"ツール実行全体のタイムアウト時間（秒、0で無制限）",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {

	// clibase.Flags の利用
	if clibase.Flags.Verbose {
		log.Printf("外部抽出ツールを設定しました (Tool: %s, Interpreter: %s)。", Flags.ToolPath, Flags.Interpreter)
		if Flags.TimeoutSec > 0 {
			log.Printf("実行タイムアウトを設定しました (Timeout: %d秒)。", Flags.TimeoutSec)
		} else {
			log.Printf("実行タイムアウトは無制限です。ツールが応答しない場合は手動で中断してください。")
		}
	}

	// 共有ランナーの初期化
	globalRunner = dispatch.NewExecRunner()

	return nil
}

// GetGlobalRunner は、初期化されたプロセス起動実装を返す関数 (DIの代わり)
func GetGlobalRunner() dispatch.Runner {
	return globalRunner
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。clibaseのExecuteを使用する。
func Execute() {
	// clibase.Execute を使用して、アプリケーションの初期化、フラグ設定、サブコマンドの登録を一括で行う
	clibase.Execute(
		appName,
		addAppPersistentFlags, // カスタムフラグの追加コールバック
		initAppPreRunE,        // カスタムPersistentPreRunEコールバック
		// サブコマンドのリスト
		dispatchCmd,
		batchCmd,
	)
	// clibase.Execute() の中で os.Exit(1) が処理されるため、ここでは不要
}
