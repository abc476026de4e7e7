package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// pipeWaitGrace は、コンテキスト期限切れで子プロセスを強制終了した後、
// 入出力パイプの解放を待つ猶予時間です。ツールが起動した孫プロセスが
// パイプを握ったままでも、この猶予を過ぎれば Run は制御を返します。
const pipeWaitGrace = 3 * time.Second

// Runner は、外部プロセスの起動を抽象化するインターフェースです。
// 本番実装は os/exec を利用しますが、テストではフェイク実装に差し替えられます。
type Runner interface {
	// Run は name をコマンド、args を引数ベクトルとしてプロセスを起動し、
	// 終了まで呼び出し元をブロックして標準出力を返します。
	Run(ctx context.Context, name string, args ...string) (stdout []byte, err error)
}

// execRunner は os/exec を用いた Runner の本番実装です。
// コマンドと引数を個別のスロットとして渡すため、シェルを経由せず、
// 引数内のメタ文字がコマンド構造を変えることはありません。
type execRunner struct{}

// NewExecRunner は os/exec ベースの Runner を生成します。
func NewExecRunner() Runner {
	return execRunner{}
}

// Run は Runner インターフェースのメソッドを実装します。
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	// 期限切れで直接の子を強制終了しても、ツールが fork した孫プロセスが
	// 標準出力パイプを開いたままだと Wait がブロックし続ける。
	// WaitDelay を設定し、猶予経過後はパイプの解放を待たずに打ち切る。
	cmd.WaitDelay = pipeWaitGrace

	// cmd.Output() は標準出力を返し、異常終了時は ExitError.Stderr に
	// 標準エラー出力を保持します。
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	// 1. 非ゼロ終了: 終了コードと標準エラー出力を保持したカスタムエラーに変換
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ToolExitError{
			ExitCode: exitErr.ExitCode(),
			Stderr:   exitErr.Stderr,
		}
	}

	// 2. 起動失敗 (コマンドが見つからない、実行権限がない等)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return nil, fmt.Errorf("外部ツールを起動できませんでした (%s): %w", name, err)
	}

	// 3. その他 (コンテキストキャンセル等は呼び出し側で判定する)
	return nil, fmt.Errorf("外部ツールの実行に失敗しました (%s %s): %w", name, strings.Join(args, " "), err)
}
