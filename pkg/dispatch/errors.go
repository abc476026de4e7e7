package dispatch

import (
	"fmt"
	"strings"
)

// ToolExitError は、外部抽出ツールが非ゼロの終了コードで終了したことを示すカスタムエラー型です。
// 旧実装では失敗理由が一行のログに畳み込まれていましたが、本実装では終了コードと
// 標準エラー出力を保持し、呼び出し側が失敗の種類を判別できるようにしています。
type ToolExitError struct {
	ExitCode int
	Stderr   []byte
}

func (e *ToolExitError) Error() string {
	if len(e.Stderr) > 0 {
		return fmt.Sprintf("外部抽出ツールが終了コード %d で失敗しました: %s", e.ExitCode, strings.TrimSpace(string(e.Stderr)))
	}
	return fmt.Sprintf("外部抽出ツールが終了コード %d で失敗しました (標準エラー出力なし)", e.ExitCode)
}
