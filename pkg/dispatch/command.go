package dispatch

// このファイルは、旧実装が用いていた「単一のシェルコマンド文字列」の構築ロジックを
// 表示・診断用途のために保持します。実際のプロセス起動には一切使用されません。

// BuildCommandLine は、インタプリタ、ツールパス、ターゲット、抽出指示を
// この順に連結した旧来形式のコマンドライン文字列を構築します。
// ターゲットと指示はそれぞれ二重引用符で囲まれるだけで、エスケープは行われません。
//
// 警告: この文字列をシェルに渡すと、値に含まれる引用符やメタ文字によって
// 意図しないコマンドが実行される可能性があります (シェルインジェクション)。
// 実際の起動には Dispatcher.Argv による引数ベクトル形式を使用してください。
func BuildCommandLine(interpreter, toolPath, target, directive string) string {
	return interpreter + " " + toolPath + " \"" + target + "\" \"" + directive + "\""
}
